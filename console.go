package main

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/table"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/wildbits/wildbits/aamp"
	"github.com/wildbits/wildbits/botw"
	"github.com/wildbits/wildbits/db"
	"github.com/wildbits/wildbits/fileio"
	"github.com/wildbits/wildbits/gui"
	"github.com/wildbits/wildbits/process"
	"github.com/wildbits/wildbits/rstb"
)

// Console reports progress of the terminal commands on a progress bar
type Console struct {
	progressBar *progressbar.ProgressBar
}

func (c *Console) UpdateProgress(curr int, total int, message string) {
	if c.progressBar == nil {
		c.progressBar = progressbar.New(total)
	}
	c.progressBar.ChangeMax(total)
	c.progressBar.Set(curr)
}

func (c *Console) finish() {
	if c.progressBar != nil {
		c.progressBar.Finish()
		fmt.Println()
	}
}

func addConsoleCommands(root *cobra.Command) {
	rstbCmd := &cobra.Command{Use: "rstb", Short: "Inspect and maintain resource size tables"}
	rstbCmd.AddCommand(
		&cobra.Command{
			Use:   "view <table>",
			Short: "List the entries of a resource size table",
			Args:  cobra.ExactArgs(1),
			RunE:  viewRstb,
		},
		&cobra.Command{
			Use:   "scan <mod folder>",
			Short: "Learn the resource names used by a mod",
			Args:  cobra.ExactArgs(1),
			RunE:  scanMod,
		},
	)
	calcCmd := &cobra.Command{
		Use:   "calc <file>...",
		Short: "Compute the table value of files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  calcSizes,
	}
	calcCmd.Flags().Bool("wiiu", false, "compute for the big endian Wii U tables")
	rstbCmd.AddCommand(calcCmd)

	sarcCmd := &cobra.Command{Use: "sarc", Short: "Inspect and extract archives"}
	sarcCmd.AddCommand(
		&cobra.Command{
			Use:   "list <archive>",
			Short: "List the files of an archive",
			Args:  cobra.ExactArgs(1),
			RunE:  listSarc,
		},
		&cobra.Command{
			Use:   "extract <archive> <folder>",
			Short: "Extract every file of an archive",
			Args:  cobra.ExactArgs(2),
			RunE:  extractSarc,
		},
	)

	stockCmd := &cobra.Command{
		Use:   "stock <game dump>",
		Short: "Learn the stock resource names and file hashes from an unmodified game dump",
		Long: `Reads the content (and aoc) folders of an unmodified game dump and stores
the resource names and file hashes it finds in the config folder. They are
used from the next start on to name table entries and to tell modified
archive entries from stock ones.`,
		Args: cobra.ExactArgs(1),
		RunE: dumpStock,
	}
	stockCmd.Flags().Bool("wiiu", false, "the dump is of the Wii U version")

	root.AddCommand(rstbCmd, sarcCmd, stockCmd, &cobra.Command{
		Use:   "yaml <file>",
		Short: "Print an AAMP, BYML or MSBT file as YAML",
		Args:  cobra.ExactArgs(1),
		RunE:  printYaml,
	})
}

func viewRstb(cmd *cobra.Command, args []string) error {
	doc, err := process.OpenRstb(args[0])
	if err != nil {
		return err
	}
	names := db.NewNameTable(botw.StockNames(), appSettings.NamesPath())
	view := doc.View(names)
	keys := make([]string, 0, len(view))
	for k := range view {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleColoredBright)
	t.AppendHeader(table.Row{"#", "Resource", "Size"})
	for i, k := range keys {
		t.AppendRow([]interface{}{i, k, view[k]})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("Total (%v endian)", doc.Order), len(keys)})
	t.Render()
	return nil
}

func calcSizes(cmd *cobra.Command, args []string) error {
	wiiu, _ := cmd.Flags().GetBool("wiiu")
	doc := &process.RstbDocument{Table: rstb.New(), Order: binary.LittleEndian}
	if wiiu {
		doc.Order = binary.BigEndian
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleColoredBright)
	t.AppendHeader(table.Row{"File", "Size"})
	for _, file := range args {
		size, err := doc.CalcSize(file)
		if err != nil {
			return err
		}
		t.AppendRow([]interface{}{file, size})
	}
	t.Render()
	return nil
}

// scanMod runs through the same command as the editor so the names land in
// the same overlay.
func scanMod(cmd *cobra.Command, args []string) error {
	c := &Console{}
	session := gui.NewSession(l, appSettings, nil)
	session.SetProgress(c)
	defer session.Close()

	payload, err := json.Marshal(gui.Args{Path: args[0]})
	if err != nil {
		return err
	}
	fmt.Printf("Scanning folder [%v]\n", args[0])
	_, err = session.Execute("scan_mod", payload)
	c.finish()
	if err != nil {
		return err
	}
	fmt.Println("Completed")
	return nil
}

func dumpStock(cmd *cobra.Command, args []string) error {
	platform := botw.Switch
	if wiiu, _ := cmd.Flags().GetBool("wiiu"); wiiu {
		platform = botw.WiiU
	}

	c := &Console{}
	fmt.Printf("Reading game dump [%v]\n", args[0])
	dump, err := process.DumpStock(args[0], platform, appSettings.ScanWorkers, c)
	c.finish()
	if err != nil {
		return err
	}
	if err := dump.Write(appSettings.BaseFolder()); err != nil {
		return err
	}
	fmt.Printf("Learned %v names and %v %v files\n", len(dump.Names), dump.Hashes.Len(), platform)
	return nil
}

func listSarc(cmd *cobra.Command, args []string) error {
	doc, err := process.OpenSarc(args[0])
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleColoredBright)
	t.AppendHeader(table.Row{"#", "File", "Size", "RSTB", "Modified"})
	files := doc.Sarc.Files()
	for i, f := range files {
		meta, err := doc.FileMeta(f.Name)
		if err != nil {
			return err
		}
		t.AppendRow([]interface{}{i, f.Name, meta.Size, meta.Rstb, meta.Modified})
	}
	t.AppendFooter(table.Row{"", "Total", len(files), "", ""})
	t.Render()
	return nil
}

func extractSarc(cmd *cobra.Command, args []string) error {
	doc, err := process.OpenSarc(args[0])
	if err != nil {
		return err
	}
	c := &Console{}
	err = doc.ExtractAll(args[1], c)
	c.finish()
	return err
}

func printYaml(cmd *cobra.Command, args []string) error {
	data, err := fileio.ReadFile(args[0])
	if err != nil {
		return err
	}
	doc, err := process.DocumentFromBinary(data, aamp.Names)
	if err != nil {
		return err
	}
	text, err := doc.ToText()
	if err != nil {
		return err
	}
	fmt.Print(text)
	return nil
}
