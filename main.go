package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/wildbits/wildbits/botw"
	"github.com/wildbits/wildbits/logger"
	"github.com/wildbits/wildbits/settings"
)

var (
	l           *zap.SugaredLogger
	appSettings *settings.AppSettings
)

// rootCmd opens the editor window, optionally with a file to open
var rootCmd = &cobra.Command{
	Use:               "wildbits [file]",
	Short:             "Edit Breath of the Wild archives, parameter files and resource size tables",
	Version:           settings.WILDBITS_VERSION,
	Args:              cobra.MaximumNArgs(1),
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE: func(cmd *cobra.Command, args []string) error {
		return StartGUI(args)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Defer()
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "log at debug level")
	rootCmd.PersistentFlags().Bool("console", false, "mirror the log to stderr")
	rootCmd.PersistentFlags().String("config-dir", "", "folder holding settings, added names and the scan cache")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("console", rootCmd.PersistentFlags().Lookup("console"))
	viper.BindPFlag("config_dir", rootCmd.PersistentFlags().Lookup("config-dir"))

	viper.SetEnvPrefix("WILDBITS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	addConsoleCommands(rootCmd)
}

// setup creates the config folder, the process logger and the settings
func setup(cmd *cobra.Command, args []string) error {
	configFolder, err := settings.GetConfigFolder(viper.GetString("config_dir"))
	if err != nil {
		return fmt.Errorf("failed to locate the config folder: %w", err)
	}
	if err := os.MkdirAll(configFolder, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create the config folder: %w", err)
	}

	l = logger.GetSugar(logger.Options{
		Folder:  configFolder,
		Debug:   viper.GetBool("debug"),
		Console: viper.GetBool("console"),
	})
	appSettings = settings.NewAppSettings(configFolder)
	botw.UseDataDir(configFolder)
	l.Infof("[Wild Bits %v, config %v]", settings.WILDBITS_VERSION, configFolder)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
