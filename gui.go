package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/asticode/go-astikit"
	"github.com/asticode/go-astilectron"
	"go.uber.org/zap"

	"github.com/wildbits/wildbits/gui"
	"github.com/wildbits/wildbits/settings"
)

// Building and starting the GUI
func StartGUI(args []string) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	webResourcesPath := filepath.Join(filepath.Dir(exe), "web")
	if _, err := os.Stat(webResourcesPath); err != nil {
		l.Error("Missing web folder, please re-download the latest release and extract all files. aborting")
		return err
	}

	g := gui.NewGUI(l, appSettings, args)

	// Cleanup
	defer g.Defer()

	a, err := astilectron.New(zap.NewStdLog(l.Desugar()), astilectron.Options{
		AppName:            fmt.Sprintf("Wild Bits (%s)", settings.WILDBITS_VERSION),
		AppIconDefaultPath: "resources/icon.png",
		AppIconDarwinPath:  "resources/icon.icns",
		BaseDirectoryPath:  webResourcesPath,
		SingleInstance:     true,
	})
	if err != nil {
		return fmt.Errorf("failed to create astilectron: %w", err)
	}
	defer a.Close()

	a.HandleSignals()

	l.Infof("Downloading/Validating electron files (web/vendor)")
	if err = a.Start(); err != nil {
		return fmt.Errorf("failed to start astilectron, try deleting the web/vendor folder: %w", err)
	}

	w, err := a.NewWindow(filepath.Join(webResourcesPath, "app.html"), &astilectron.WindowOptions{
		BackgroundColor: astikit.StrPtr("#333"),
		Center:          astikit.BoolPtr(true),
		Height:          astikit.IntPtr(700),
		Width:           astikit.IntPtr(1200),
	})
	if err != nil {
		return fmt.Errorf("new window failed: %w", err)
	}
	g.Window = w
	w.OnMessage(g.HandleMessage)
	if err = w.Create(); err != nil {
		return fmt.Errorf("failed creating window: %w", err)
	}

	m := a.NewMenu([]*astilectron.MenuItemOptions{
		{
			SubMenu: []*astilectron.MenuItemOptions{
				{
					Accelerator: astilectron.NewAccelerator("CommandOrControl", "C"),
					Role:        astilectron.MenuItemRoleCopy,
				},
				{
					Accelerator: astilectron.NewAccelerator("CommandOrControl", "V"),
					Role:        astilectron.MenuItemRolePaste,
				},
				{Role: astilectron.MenuItemRoleClose},
			},
		},
		{
			Label: astikit.StrPtr("Debug"),
			SubMenu: []*astilectron.MenuItemOptions{
				{
					Label:       astikit.StrPtr("Open DevTools"),
					Accelerator: astilectron.NewAccelerator("CommandOrControl", "D"),
					OnClick: func(e astilectron.Event) (deleteListener bool) {
						g.Window.OpenDevTools()
						return
					},
				},
			},
		},
	})
	if err = m.Create(); err != nil {
		l.Warnf("failed to create menu - %v", err)
	}

	a.Wait()
	return nil
}
