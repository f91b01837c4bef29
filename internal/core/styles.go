package core

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/chess10kp/poplaunch/internal/config"
	"github.com/fsnotify/fsnotify"
	"github.com/gotk3/gotk3/gdk"
	"github.com/gotk3/gotk3/gtk"
)

const stylesTemplate = `
* {
    font-family: %[1]s;
    font-size: %[2]dpx;
    margin: 0;
    padding: 0;
}

#launcher-window {
    background-color: %[3]s;
    color: %[4]s;
    border-radius: %[5]dpx;
    border: 1px solid %[6]s;
}

#launcher-header {
    background-color: %[7]s;
    border-bottom: 1px solid %[6]s;
    padding: %[8]dpx;
}

#launcher-entry {
    background-color: transparent;
    color: %[4]s;
    border: none;
    box-shadow: none;
}

#mode-label {
    color: %[9]s;
    font-weight: bold;
    margin-right: %[8]dpx;
}

#result-list {
    background-color: transparent;
}

.list-row {
    padding: %[8]dpx;
    border-bottom: 1px solid %[6]s;
}

.list-row:hover {
    background-color: %[6]s;
}

.list-row:selected {
    background-color: %[10]s;
    color: %[3]s;
}

.row-description {
    font-size: %[11]dpx;
    opacity: 0.7;
}
`

// scaled multiplies a pixel size, never going below one pixel.
func scaled(px int, scale float64) int {
	v := int(math.Round(float64(px) * scale))
	if v < 1 {
		return 1
	}
	return v
}

// BuildCSS renders the built-in stylesheet for the given styling and scale.
func BuildCSS(s config.StylingConfig, scale float64) string {
	return fmt.Sprintf(stylesTemplate,
		s.FontFamily,
		scaled(s.FontSize, scale),
		s.BackgroundColor,
		s.ForegroundColor,
		scaled(s.BorderRadius, scale),
		s.BorderColor,
		s.EntryBackground,
		scaled(12, scale),
		s.AccentColor,
		s.ListRowSelected,
		scaled(s.FontSize*3/4, scale),
	)
}

// themeCSS returns the stylesheet to install. A theme file replaces the
// built-in styles entirely; an unreadable one falls back to them.
func themeCSS(themePath string, s config.StylingConfig, scale float64) string {
	if themePath != "" {
		data, err := os.ReadFile(themePath)
		if err == nil {
			log.Printf("[STYLES] Using theme %s", themePath)
			return string(data)
		}
		log.Printf("[STYLES] Warning: failed to read theme %s, using built-in styles: %v", themePath, err)
	}
	return BuildCSS(s, scale)
}

// SetupStyles installs the stylesheet on the default screen and returns its
// provider so it can be reloaded.
func SetupStyles(themePath string, s config.StylingConfig, scale float64) *gtk.CssProvider {
	screen, err := gdk.ScreenGetDefault()
	if err != nil || screen == nil {
		log.Printf("[STYLES] Warning: failed to get default screen: %v", err)
		return nil
	}

	provider, err := gtk.CssProviderNew()
	if err != nil {
		log.Printf("[STYLES] Warning: failed to create CSS provider: %v", err)
		return nil
	}

	loadStyles(provider, themePath, s, scale)
	gtk.AddProviderForScreen(screen, provider, gtk.STYLE_PROVIDER_PRIORITY_APPLICATION)
	return provider
}

func loadStyles(provider *gtk.CssProvider, themePath string, s config.StylingConfig, scale float64) {
	if err := provider.LoadFromData(themeCSS(themePath, s, scale)); err != nil {
		log.Printf("[STYLES] Warning: failed to load styles: %v", err)
		if themePath == "" {
			return
		}
		// a broken theme file still leaves the built-in look
		if err := provider.LoadFromData(BuildCSS(s, scale)); err != nil {
			log.Printf("[STYLES] Warning: failed to load built-in styles: %v", err)
		}
	}
}

// watchTheme calls onChange whenever the theme file is written or replaced,
// until ctx is done. The parent directory is watched because editors
// usually save by renaming a new file over the old one.
func watchTheme(ctx context.Context, themePath string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create theme watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(themePath)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", themePath, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(evt.Name) != filepath.Clean(themePath) {
					continue
				}
				if evt.Has(fsnotify.Write) || evt.Has(fsnotify.Create) {
					onChange()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[STYLES] Theme watcher error: %v", err)
			}
		}
	}()
	return nil
}
