package core

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/gotk3/gotk3/gdk"
	"github.com/gotk3/gotk3/gtk"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	iconCacheSize = 256
	fallbackIcon  = "application-x-executable"
)

// iconLoader resolves icon names and absolute icon paths to pixbufs at a
// fixed size. It is only used from the GTK main loop.
type iconLoader struct {
	cache *lru.Cache[string, *gdk.Pixbuf]
	theme *gtk.IconTheme
	size  int
}

func newIconLoader(size int) (*iconLoader, error) {
	cache, err := lru.New[string, *gdk.Pixbuf](iconCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create icon cache: %w", err)
	}

	theme, err := gtk.IconThemeGetDefault()
	if err != nil {
		return nil, fmt.Errorf("failed to get default icon theme: %w", err)
	}

	return &iconLoader{cache: cache, theme: theme, size: size}, nil
}

// load returns the pixbuf for name, the fallback icon when name cannot be
// found, or nil when neither loads.
func (il *iconLoader) load(name string) *gdk.Pixbuf {
	if name == "" {
		return nil
	}
	if pixbuf, ok := il.cache.Get(name); ok {
		return pixbuf
	}

	pixbuf, err := il.lookup(name)
	if err != nil {
		log.Printf("[ICONS] %v", err)
		if name == fallbackIcon {
			return nil
		}
		pixbuf = il.load(fallbackIcon)
		if pixbuf == nil {
			return nil
		}
	}

	il.cache.Add(name, pixbuf)
	return pixbuf
}

func (il *iconLoader) lookup(name string) (*gdk.Pixbuf, error) {
	// desktop entries may name an image file instead of a theme icon
	if filepath.IsAbs(name) {
		pixbuf, err := gdk.PixbufNewFromFileAtSize(name, il.size, il.size)
		if err != nil {
			return nil, fmt.Errorf("failed to load icon file %s: %w", name, err)
		}
		return pixbuf, nil
	}

	if !il.theme.HasIcon(name) {
		return nil, fmt.Errorf("icon %q not found in theme", name)
	}
	pixbuf, err := il.theme.LoadIcon(name, il.size, gtk.ICON_LOOKUP_USE_BUILTIN)
	if err != nil {
		return nil, fmt.Errorf("failed to load icon %q: %w", name, err)
	}
	return pixbuf, nil
}
