// Package core wires the launcher together and runs it on the GTK main loop.
package core

import (
	"context"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/chess10kp/poplaunch/internal/backend"
	"github.com/chess10kp/poplaunch/internal/config"
	"github.com/chess10kp/poplaunch/internal/desktop"
	"github.com/chess10kp/poplaunch/internal/history"
	"github.com/chess10kp/poplaunch/internal/launcher"
	"github.com/chess10kp/poplaunch/internal/mode"
	"github.com/chess10kp/poplaunch/internal/plugin"
	"github.com/gotk3/gotk3/glib"
	"github.com/gotk3/gotk3/gtk"
)

// Options are the command line overrides for a session.
type Options struct {
	// InitialMode names a plugin or web shortcut to start in.
	InitialMode string
	ThemePath   string
	// Scale overrides the configured window scale when positive.
	Scale float64
}

// App is one launcher session.
type App struct {
	config  *config.Config
	opts    Options
	sigChan chan os.Signal
}

func NewApp(cfg *config.Config, opts Options) (*App, error) {
	if opts.ThemePath == "" {
		opts.ThemePath = cfg.Theme.Path
	}
	if opts.Scale <= 0 {
		opts.Scale = cfg.Window.Scale
	}
	return &App{
		config:  cfg,
		opts:    opts,
		sigChan: make(chan os.Signal, 1),
	}, nil
}

// Run shows the launcher and blocks until the session ends. It returns the
// process exit code.
func (a *App) Run() int {
	log.Println("[APP] poplaunch starting...")

	gtk.Init(nil)
	provider := SetupStyles(a.opts.ThemePath, a.config.Styling, a.opts.Scale)

	plugins, err := plugin.Load(a.config.Plugins.Dirs)
	if err != nil {
		log.Printf("[APP] Warning: some plugins failed to load: %v", err)
	}
	log.Printf("[APP] Loaded %d plugins", len(plugins))

	resolver := mode.NewResolver(plugins, a.webRules())

	var hist launcher.History
	var cache *history.Cache
	if store := openHistoryStore(a.config.History); store != nil {
		cache, err = history.NewCache(store, a.config.History.CacheSize)
		if err != nil {
			log.Printf("[APP] Warning: history disabled: %v", err)
			store.Close()
		} else {
			hist = cache
			defer cache.Close()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	link, err := backend.Start(ctx, a.config.Backend.Command, a.config.Backend.Args...)
	if err != nil {
		log.Printf("[APP] Failed to start backend: %v", err)
		return launcher.ExitFatal
	}
	defer link.Close()

	window, err := NewWindow(a.config, a.opts.Scale)
	if err != nil {
		log.Printf("[APP] Failed to create window: %v", err)
		return launcher.ExitFatal
	}

	controller := launcher.NewController(launcher.Options{
		ExitUnfocused: a.config.Behavior.ExitUnfocused,
		MaxResults:    a.config.Behavior.MaxResults,
		Debug:         a.config.Logging.Debug,
	}, resolver, link, hist, window, &desktop.Launcher{Terminal: a.config.Behavior.Terminal})

	signal.Notify(a.sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(a.sigChan)
	go func() {
		select {
		case sig := <-a.sigChan:
			log.Printf("[APP] Received signal: %v", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	done := make(chan int, 1)
	go func() {
		code := controller.Run(ctx, resolver.InitialInput(a.opts.InitialMode), window.Events(), link.Events())
		window.Close()
		done <- code
		glib.IdleAdd(gtk.MainQuit)
	}()

	if a.config.Logging.Debug {
		go monitorMainLoop(ctx, cache)
	}

	if provider != nil && a.opts.ThemePath != "" {
		err := watchTheme(ctx, a.opts.ThemePath, func() {
			glib.IdleAdd(func() {
				log.Printf("[STYLES] Reloading theme %s", a.opts.ThemePath)
				loadStyles(provider, a.opts.ThemePath, a.config.Styling, a.opts.Scale)
			})
		})
		if err != nil {
			log.Printf("[APP] Warning: theme changes will not be picked up: %v", err)
		}
	}

	window.Show()
	gtk.Main()

	cancel()
	code := <-done
	log.Printf("[APP] Session ended with exit code %d", code)
	return code
}

func (a *App) webRules() []mode.WebRule {
	rules := make([]mode.WebRule, 0, len(a.config.Web.Rules))
	for _, r := range a.config.Web.Rules {
		rules = append(rules, mode.WebRule{Matches: r.Matches, Icon: r.Icon})
	}
	return rules
}

// openHistoryStore opens the configured store, falling back to the JSON
// file store and finally to no history at all.
func openHistoryStore(cfg config.HistoryConfig) history.Store {
	if cfg.Store == "sqlite" {
		store, err := history.NewSQLiteStore(cfg.Path)
		if err == nil {
			return store
		}
		log.Printf("[APP] Warning: sqlite history unavailable, using JSON file: %v", err)
		cfg.Path += ".json"
	}

	store, err := history.NewFileStore(cfg.Path)
	if err != nil {
		log.Printf("[APP] Warning: history disabled: %v", err)
		return nil
	}
	return store
}

// monitorMainLoop logs when the GTK main loop stops servicing callbacks,
// along with the history cache statistics when history is enabled.
func monitorMainLoop(ctx context.Context, cache *history.Cache) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		log.Printf("[MONITOR] Goroutines: %d, Alloc: %d MB", runtime.NumGoroutine(), m.Alloc/1024/1024)
		if cache != nil {
			stats := cache.Stats()
			log.Printf("[MONITOR] History cache: %d/%d collections, %d hits, %d misses (%.0f%% hit rate)",
				stats.Size, stats.MaxSize, stats.Hits, stats.Misses, stats.HitRate*100)
		}

		ping := make(chan struct{}, 1)
		glib.IdleAdd(func() {
			ping <- struct{}{}
		})

		select {
		case <-ping:
		case <-time.After(2 * time.Second):
			log.Printf("[MONITOR] WARNING: GTK main loop appears to be blocked")
		case <-ctx.Done():
			return
		}
	}
}
