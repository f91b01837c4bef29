package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	AppName   string         `toml:"app_name"`
	AppID     string         `toml:"app_id"`
	CacheDir  string         `toml:"cache_dir"`
	ConfigDir string         `toml:"config_dir"`
	Backend   BackendConfig  `toml:"backend"`
	Plugins   PluginsConfig  `toml:"plugins"`
	History   HistoryConfig  `toml:"history"`
	Web       WebConfig      `toml:"web"`
	Window    WindowConfig   `toml:"window"`
	Behavior  BehaviorConfig `toml:"behavior"`
	Keys      KeysConfig     `toml:"keys"`
	Theme     ThemeConfig    `toml:"theme"`
	Styling   StylingConfig  `toml:"styling"`
	Logging   LoggingConfig  `toml:"logging"`
}

type BackendConfig struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
}

type PluginsConfig struct {
	Dirs []string `toml:"dirs"`
}

type HistoryConfig struct {
	// Store is "sqlite" or "file".
	Store     string `toml:"store"`
	Path      string `toml:"path"`
	CacheSize int    `toml:"cache_size"`
}

type WebConfig struct {
	Rules []WebRuleConfig `toml:"rules"`
}

type WebRuleConfig struct {
	Matches []string `toml:"matches"`
	Icon    string   `toml:"icon"`
}

type WindowConfig struct {
	Width      int     `toml:"width"`
	Height     int     `toml:"height"`
	Scale      float64 `toml:"scale"`
	LayerShell bool    `toml:"layer_shell"`
	// Anchor is "center" or "top".
	Anchor    string `toml:"anchor"`
	MarginTop int    `toml:"margin_top"`
}

type BehaviorConfig struct {
	ExitUnfocused bool     `toml:"exit_unfocused"`
	MaxResults    int      `toml:"max_results"`
	Terminal      []string `toml:"terminal"`
}

type KeysConfig struct {
	Up       []string `toml:"up"`
	Down     []string `toml:"down"`
	Activate []string `toml:"activate"`
	Close    []string `toml:"close"`
	Complete []string `toml:"complete"`
}

type ThemeConfig struct {
	// Path is a CSS file handed to GTK unchanged.
	Path string `toml:"path"`
}

type StylingConfig struct {
	BackgroundColor string `toml:"background_color"`
	ForegroundColor string `toml:"foreground_color"`
	BorderColor     string `toml:"border_color"`
	AccentColor     string `toml:"accent_color"`
	EntryBackground string `toml:"entry_background"`
	ListRowSelected string `toml:"list_row_selected"`
	BorderRadius    int    `toml:"border_radius"`
	FontFamily      string `toml:"font_family"`
	FontSize        int    `toml:"font_size"`
	IconSize        int    `toml:"icon_size"`
}

type LoggingConfig struct {
	File  string `toml:"file"`
	Debug bool   `toml:"debug"`
}

var DefaultConfig = Config{
	AppName:   "poplaunch",
	AppID:     "com.github.chess10kp.poplaunch",
	CacheDir:  "~/.cache/poplaunch",
	ConfigDir: "~/.config/poplaunch",
	Backend: BackendConfig{
		Command: "pop-launcher",
		Args:    []string{},
	},
	Plugins: PluginsConfig{
		Dirs: []string{
			"~/.local/share/pop-launcher/plugins",
			"/etc/pop-launcher/plugins",
			"/usr/lib/pop-launcher/plugins",
		},
	},
	History: HistoryConfig{
		Store:     "sqlite",
		Path:      "~/.cache/poplaunch/history.db",
		CacheSize: 64,
	},
	Web: WebConfig{
		Rules: []WebRuleConfig{
			{Matches: []string{"ddg", "duckduckgo"}},
			{Matches: []string{"g", "google"}},
			{Matches: []string{"yt", "youtube"}},
			{Matches: []string{"wiki", "wikipedia"}},
		},
	},
	Window: WindowConfig{
		Width:      600,
		Height:     400,
		Scale:      1.0,
		LayerShell: true,
		Anchor:     "center",
		MarginTop:  40,
	},
	Behavior: BehaviorConfig{
		ExitUnfocused: true,
		MaxResults:    10,
		Terminal:      []string{"x-terminal-emulator", "-e"},
	},
	Keys: KeysConfig{
		Up:       []string{"Up", "Ctrl+P", "Ctrl+K"},
		Down:     []string{"Down", "Ctrl+N", "Ctrl+J"},
		Activate: []string{"Return", "KP_Enter"},
		Close:    []string{"Escape"},
		Complete: []string{"Tab"},
	},
	Styling: StylingConfig{
		BackgroundColor: "#0e1419",
		ForegroundColor: "#ebdbb2",
		BorderColor:     "#313244",
		AccentColor:     "#89b4fa",
		EntryBackground: "#181825",
		ListRowSelected: "#89b4fa",
		BorderRadius:    8,
		FontFamily:      "Iosevka, monospace",
		FontSize:        16,
		IconSize:        32,
	},
	Logging: LoggingConfig{
		File:  "~/.cache/poplaunch/poplaunch.log",
		Debug: false,
	},
}

// Default returns a copy of DefaultConfig with paths expanded.
func Default() *Config {
	cfg := DefaultConfig
	cfg.Backend.Args = append([]string{}, DefaultConfig.Backend.Args...)
	cfg.Plugins.Dirs = append([]string{}, DefaultConfig.Plugins.Dirs...)
	cfg.Web.Rules = append([]WebRuleConfig{}, DefaultConfig.Web.Rules...)
	cfg.Behavior.Terminal = append([]string{}, DefaultConfig.Behavior.Terminal...)
	cfg.expandPaths()
	return &cfg
}

// LoadConfig reads the TOML file at path on top of the defaults. A missing
// file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	expandedPath := ExpandPath(path)

	if _, err := os.Stat(expandedPath); os.IsNotExist(err) {
		return Default(), nil
	}

	data, err := os.ReadFile(expandedPath)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", expandedPath, err)
	}

	cfg.expandPaths()
	return cfg, nil
}

func LoadAndValidateConfig(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) expandPaths() {
	c.CacheDir = ExpandPath(c.CacheDir)
	c.ConfigDir = ExpandPath(c.ConfigDir)
	c.History.Path = ExpandPath(c.History.Path)
	c.Theme.Path = ExpandPath(c.Theme.Path)
	c.Logging.File = ExpandPath(c.Logging.File)
	for i, dir := range c.Plugins.Dirs {
		c.Plugins.Dirs[i] = ExpandPath(dir)
	}
}

// ExpandPath replaces a leading "~" with the home directory.
func ExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		usr, err := user.Current()
		if err == nil {
			return filepath.Join(usr.HomeDir, path[1:])
		}
	}
	return path
}

func (c *Config) Validate() error {
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validateHistory(); err != nil {
		return err
	}
	if err := c.validateWeb(); err != nil {
		return err
	}
	if err := c.validateWindow(); err != nil {
		return err
	}
	if err := c.validateBehavior(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateBackend() error {
	if strings.TrimSpace(c.Backend.Command) == "" {
		return fmt.Errorf("backend command must not be empty")
	}
	return nil
}

func (c *Config) validateHistory() error {
	h := c.History
	if h.Store != "sqlite" && h.Store != "file" {
		return fmt.Errorf("invalid history store: %q (must be sqlite or file)", h.Store)
	}
	if h.Path == "" {
		return fmt.Errorf("history path must not be empty")
	}
	if h.CacheSize < 1 || h.CacheSize > 1000 {
		return fmt.Errorf("invalid history cache_size: %d (must be 1-1000)", h.CacheSize)
	}
	return nil
}

func (c *Config) validateWeb() error {
	for i, rule := range c.Web.Rules {
		if len(rule.Matches) == 0 {
			return fmt.Errorf("web rule %d has no matches", i)
		}
		for _, m := range rule.Matches {
			if m == "" || strings.ContainsAny(m, " \t") {
				return fmt.Errorf("invalid web shortcut %q in rule %d (must be a single word)", m, i)
			}
		}
	}
	return nil
}

func (c *Config) validateWindow() error {
	w := c.Window
	if w.Width < 100 || w.Width > 4000 {
		return fmt.Errorf("invalid window width: %d (must be 100-4000)", w.Width)
	}
	if w.Height < 100 || w.Height > 4000 {
		return fmt.Errorf("invalid window height: %d (must be 100-4000)", w.Height)
	}
	if w.Scale < 0.25 || w.Scale > 4 {
		return fmt.Errorf("invalid scale: %g (must be 0.25-4)", w.Scale)
	}
	if w.Anchor != "center" && w.Anchor != "top" {
		return fmt.Errorf("invalid anchor: %q (must be center or top)", w.Anchor)
	}
	return nil
}

func (c *Config) validateBehavior() error {
	b := c.Behavior
	if b.MaxResults < 1 || b.MaxResults > 100 {
		return fmt.Errorf("invalid max_results: %d (must be 1-100)", b.MaxResults)
	}
	return nil
}

func ValidateConfig(path string) error {
	_, err := LoadAndValidateConfig(path)
	return err
}
