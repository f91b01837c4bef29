// Package plugin loads the pop-launcher plugin manifests that decide how raw
// input is routed to a plugin.
package plugin

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/chess10kp/poplaunch/internal/protocol"
)

// Plugin describes how input is matched to one backend plugin. It is built
// once at startup and never changed.
type Plugin struct {
	Name    string
	Dir     string
	Icon    *protocol.IconSource
	History bool
	Isolate bool
	// Help is a literal invocation prefix such as "find ".
	Help string
	// Regex matches the invocation prefix. It is only tried at index 0.
	Regex *regexp.Regexp
}

// ManifestNames lists the manifest files looked for in each plugin directory,
// in order of preference.
var ManifestNames = []string{"plugin.ron", "plugin.toml", "plugin.yaml", "plugin.yml"}

// Load reads every plugin manifest under dirs. The first directory that
// provides a plugin name wins. A plugin that fails to load is left out and
// its error is joined into the returned error; the rest still load.
func Load(dirs []string) ([]Plugin, error) {
	var plugins []Plugin
	var errs []error
	seen := make(map[string]int)

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				log.Printf("[PLUGIN] Cannot read plugin directory %s: %v", dir, err)
			}
			continue
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			pluginDir := filepath.Join(dir, entry.Name())
			manifestPath := findManifest(pluginDir)
			if manifestPath == "" {
				log.Printf("[PLUGIN] No manifest in %s, skipping", pluginDir)
				continue
			}

			p, err := loadPlugin(manifestPath)
			if err != nil {
				errs = append(errs, fmt.Errorf("plugin %s: %w", pluginDir, err))
				continue
			}
			if i, ok := seen[p.Name]; ok {
				log.Printf("[PLUGIN] Skipping %s, plugin %q already loaded from %s", pluginDir, p.Name, plugins[i].Dir)
				continue
			}
			seen[p.Name] = len(plugins)
			plugins = append(plugins, p)
		}
	}

	log.Printf("[PLUGIN] Loaded %d plugins", len(plugins))
	return plugins, errors.Join(errs...)
}

func findManifest(dir string) string {
	for _, name := range ManifestNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

func loadPlugin(path string) (Plugin, error) {
	m, err := readManifest(path)
	if err != nil {
		return Plugin{}, err
	}

	dir := filepath.Dir(path)
	p := Plugin{
		Name:    m.Name,
		Dir:     dir,
		History: m.History,
		Isolate: m.Query.Isolate,
		Help:    m.Query.Help,
	}
	if p.Name == "" {
		p.Name = filepath.Base(dir)
	}
	if icon := m.icon(); icon != nil {
		p.Icon = icon
	}

	if m.Query.Regex != "" {
		re, err := regexp.Compile(m.Query.Regex)
		if err != nil {
			return Plugin{}, fmt.Errorf("invalid query regex %q: %w", m.Query.Regex, err)
		}
		p.Regex = re
	}

	return p, nil
}

// MatchHelp reports where the help literal occurs in terms.
func (p Plugin) MatchHelp(terms string) (int, bool) {
	if p.Help == "" {
		return -1, false
	}
	idx := strings.Index(terms, p.Help)
	return idx, idx >= 0
}

// MatchRegex returns the prefix of terms matched by the plugin regex. An
// empty match does not count.
func (p Plugin) MatchRegex(terms string) (string, bool) {
	if p.Regex == nil {
		return "", false
	}
	loc := p.Regex.FindStringIndex(terms)
	if loc == nil || loc[0] != 0 || loc[1] == 0 {
		return "", false
	}
	return terms[:loc[1]], true
}
