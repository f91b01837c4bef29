package plugin

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/chess10kp/poplaunch/internal/protocol"
)

type manifest struct {
	Name    string        `toml:"name" yaml:"name"`
	Icon    any           `toml:"icon" yaml:"icon"`
	History bool          `toml:"history" yaml:"history"`
	Query   queryManifest `toml:"query" yaml:"query"`
}

type queryManifest struct {
	Help    string `toml:"help" yaml:"help"`
	Regex   string `toml:"regex" yaml:"regex"`
	Isolate bool   `toml:"isolate" yaml:"isolate"`
}

func readManifest(path string) (*manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m manifest
	switch filepath.Ext(path) {
	case ".ron":
		if err := decodeRON(data, &m); err != nil {
			return nil, fmt.Errorf("failed to parse manifest: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to parse manifest: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to parse manifest: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported manifest format %q", filepath.Ext(path))
	}

	return &m, nil
}

// decodeRON parses a plugin.ron manifest and maps its fields through the
// yaml tags, so every format fills the manifest the same way.
func decodeRON(data []byte, m *manifest) error {
	v, err := parseRON(data)
	if err != nil {
		return err
	}
	if _, ok := v.(map[string]any); !ok {
		return fmt.Errorf("manifest is not a struct")
	}
	out, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(out, m)
}

// icon accepts either a bare icon name or a table with a name or mime key.
func (m *manifest) icon() *protocol.IconSource {
	switch v := m.Icon.(type) {
	case string:
		if v == "" {
			return nil
		}
		return &protocol.IconSource{Name: v}
	case map[string]any:
		if mime, ok := v["mime"].(string); ok && mime != "" {
			return &protocol.IconSource{Mime: mime}
		}
		if name, ok := v["name"].(string); ok && name != "" {
			return &protocol.IconSource{Name: name}
		}
	}
	return nil
}
