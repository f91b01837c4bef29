package plugin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, dir, plugin, name, body string) {
	t.Helper()
	pluginDir := filepath.Join(dir, plugin)
	require.NoError(t, os.MkdirAll(pluginDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(pluginDir, name), []byte(body), 0644))
}

func TestLoadTOMLAndYAML(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "find", "plugin.toml", `
name = "find"
icon = "system-search"
history = false

[query]
help = "find "
isolate = true
`)
	writeManifest(t, dir, "files", "plugin.yaml", `
name: files
icon:
  mime: inode/directory
query:
  regex: '^(/|~)'
`)

	plugins, err := Load([]string{dir})
	require.NoError(t, err)
	require.Len(t, plugins, 2)

	// ReadDir returns entries sorted by name
	files, find := plugins[0], plugins[1]

	assert.Equal(t, "files", files.Name)
	require.NotNil(t, files.Icon)
	assert.Equal(t, "inode/directory", files.Icon.Mime)
	require.NotNil(t, files.Regex)
	assert.Empty(t, files.Help)

	assert.Equal(t, "find", find.Name)
	assert.Equal(t, "find ", find.Help)
	assert.True(t, find.Isolate)
	assert.False(t, find.History)
	require.NotNil(t, find.Icon)
	assert.Equal(t, "system-search", find.Icon.Name)
	assert.Nil(t, find.Regex)
}

func TestLoadExcludesBadRegexOnly(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "broken", "plugin.toml", "name = \"broken\"\n[query]\nregex = \"^(unclosed\"\n")
	writeManifest(t, dir, "web", "plugin.toml", "name = \"web\"\nhistory = true\n")

	plugins, err := Load([]string{dir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	require.Len(t, plugins, 1)
	assert.Equal(t, "web", plugins[0].Name)
	assert.True(t, plugins[0].History)
}

func TestLoadFirstDirectoryWins(t *testing.T) {
	user := t.TempDir()
	system := t.TempDir()
	writeManifest(t, user, "calc", "plugin.toml", "name = \"calc\"\n[query]\nhelp = \"= \"\n")
	writeManifest(t, system, "calc", "plugin.toml", "name = \"calc\"\n[query]\nhelp = \"calc \"\n")

	plugins, err := Load([]string{user, filepath.Join(user, "missing"), system})
	require.NoError(t, err)
	require.Len(t, plugins, 1)
	assert.Equal(t, "= ", plugins[0].Help)
	assert.Equal(t, filepath.Join(user, "calc"), plugins[0].Dir)
}

func TestLoadDefaultsNameToDirectory(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "scripts", "plugin.yml", "history: true\n")

	plugins, err := Load([]string{dir})
	require.NoError(t, err)
	require.Len(t, plugins, 1)
	assert.Equal(t, "scripts", plugins[0].Name)
}

func TestMatchers(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "files", "plugin.toml", "[query]\nregex = \"^(/|~)\"\nhelp = \"~/\"\n")
	plugins, err := Load([]string{dir})
	require.NoError(t, err)
	p := plugins[0]

	prefix, ok := p.MatchRegex("~/Documents")
	assert.True(t, ok)
	assert.Equal(t, "~", prefix)

	_, ok = p.MatchRegex("open ~/Documents")
	assert.False(t, ok)

	idx, ok := p.MatchHelp("open ~/x")
	assert.True(t, ok)
	assert.Equal(t, 5, idx)

	_, ok = Plugin{}.MatchHelp("anything")
	assert.False(t, ok)
}

func TestLoadRON(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "find", "plugin.ron", `(
    name: "Find Files",
    description: "Syntax: find <filename>\nExample: find my-document.odt",
    query: (help: "find ", isolate: true, priority: High),
    bin: (path: "find"),
    icon: Name("system-search"),
)
`)
	writeManifest(t, dir, "files", "plugin.ron", `// file browser
(
    name: "File Navigation",
    query: (
        regex: r"^(/|~).*",
        no_sort: true,
    ),
    bin: (path: "files"),
    icon: Mime("inode/directory"),
    history: true,
)
`)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "empty"), 0755))

	plugins, err := Load([]string{dir})
	require.NoError(t, err)
	require.Len(t, plugins, 2)

	files, find := plugins[0], plugins[1]

	assert.Equal(t, "File Navigation", files.Name)
	assert.True(t, files.History)
	require.NotNil(t, files.Icon)
	assert.Equal(t, "inode/directory", files.Icon.Mime)
	require.NotNil(t, files.Regex)
	prefix, ok := files.MatchRegex("~/Music")
	assert.True(t, ok)
	assert.Equal(t, "~/Music", prefix)

	assert.Equal(t, "Find Files", find.Name)
	assert.Equal(t, "find ", find.Help)
	assert.True(t, find.Isolate)
	require.NotNil(t, find.Icon)
	assert.Equal(t, "system-search", find.Icon.Name)
}

func TestLoadRONPreferredOverTOML(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "calc", "plugin.ron", `(name: "calc", query: (help: "= "))`)
	writeManifest(t, dir, "calc", "plugin.toml", "name = \"calc\"\n[query]\nhelp = \"calc \"\n")

	plugins, err := Load([]string{dir})
	require.NoError(t, err)
	require.Len(t, plugins, 1)
	assert.Equal(t, "= ", plugins[0].Help)
}

func TestLoadBadRON(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "broken", "plugin.ron", `(name: "broken", query: (help: "x")`)

	plugins, err := Load([]string{dir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.Empty(t, plugins)
}

func TestMatchRegexRejectsEmptyMatch(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "tags", "plugin.toml", "[query]\nregex = \"^(t:)*\"\n")
	plugins, err := Load([]string{dir})
	require.NoError(t, err)
	p := plugins[0]

	_, ok := p.MatchRegex("")
	assert.False(t, ok)
	_, ok = p.MatchRegex("abc")
	assert.False(t, ok)

	prefix, ok := p.MatchRegex("t:t:rest")
	assert.True(t, ok)
	assert.Equal(t, "t:t:", prefix)
}
