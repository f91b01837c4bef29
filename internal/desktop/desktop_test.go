package desktop

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const firefoxEntry = `[Desktop Entry]
# comment
Name=Firefox
Comment=Browse the Web
Exec=firefox --name "Firefox Web" %u
Icon=firefox
Keywords=Internet;WWW;Browser;
Terminal=false

[Desktop Action new-private-window]
Name=New Private Window
Exec=firefox --private-window %U
`

func writeEntry(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.desktop")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestFromPath(t *testing.T) {
	path := writeEntry(t, firefoxEntry)

	e, err := FromPath(path)
	require.NoError(t, err)
	assert.Equal(t, path, e.Path)
	assert.Equal(t, "Firefox", e.Name)
	assert.Equal(t, "firefox", e.Icon)
	assert.Equal(t, "Browse the Web", e.Comment)
	assert.Equal(t, []string{"Internet", "WWW", "Browser"}, e.Keywords)
	assert.False(t, e.Terminal)

	// action groups must not override the main entry
	assert.Equal(t, `firefox --name "Firefox Web" %u`, e.Exec)
	require.Contains(t, e.Actions, "new-private-window")
	assert.Equal(t, "New Private Window", e.Actions["new-private-window"].Name)
}

func TestFromPathErrors(t *testing.T) {
	_, err := FromPath(filepath.Join(t.TempDir(), "missing.desktop"))
	assert.Error(t, err)

	_, err = FromPath(writeEntry(t, "[Desktop Entry]\nName=NoExec\n"))
	assert.Error(t, err)
}

func TestCommand(t *testing.T) {
	e, err := FromPath(writeEntry(t, firefoxEntry))
	require.NoError(t, err)

	l := &Launcher{Terminal: []string{"foot", "-e"}}

	argv, err := l.Command(e, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"firefox", "--name", "Firefox Web"}, argv)

	argv, err = l.Command(e, "new-private-window")
	require.NoError(t, err)
	assert.Equal(t, []string{"firefox", "--private-window"}, argv)

	_, err = l.Command(e, "nope")
	assert.Error(t, err)
}

func TestCommandTerminalAndPercent(t *testing.T) {
	e := &Entry{Path: "/x.desktop", Name: "Top", Exec: "htop --delay=10%% --file=%f", Terminal: true}

	argv, err := (&Launcher{Terminal: []string{"foot", "-e"}}).Command(e, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"foot", "-e", "htop", "--delay=10%", "--file="}, argv)

	argv, err = (&Launcher{}).Command(e, "")
	require.NoError(t, err)
	assert.Equal(t, "htop", argv[0])
}

func TestCommandRejectsEmptyExec(t *testing.T) {
	_, err := (&Launcher{}).Command(&Entry{Path: "/x.desktop", Exec: "%U"}, "")
	assert.Error(t, err)

	_, err = (&Launcher{}).Command(&Entry{Path: "/x.desktop", Exec: `"unterminated`}, "")
	assert.Error(t, err)
}

func TestLaunch(t *testing.T) {
	e := &Entry{Path: "/x.desktop", Name: "True", Exec: "true %U"}
	assert.NoError(t, (&Launcher{}).Launch(e, ""))

	e.Exec = "/nonexistent/binary"
	assert.Error(t, (&Launcher{}).Launch(e, ""))
}
