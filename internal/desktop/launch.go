package desktop

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/google/shlex"
)

// fieldCodes are the Exec field codes dropped before launching. The launcher
// never passes files or URLs.
var fieldCodes = []string{"%f", "%F", "%u", "%U", "%i", "%c", "%k", "%d", "%D", "%n", "%N", "%v", "%m"}

// Launcher starts desktop entries in their own session.
type Launcher struct {
	// Terminal is prepended to the command line of Terminal=true entries.
	Terminal []string
}

// Command returns the argv for an entry, or for one of its actions when
// action is not empty.
func (l *Launcher) Command(e *Entry, action string) ([]string, error) {
	line := e.Exec
	if action != "" {
		a, ok := e.Actions[action]
		if !ok || a.Exec == "" {
			return nil, fmt.Errorf("desktop entry %s has no action %q", e.Path, action)
		}
		line = a.Exec
	}

	words, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("failed to split Exec line %q: %w", line, err)
	}

	argv := make([]string, 0, len(words))
	for _, w := range words {
		if w = stripFieldCodes(w); w != "" {
			argv = append(argv, w)
		}
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("desktop entry %s has an empty Exec line", e.Path)
	}

	if e.Terminal && len(l.Terminal) > 0 {
		argv = append(append([]string{}, l.Terminal...), argv...)
	}
	return argv, nil
}

// Launch starts the entry detached and does not wait for it.
func (l *Launcher) Launch(e *Entry, action string) error {
	argv, err := l.Command(e, action)
	if err != nil {
		return err
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if home, err := os.UserHomeDir(); err == nil {
		cmd.Dir = home
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to launch %s: %w", e.Name, err)
	}

	log.Printf("[DESKTOP] Launched %s (pid %d): %s", e.Name, cmd.Process.Pid, strings.Join(argv, " "))
	return cmd.Process.Release()
}

func stripFieldCodes(word string) string {
	word = strings.ReplaceAll(word, "%%", "\x00")
	for _, code := range fieldCodes {
		word = strings.ReplaceAll(word, code, "")
	}
	return strings.ReplaceAll(word, "\x00", "%")
}
