// Package desktop reads freedesktop .desktop files and starts them detached
// from the launcher.
package desktop

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Entry is the part of a desktop file needed to show and launch it.
type Entry struct {
	Path     string
	Name     string
	Exec     string
	Icon     string
	Comment  string
	Keywords []string
	Terminal bool
	Actions  map[string]Action
}

// Action is a [Desktop Action <id>] group.
type Action struct {
	Name string
	Exec string
}

// FromPath parses the desktop file at path.
func FromPath(path string) (*Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open desktop entry: %w", err)
	}
	defer file.Close()

	entry := &Entry{
		Path:    path,
		Actions: make(map[string]Action),
	}

	group := ""
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			group = line[1 : len(line)-1]
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch {
		case group == "Desktop Entry":
			entry.set(key, value)
		case strings.HasPrefix(group, "Desktop Action "):
			id := strings.TrimPrefix(group, "Desktop Action ")
			action := entry.Actions[id]
			switch key {
			case "Name":
				action.Name = value
			case "Exec":
				action.Exec = value
			}
			entry.Actions[id] = action
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read desktop entry: %w", err)
	}

	if entry.Name == "" || entry.Exec == "" {
		return nil, fmt.Errorf("invalid desktop entry %s: missing Name or Exec", path)
	}

	return entry, nil
}

func (e *Entry) set(key, value string) {
	switch key {
	case "Name":
		e.Name = value
	case "Exec":
		e.Exec = value
	case "Icon":
		e.Icon = value
	case "Comment":
		e.Comment = value
	case "Keywords":
		for _, kw := range strings.Split(value, ";") {
			if kw = strings.TrimSpace(kw); kw != "" {
				e.Keywords = append(e.Keywords, kw)
			}
		}
	case "Terminal":
		e.Terminal = strings.EqualFold(value, "true")
	}
}
