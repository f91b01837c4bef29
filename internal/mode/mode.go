// Package mode decides, for every keystroke, which part of the backend the
// input is aimed at and what query the backend should see.
package mode

import (
	"github.com/chess10kp/poplaunch/internal/history"
	"github.com/chess10kp/poplaunch/internal/protocol"
)

// WebPlugin is the plugin name used for web shortcut queries.
const WebPlugin = "web"

// Kind tells the two ActiveMode variants apart.
type Kind int

const (
	KindDefault Kind = iota
	KindPlugin
)

// ActiveMode is the current interpretation of the input. For KindDefault only
// Query is set; an empty default query means history browsing.
type ActiveMode struct {
	Kind       Kind
	PluginName string
	Modifier   string
	Query      string
	History    bool
	Isolate    bool
	Icon       *protocol.IconSource
}

// Default is the plain desktop entry search mode.
func Default(query string) ActiveMode {
	return ActiveMode{Kind: KindDefault, Query: query}
}

func (m ActiveMode) IsWeb() bool {
	return m.Kind == KindPlugin && m.PluginName == WebPlugin
}

func (m ActiveMode) IsHistoryBrowsing() bool {
	return m.Kind == KindDefault && m.Query == ""
}

// ShowsHistory reports whether the list shows local history rows instead of
// backend results.
func (m ActiveMode) ShowsHistory() bool {
	return m.IsHistoryBrowsing() || (m.Kind == KindPlugin && m.History)
}

// HistoryCollection names the history collection for the mode, or "" when
// the mode keeps no history.
func (m ActiveMode) HistoryCollection() string {
	switch {
	case m.IsHistoryBrowsing():
		return history.DesktopEntries
	case m.IsWeb():
		return history.WebCollection(m.Modifier)
	case m.Kind == KindPlugin && m.History:
		return m.PluginName
	}
	return ""
}

// PopQuery is the exact string sent to the backend for this mode.
func (m ActiveMode) PopQuery() string {
	switch {
	case m.IsWeb():
		return m.Modifier + " " + m.Query
	case m.Kind == KindPlugin:
		return m.Modifier + m.Query
	}
	return m.Query
}

// InputModifier is the text stripped from the typed terms to reach Query.
// It is what the next keystroke is resolved against.
func (m ActiveMode) InputModifier() string {
	switch {
	case m.IsWeb():
		return m.Modifier + " "
	case m.Kind == KindPlugin:
		return m.Modifier
	}
	return ""
}

// Label is the mode indicator shown next to the input.
func (m ActiveMode) Label() string {
	if m.Kind == KindPlugin {
		return m.Modifier
	}
	return ""
}
