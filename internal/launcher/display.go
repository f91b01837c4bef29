package launcher

import (
	"github.com/chess10kp/poplaunch/internal/history"
	"github.com/chess10kp/poplaunch/internal/protocol"
)

// EntryKind tells the DisplayEntry variants apart.
type EntryKind int

const (
	EntrySearchResult EntryKind = iota
	EntryDesktopHistory
	EntryPluginHistory
	EntryWebHistory
)

// DisplayEntry is one row of the result list. Result is set for
// EntrySearchResult, History for the three history kinds.
type DisplayEntry struct {
	Kind    EntryKind
	Result  *protocol.SearchResult
	History *history.Entry
	// Plugin is the plugin or web shortcut a history row belongs to.
	Plugin string
	// PluginIcon is shown when the history row has no icon of its own.
	PluginIcon *protocol.IconSource
}

func (e DisplayEntry) Title() string {
	switch e.Kind {
	case EntrySearchResult:
		return e.Result.Name
	case EntryDesktopHistory:
		return e.History.Name
	case EntryPluginHistory, EntryWebHistory:
		return e.History.Query
	}
	return ""
}

func (e DisplayEntry) Description() string {
	switch e.Kind {
	case EntrySearchResult:
		return e.Result.Description
	case EntryDesktopHistory:
		return e.History.Path
	case EntryPluginHistory:
		return e.Plugin
	case EntryWebHistory:
		return e.History.Kind + " " + e.History.Query
	}
	return ""
}

func (e DisplayEntry) Icon() *protocol.IconSource {
	switch e.Kind {
	case EntrySearchResult:
		if e.Result.Icon != nil {
			return e.Result.Icon
		}
		return e.Result.CategoryIcon
	case EntryDesktopHistory, EntryPluginHistory, EntryWebHistory:
		if e.History.Icon != "" {
			return &protocol.IconSource{Name: e.History.Icon}
		}
		return e.PluginIcon
	}
	return nil
}

// Snapshot is everything the view needs to draw one frame.
type Snapshot struct {
	Input     string
	ModeLabel string
	ModeIcon  *protocol.IconSource
	Entries   []DisplayEntry
	// Selected is the highlighted row, or -1.
	Selected int
}
