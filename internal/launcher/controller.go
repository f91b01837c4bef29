// Package launcher runs the event loop that ties the input box, the mode
// resolver, local history and the pop-launcher backend together.
package launcher

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/chess10kp/poplaunch/internal/backend"
	"github.com/chess10kp/poplaunch/internal/desktop"
	"github.com/chess10kp/poplaunch/internal/history"
	"github.com/chess10kp/poplaunch/internal/mode"
	"github.com/chess10kp/poplaunch/internal/protocol"
	"github.com/chess10kp/poplaunch/internal/selection"
)

// Exit codes returned by Run.
const (
	ExitOK    = 0
	ExitFatal = 1
)

// DefaultSendTimeout bounds how long a request may wait for room in the
// backend's queue.
const DefaultSendTimeout = 2 * time.Second

// Requester accepts requests for the backend. *backend.Link implements it.
type Requester interface {
	Send(ctx context.Context, req protocol.Request) error
}

// View draws snapshots. Implementations must not block; the GTK window posts
// the work onto its main loop. SetInput replaces the input text without
// producing an InputChanged event, and tags later InputChanged events with
// the edit's Seq once it is applied.
type View interface {
	Render(s Snapshot)
	SetInput(edit InputEdit)
}

// History is the part of the history cache the controller uses.
type History interface {
	Filter(collection, query string) []history.Entry
	RecordUse(collection, key string, entry history.Entry) error
}

// DesktopLauncher starts desktop entries.
type DesktopLauncher interface {
	Launch(e *desktop.Entry, action string) error
}

type Options struct {
	// ExitUnfocused ends the session when the window loses focus.
	ExitUnfocused bool
	// MaxResults caps the number of rows shown.
	MaxResults int
	// SendTimeout bounds each request handed to the backend. A request
	// that cannot be queued in time is dropped.
	SendTimeout time.Duration
	Debug       bool
}

// Controller owns all session state. It is driven from a single goroutine by
// Run and is not safe for concurrent use.
type Controller struct {
	opts      Options
	resolver  *mode.Resolver
	backend   Requester
	history   History
	view      View
	launcher  DesktopLauncher
	loadEntry func(path string) (*desktop.Entry, error)
	debug     *log.Logger

	mode     mode.ActiveMode
	modifier string
	display  string
	// inputSeq numbers the edits pushed to the view. InputChanged events
	// read before the latest edit was applied are stale.
	inputSeq  uint64
	selection selection.Selection
	results   []protocol.SearchResult
	rows      []history.Entry
	// execOnNextSearch makes the next Update activate its first result
	// instead of being shown.
	execOnNextSearch bool
}

func NewController(opts Options, resolver *mode.Resolver, req Requester, hist History, view View, dl DesktopLauncher) *Controller {
	if opts.MaxResults <= 0 {
		opts.MaxResults = 10
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = DefaultSendTimeout
	}

	debugOut := io.Discard
	if opts.Debug {
		debugOut = log.Writer()
	}

	return &Controller{
		opts:      opts,
		resolver:  resolver,
		backend:   req,
		history:   hist,
		view:      view,
		launcher:  dl,
		loadEntry: desktop.FromPath,
		debug:     log.New(debugOut, "[LAUNCHER-DEBUG] ", log.LstdFlags|log.Lmicroseconds),
		mode:      mode.Default(""),
	}
}

// Run processes events until the session ends and returns the process exit
// code. initialInput seeds the input box.
func (c *Controller) Run(ctx context.Context, initialInput string, ui <-chan UIEvent, events <-chan backend.Event) int {
	c.setInput(ctx, initialInput, initialInput != "")

	for {
		select {
		case <-ctx.Done():
			log.Printf("[CONTROLLER] Context cancelled: %v", ctx.Err())
			return ExitOK

		case evt, ok := <-ui:
			if !ok {
				log.Printf("[CONTROLLER] UI closed")
				return ExitOK
			}
			if code, done := c.handleUI(ctx, evt); done {
				return code
			}

		case evt, ok := <-events:
			if !ok {
				log.Printf("[CONTROLLER] Backend event stream ended")
				return ExitFatal
			}
			if code, done := c.handleBackend(ctx, evt); done {
				return code
			}
		}
	}
}

func (c *Controller) handleUI(ctx context.Context, evt UIEvent) (int, bool) {
	c.debug.Printf("UI_EVENT: %s text='%s' index=%d seq=%d selection=%s", evt.Kind, evt.Text, evt.Index, evt.Seq, c.selection)

	switch evt.Kind {
	case InputChanged:
		if evt.Seq < c.inputSeq {
			c.debug.Printf("STALE_INPUT: '%s' read before edit %d", evt.Text, c.inputSeq)
			return 0, false
		}
		c.setInput(ctx, evt.Text, false)

	case MoveDown:
		c.selection = c.selection.Down(c.listLen(), c.mode.ShowsHistory())
		c.render()

	case MoveUp:
		c.selection = c.selection.Up()
		c.render()

	case Execute:
		return c.execute(ctx)

	case ExecuteRow:
		if evt.Index < 0 || evt.Index >= c.listLen() {
			return 0, false
		}
		if c.mode.ShowsHistory() {
			c.selection = selection.History(evt.Index)
		} else {
			c.selection = selection.PopLauncher(evt.Index)
		}
		return c.execute(ctx)

	case Complete:
		if c.selection.Kind == selection.KindPopLauncher && c.selection.Index < len(c.results) {
			c.send(ctx, protocol.Complete(c.results[c.selection.Index].ID))
		}

	case Escape:
		log.Printf("[CONTROLLER] Escape pressed, exiting")
		c.send(ctx, protocol.Exit())
		return ExitOK, true

	case FocusLost:
		if c.opts.ExitUnfocused {
			log.Printf("[CONTROLLER] Focus lost, exiting")
			c.send(ctx, protocol.Exit())
			return ExitOK, true
		}
	}

	return 0, false
}

func (c *Controller) handleBackend(ctx context.Context, evt backend.Event) (int, bool) {
	if evt.Err != nil {
		var perr *backend.ProtocolError
		if errors.As(evt.Err, &perr) {
			log.Printf("[CONTROLLER] Skipping backend frame: %v", perr)
			return 0, false
		}
		log.Printf("[CONTROLLER] Backend failed: %v", evt.Err)
		return ExitFatal, true
	}

	resp := evt.Response
	c.debug.Printf("BACKEND_EVENT: %s", resp.Kind)

	switch resp.Kind {
	case protocol.ResponseClose:
		log.Printf("[CONTROLLER] Backend requested close")
		return ExitOK, true

	case protocol.ResponseUpdate:
		if c.execOnNextSearch {
			c.execOnNextSearch = false
			c.send(ctx, protocol.Activate(0))
			return 0, false
		}
		c.results = resp.Update
		if !c.mode.ShowsHistory() {
			c.selection = c.selection.Clamp(c.listLen())
		}
		c.render()

	case protocol.ResponseFill:
		c.modifier = ""
		c.setInput(ctx, resp.Fill, true)

	case protocol.ResponseDesktopEntry:
		action := ""
		if resp.DesktopEntry.ActionName != nil {
			action = *resp.DesktopEntry.ActionName
		}
		if c.launchDesktop(resp.DesktopEntry.Path, action) {
			return ExitOK, true
		}

	case protocol.ResponseContext:
		log.Printf("[CONTROLLER] Context menus are not implemented, ignoring %d options", len(resp.Context.Options))
	}

	return 0, false
}

// setInput resolves raw against the current modifier. push forces the
// resulting display text into the view; otherwise it is only pushed when
// resolution stripped a modifier.
func (c *Controller) setInput(ctx context.Context, raw string, push bool) {
	res := c.resolver.Resolve(raw, c.modifier)

	if res.Mode.Kind != c.mode.Kind || res.Mode.PluginName != c.mode.PluginName {
		log.Printf("[MODE] %q -> %q", c.mode.PluginName, res.Mode.PluginName)
	}

	c.mode = res.Mode
	c.modifier = res.Mode.InputModifier()
	c.display = res.Display
	c.selection = selection.OnInputChange(c.mode)
	c.refreshHistory()

	if push || c.display != raw {
		c.inputSeq++
		edit := InputEdit{Text: c.display, Seq: c.inputSeq}
		if !push {
			edit.Replaces = raw
		}
		c.view.SetInput(edit)
	}

	if !c.mode.IsHistoryBrowsing() {
		c.send(ctx, protocol.Search(res.PopQuery))
	}

	c.render()
}

func (c *Controller) refreshHistory() {
	c.rows = nil
	if !c.mode.ShowsHistory() || c.history == nil {
		return
	}
	c.rows = c.history.Filter(c.mode.HistoryCollection(), c.mode.Query)
}

func (c *Controller) execute(ctx context.Context) (int, bool) {
	sel := c.selection

	switch {
	case c.mode.IsHistoryBrowsing():
		if sel.Kind != selection.KindHistory || sel.Index >= len(c.rows) {
			return 0, false
		}
		entry := c.rows[sel.Index]
		if c.launchDesktop(entry.Path, "") {
			return ExitOK, true
		}

	case c.mode.IsWeb(), c.mode.ShowsHistory():
		switch sel.Kind {
		case selection.KindReset:
			if len(c.results) == 0 {
				return 0, false
			}
			c.recordQuery(c.mode.Query)
			c.send(ctx, protocol.Activate(c.results[0].ID))
		case selection.KindHistory:
			if sel.Index >= len(c.rows) {
				return 0, false
			}
			entry := c.rows[sel.Index]
			c.recordQuery(entry.Query)
			c.execOnNextSearch = true
			c.send(ctx, protocol.Search(c.historyQuery(entry)))
		}

	default:
		idx := 0
		if sel.Kind == selection.KindPopLauncher {
			idx = sel.Index
		}
		if idx >= len(c.results) {
			return 0, false
		}
		c.send(ctx, protocol.Activate(c.results[idx].ID))
	}

	return 0, false
}

// historyQuery rebuilds the backend query that produced a history entry.
func (c *Controller) historyQuery(entry history.Entry) string {
	if c.mode.IsWeb() {
		kind := entry.Kind
		if kind == "" {
			kind = c.mode.Modifier
		}
		return kind + " " + entry.Query
	}
	return c.mode.Modifier + entry.Query
}

func (c *Controller) recordQuery(query string) {
	if c.history == nil {
		return
	}

	entry := history.Entry{Query: query}
	if c.mode.Icon != nil {
		entry.Icon = c.mode.Icon.Name
	}
	if c.mode.IsWeb() {
		entry.Kind = c.mode.Modifier
	}

	if err := c.history.RecordUse(c.mode.HistoryCollection(), query, entry); err != nil {
		log.Printf("[CONTROLLER] Failed to record history: %v", err)
	}
}

// launchDesktop loads, records and starts a desktop entry. It reports
// whether the entry was started.
func (c *Controller) launchDesktop(path, action string) bool {
	entry, err := c.loadEntry(path)
	if err != nil {
		log.Printf("[CONTROLLER] Skipping desktop entry: %v", err)
		return false
	}

	if c.history != nil {
		rec := history.Entry{Path: entry.Path, Name: entry.Name, Icon: entry.Icon}
		if err := c.history.RecordUse(history.DesktopEntries, entry.Path, rec); err != nil {
			log.Printf("[CONTROLLER] Failed to record desktop entry: %v", err)
		}
	}

	if err := c.launcher.Launch(entry, action); err != nil {
		log.Printf("[CONTROLLER] Launch failed: %v", err)
		return false
	}
	return true
}

func (c *Controller) send(ctx context.Context, req protocol.Request) {
	c.debug.Printf("SEND: %s query='%s' id=%d", req.Kind, req.Query, req.ID)

	ctx, cancel := context.WithTimeout(ctx, c.opts.SendTimeout)
	defer cancel()
	if err := c.backend.Send(ctx, req); err != nil {
		log.Printf("[CONTROLLER] Failed to send %s: %v", req.Kind, err)
	}
}

func (c *Controller) listLen() int {
	n := len(c.results)
	if c.mode.ShowsHistory() {
		n = len(c.rows)
	}
	if n > c.opts.MaxResults {
		n = c.opts.MaxResults
	}
	return n
}

func (c *Controller) render() {
	snap := Snapshot{
		Input:     c.display,
		ModeLabel: c.mode.Label(),
		ModeIcon:  c.mode.Icon,
		Selected:  -1,
	}

	n := c.listLen()
	if c.mode.ShowsHistory() {
		kind := EntryPluginHistory
		switch {
		case c.mode.IsHistoryBrowsing():
			kind = EntryDesktopHistory
		case c.mode.IsWeb():
			kind = EntryWebHistory
		}
		for i := 0; i < n; i++ {
			snap.Entries = append(snap.Entries, DisplayEntry{
				Kind:       kind,
				History:    &c.rows[i],
				Plugin:     c.mode.PluginName,
				PluginIcon: c.mode.Icon,
			})
		}
		if c.selection.Kind == selection.KindHistory {
			snap.Selected = c.selection.Index
		}
	} else {
		for i := 0; i < n; i++ {
			snap.Entries = append(snap.Entries, DisplayEntry{
				Kind:   EntrySearchResult,
				Result: &c.results[i],
			})
		}
		if c.selection.Kind == selection.KindPopLauncher && c.selection.Index < n {
			snap.Selected = c.selection.Index
		}
	}

	c.view.Render(snap)
}
