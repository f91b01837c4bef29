package launcher

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chess10kp/poplaunch/internal/backend"
	"github.com/chess10kp/poplaunch/internal/desktop"
	"github.com/chess10kp/poplaunch/internal/history"
	"github.com/chess10kp/poplaunch/internal/mode"
	"github.com/chess10kp/poplaunch/internal/plugin"
	"github.com/chess10kp/poplaunch/internal/protocol"
)

type fakeRequester struct {
	sent []protocol.Request
	err  error
}

func (f *fakeRequester) Send(_ context.Context, req protocol.Request) error {
	f.sent = append(f.sent, req)
	return f.err
}

func (f *fakeRequester) take() []protocol.Request {
	sent := f.sent
	f.sent = nil
	return sent
}

type fakeView struct {
	frames []Snapshot
	inputs []string
	edits  []InputEdit
}

func (v *fakeView) Render(s Snapshot) { v.frames = append(v.frames, s) }

func (v *fakeView) SetInput(edit InputEdit) {
	v.inputs = append(v.inputs, edit.Text)
	v.edits = append(v.edits, edit)
}

// blockingRequester models a backend that stopped reading its stdin.
type blockingRequester struct {
	attempts int
}

func (b *blockingRequester) Send(ctx context.Context, _ protocol.Request) error {
	b.attempts++
	<-ctx.Done()
	return ctx.Err()
}

func (v *fakeView) applied() uint64 {
	if len(v.edits) == 0 {
		return 0
	}
	return v.edits[len(v.edits)-1].Seq
}

func (v *fakeView) last() Snapshot {
	if len(v.frames) == 0 {
		return Snapshot{}
	}
	return v.frames[len(v.frames)-1]
}

type fakeLauncher struct {
	launched []string
	err      error
}

func (f *fakeLauncher) Launch(e *desktop.Entry, action string) error {
	if f.err != nil {
		return f.err
	}
	f.launched = append(f.launched, e.Path+"#"+action)
	return nil
}

type harness struct {
	c        *Controller
	req      *fakeRequester
	view     *fakeView
	launcher *fakeLauncher
	cache    *history.Cache
	ctx      context.Context
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store, err := history.NewFileStore(filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, err)
	cache, err := history.NewCache(store, 16)
	require.NoError(t, err)

	plugins := []plugin.Plugin{
		{Name: "find", Help: "find "},
		{Name: "run", Help: "run ", History: true, Icon: &protocol.IconSource{Name: "utilities-terminal"}},
	}
	resolver := mode.NewResolver(plugins, []mode.WebRule{{Matches: []string{"ddg"}}})

	h := &harness{
		req:      &fakeRequester{},
		view:     &fakeView{},
		launcher: &fakeLauncher{},
		cache:    cache,
		ctx:      context.Background(),
	}
	h.c = NewController(Options{ExitUnfocused: true, MaxResults: 10}, resolver, h.req, cache, h.view, h.launcher)
	h.c.loadEntry = func(path string) (*desktop.Entry, error) {
		if path == "/missing.desktop" {
			return nil, errors.New("no such file")
		}
		return &desktop.Entry{Path: path, Name: filepath.Base(path), Exec: "true", Icon: "app"}, nil
	}
	return h
}

// ui delivers evt the way a window that has applied every edit would.
func (h *harness) ui(evt UIEvent) (int, bool) {
	if evt.Kind == InputChanged {
		evt.Seq = h.view.applied()
	}
	return h.c.handleUI(h.ctx, evt)
}

func (h *harness) respond(resp protocol.Response) (int, bool) {
	return h.c.handleBackend(h.ctx, backend.Event{Response: &resp})
}

func (h *harness) update(names ...string) (int, bool) {
	results := make([]protocol.SearchResult, len(names))
	for i, n := range names {
		results[i] = protocol.SearchResult{ID: uint32(i), Name: n}
	}
	return h.respond(protocol.Response{Kind: protocol.ResponseUpdate, Update: results})
}

func TestTypingSendsSearchAndRendersUpdate(t *testing.T) {
	h := newHarness(t)

	h.ui(UIEvent{Kind: InputChanged, Text: "fire"})
	assert.Equal(t, []protocol.Request{protocol.Search("fire")}, h.req.take())

	h.update("Firefox", "Firewall")
	snap := h.view.last()
	require.Len(t, snap.Entries, 2)
	assert.Equal(t, "Firefox", snap.Entries[0].Title())
	assert.Equal(t, 0, snap.Selected)
	assert.Equal(t, "fire", snap.Input)

	h.ui(UIEvent{Kind: MoveDown})
	h.ui(UIEvent{Kind: MoveDown})
	assert.Equal(t, 1, h.view.last().Selected)

	h.ui(UIEvent{Kind: Execute})
	assert.Equal(t, []protocol.Request{protocol.Activate(1)}, h.req.take())
}

func TestEmptyInputBrowsesHistoryWithoutSearch(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.cache.RecordUse(history.DesktopEntries, "/apps/gimp.desktop", history.Entry{Path: "/apps/gimp.desktop", Name: "GIMP"}))

	h.c.setInput(h.ctx, "", false)
	assert.Empty(t, h.req.take())

	snap := h.view.last()
	require.Len(t, snap.Entries, 1)
	assert.Equal(t, EntryDesktopHistory, snap.Entries[0].Kind)
	assert.Equal(t, "GIMP", snap.Entries[0].Title())
	assert.Equal(t, -1, snap.Selected)

	// Reset in history browsing does nothing
	code, done := h.ui(UIEvent{Kind: Execute})
	assert.False(t, done)
	assert.Zero(t, code)

	h.ui(UIEvent{Kind: MoveDown})
	assert.Equal(t, 0, h.view.last().Selected)

	code, done = h.ui(UIEvent{Kind: Execute})
	assert.True(t, done)
	assert.Equal(t, ExitOK, code)
	assert.Equal(t, []string{"/apps/gimp.desktop#"}, h.launcher.launched)
	assert.Empty(t, h.req.take(), "history browsing launches without the backend")
	assert.Equal(t, 1, h.cache.Get(history.DesktopEntries)[0].Weight)
}

func TestLatchActivatesInsteadOfRendering(t *testing.T) {
	h := newHarness(t)
	for _, q := range []string{"htop", "make test", "go vet ./..."} {
		require.NoError(t, h.cache.RecordUse("run", q, history.Entry{Query: q}))
	}

	h.ui(UIEvent{Kind: InputChanged, Text: "run "})
	assert.Equal(t, []string{""}, h.view.inputs, "modifier is stripped from the input box")
	assert.Equal(t, []protocol.Request{protocol.Search("run ")}, h.req.take())
	require.Len(t, h.view.last().Entries, 3)

	h.ui(UIEvent{Kind: MoveDown})
	h.ui(UIEvent{Kind: MoveDown})
	h.ui(UIEvent{Kind: MoveDown})
	assert.Equal(t, 2, h.view.last().Selected)

	h.ui(UIEvent{Kind: Execute})
	sent := h.req.take()
	require.Equal(t, []protocol.Request{protocol.Search("run go vet ./...")}, sent, "search must precede any activate")

	frames := len(h.view.frames)
	h.update("a", "b", "c", "d", "e")
	assert.Equal(t, []protocol.Request{protocol.Activate(0)}, h.req.take())
	assert.Len(t, h.view.frames, frames, "latched update must not render")

	// the latch is one shot
	h.update("a")
	assert.Empty(t, h.req.take())
	assert.Len(t, h.view.frames, frames+1)

	top := h.cache.Get("run")[0]
	assert.Equal(t, "go vet ./...", top.Query)
	assert.Equal(t, 1, top.Weight)
}

func TestTypingBeforeEditLandsIsNotDoubled(t *testing.T) {
	h := newHarness(t)

	h.ui(UIEvent{Kind: InputChanged, Text: "run "})
	assert.Equal(t, []protocol.Request{protocol.Search("run ")}, h.req.take())
	require.Len(t, h.view.edits, 1)
	edit := h.view.edits[0]
	assert.Equal(t, InputEdit{Text: "", Replaces: "run ", Seq: 1}, edit)

	// "u" reaches the entry before the clear is applied
	h.c.handleUI(h.ctx, UIEvent{Kind: InputChanged, Text: "run u", Seq: 0})
	assert.Empty(t, h.req.take(), "text read before the edit is stale")

	// the window keeps the keystroke when the edit lands and reports it
	text, typed := edit.Apply("run u")
	require.True(t, typed)
	assert.Equal(t, "u", text)
	h.c.handleUI(h.ctx, UIEvent{Kind: InputChanged, Text: text, Seq: edit.Seq})
	assert.Equal(t, []protocol.Request{protocol.Search("run u")}, h.req.take())
	assert.Equal(t, "run ", h.c.modifier)
	assert.Equal(t, "u", h.c.display)
	assert.Len(t, h.view.edits, 1)
}

func TestInputEditApply(t *testing.T) {
	tests := []struct {
		name    string
		edit    InputEdit
		current string
		want    string
		typed   bool
	}{
		{"nothing typed", InputEdit{Text: "", Replaces: "run "}, "run ", "", false},
		{"typed after", InputEdit{Text: "", Replaces: "run "}, "run ls", "ls", true},
		{"edited elsewhere", InputEdit{Text: "", Replaces: "run "}, "ru", "", false},
		{"fill replaces all", InputEdit{Text: "Documents/"}, "doc", "Documents/", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, typed := tc.edit.Apply(tc.current)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.typed, typed)
		})
	}
}

func TestEscapeExitsWhileBackendStalls(t *testing.T) {
	h := newHarness(t)
	stalled := &blockingRequester{}
	h.c.backend = stalled
	h.c.opts.SendTimeout = 20 * time.Millisecond

	h.ui(UIEvent{Kind: InputChanged, Text: "fire"})

	start := time.Now()
	code, done := h.ui(UIEvent{Kind: Escape})
	assert.True(t, done)
	assert.Equal(t, ExitOK, code)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 2, stalled.attempts)
}

func TestPluginHistoryResetActivatesLiveQuery(t *testing.T) {
	h := newHarness(t)

	h.ui(UIEvent{Kind: InputChanged, Text: "run "})
	h.ui(UIEvent{Kind: InputChanged, Text: "uptime"})
	assert.Equal(t, []protocol.Request{protocol.Search("run "), protocol.Search("run uptime")}, h.req.take())

	// nothing to activate yet
	h.ui(UIEvent{Kind: Execute})
	assert.Empty(t, h.req.take())

	h.update("run uptime")
	h.ui(UIEvent{Kind: Execute})
	assert.Equal(t, []protocol.Request{protocol.Activate(0)}, h.req.take())

	entries := h.cache.Get("run")
	require.Len(t, entries, 1)
	assert.Equal(t, "uptime", entries[0].Query)
	assert.Equal(t, "utilities-terminal", entries[0].Icon)
}

func TestWebHistoryReSearchUsesKind(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.cache.RecordUse(history.WebCollection("ddg"), "golang", history.Entry{Query: "golang", Kind: "ddg"}))

	h.ui(UIEvent{Kind: InputChanged, Text: "ddg "})
	assert.Equal(t, []protocol.Request{protocol.Search("ddg ")}, h.req.take())

	snap := h.view.last()
	require.Len(t, snap.Entries, 1)
	assert.Equal(t, EntryWebHistory, snap.Entries[0].Kind)
	assert.Equal(t, "ddg", snap.ModeLabel)

	h.ui(UIEvent{Kind: MoveDown})
	h.ui(UIEvent{Kind: Execute})
	assert.Equal(t, []protocol.Request{protocol.Search("ddg golang")}, h.req.take())
}

func TestTypingContinuesInsidePluginMode(t *testing.T) {
	h := newHarness(t)

	h.ui(UIEvent{Kind: InputChanged, Text: "find "})
	h.ui(UIEvent{Kind: InputChanged, Text: "shopping list"})
	assert.Equal(t, []protocol.Request{protocol.Search("find "), protocol.Search("find shopping list")}, h.req.take())
	assert.Equal(t, "find ", h.view.last().ModeLabel)

	// backspacing to empty leaves the plugin
	h.ui(UIEvent{Kind: InputChanged, Text: ""})
	assert.Empty(t, h.req.take())
	assert.Equal(t, "", h.view.last().ModeLabel)
}

func TestFillReplacesInput(t *testing.T) {
	h := newHarness(t)

	h.ui(UIEvent{Kind: InputChanged, Text: "find "})
	h.ui(UIEvent{Kind: InputChanged, Text: "doc"})
	h.update("Documents")
	h.req.take()

	h.ui(UIEvent{Kind: Complete})
	assert.Equal(t, []protocol.Request{protocol.Complete(0)}, h.req.take())

	h.respond(protocol.Response{Kind: protocol.ResponseFill, Fill: "find Documents/"})
	assert.Equal(t, "Documents/", h.view.inputs[len(h.view.inputs)-1])
	assert.Equal(t, []protocol.Request{protocol.Search("find Documents/")}, h.req.take())
}

func TestUpdateClampsSelection(t *testing.T) {
	h := newHarness(t)

	h.ui(UIEvent{Kind: InputChanged, Text: "a"})
	h.update("1", "2", "3", "4")
	for i := 0; i < 3; i++ {
		h.ui(UIEvent{Kind: MoveDown})
	}
	assert.Equal(t, 3, h.view.last().Selected)

	h.update("1", "2")
	assert.Equal(t, 1, h.view.last().Selected)

	h.update()
	assert.Equal(t, -1, h.view.last().Selected)
	h.req.take()
	h.ui(UIEvent{Kind: Execute})
	assert.Empty(t, h.req.take(), "no results means nothing to activate")
}

func TestExecuteRow(t *testing.T) {
	h := newHarness(t)

	h.ui(UIEvent{Kind: InputChanged, Text: "a"})
	h.update("1", "2", "3")
	h.req.take()

	h.ui(UIEvent{Kind: ExecuteRow, Index: 2})
	assert.Equal(t, []protocol.Request{protocol.Activate(2)}, h.req.take())

	h.ui(UIEvent{Kind: ExecuteRow, Index: 7})
	assert.Empty(t, h.req.take())
}

func TestDesktopEntryResponse(t *testing.T) {
	h := newHarness(t)

	action := "new-window"
	code, done := h.respond(protocol.Response{
		Kind:         protocol.ResponseDesktopEntry,
		DesktopEntry: &protocol.DesktopEntry{Path: "/apps/firefox.desktop", ActionName: &action},
	})
	assert.True(t, done)
	assert.Equal(t, ExitOK, code)
	assert.Equal(t, []string{"/apps/firefox.desktop#new-window"}, h.launcher.launched)

	entries := h.cache.Get(history.DesktopEntries)
	require.Len(t, entries, 1)
	assert.Equal(t, "firefox.desktop", entries[0].Name)

	// an unreadable entry is skipped and the session continues
	_, done = h.respond(protocol.Response{
		Kind:         protocol.ResponseDesktopEntry,
		DesktopEntry: &protocol.DesktopEntry{Path: "/missing.desktop"},
	})
	assert.False(t, done)
}

func TestExitPaths(t *testing.T) {
	h := newHarness(t)

	code, done := h.respond(protocol.Response{Kind: protocol.ResponseClose})
	assert.True(t, done)
	assert.Equal(t, ExitOK, code)

	code, done = h.ui(UIEvent{Kind: Escape})
	assert.True(t, done)
	assert.Equal(t, ExitOK, code)
	assert.Equal(t, []protocol.Request{protocol.Exit()}, h.req.take())

	code, done = h.ui(UIEvent{Kind: FocusLost})
	assert.True(t, done)
	assert.Equal(t, ExitOK, code)

	h.c.opts.ExitUnfocused = false
	_, done = h.ui(UIEvent{Kind: FocusLost})
	assert.False(t, done)

	_, done = h.respond(protocol.Response{Kind: protocol.ResponseContext, Context: &protocol.ContextResponse{}})
	assert.False(t, done)

	_, done = h.c.handleBackend(h.ctx, backend.Event{Err: &backend.ProtocolError{Line: "x", Err: errors.New("bad")}})
	assert.False(t, done, "protocol errors are skipped")

	code, done = h.c.handleBackend(h.ctx, backend.Event{Err: backend.ErrBackendClosed})
	assert.True(t, done)
	assert.Equal(t, ExitFatal, code)
}

func TestRunLoop(t *testing.T) {
	h := newHarness(t)
	plugins := []plugin.Plugin{{Name: "files", Regex: regexp.MustCompile(`^(/|~)`)}}
	h.c.resolver = mode.NewResolver(plugins, nil)

	ui := make(chan UIEvent, 4)
	events := make(chan backend.Event, 4)

	done := make(chan int, 1)
	go func() {
		done <- h.c.Run(h.ctx, "~/", ui, events)
	}()

	events <- backend.Event{Response: &protocol.Response{Kind: protocol.ResponseClose}}

	select {
	case code := <-done:
		assert.Equal(t, ExitOK, code)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}

	assert.Equal(t, []protocol.Request{protocol.Search("~/")}, h.req.sent)
	assert.Equal(t, []InputEdit{{Text: "/", Seq: 1}}, h.view.edits)
}

func TestRunExitsFatalWhenBackendStreamEnds(t *testing.T) {
	h := newHarness(t)

	events := make(chan backend.Event)
	close(events)

	assert.Equal(t, ExitFatal, h.c.Run(h.ctx, "", make(chan UIEvent), events))
}
