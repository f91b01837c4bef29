package core

import (
	"fmt"
	"log"
	"strings"
	"unsafe"

	"github.com/chess10kp/poplaunch/internal/config"
	"github.com/chess10kp/poplaunch/internal/launcher"
	"github.com/chess10kp/poplaunch/internal/layer"
	"github.com/chess10kp/poplaunch/internal/protocol"
	"github.com/gotk3/gotk3/gdk"
	"github.com/gotk3/gotk3/glib"
	"github.com/gotk3/gotk3/gtk"
)

// Window is the GTK launcher window. Render and SetInput may be called from
// any goroutine; the work is posted onto the GTK main loop. All other
// methods run on the main loop.
type Window struct {
	window    *gtk.Window
	entry     *gtk.Entry
	modeIcon  *gtk.Image
	modeLabel *gtk.Label
	list      *gtk.ListBox
	scrolled  *gtk.ScrolledWindow

	keys  keymap
	icons *iconLoader

	events *launcher.EventQueue

	// suppress is set while the input text is replaced programmatically
	// so the "changed" signal is not reported back as typing.
	suppress bool
	// appliedSeq is the last input edit applied to the entry.
	appliedSeq uint64
}

// NewWindow builds the launcher window. It must be called after gtk.Init.
func NewWindow(cfg *config.Config, scale float64) (*Window, error) {
	keys, err := newKeymap(cfg.Keys)
	if err != nil {
		return nil, fmt.Errorf("invalid key bindings: %w", err)
	}

	window, err := gtk.WindowNew(gtk.WINDOW_TOPLEVEL)
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	window.SetTitle(cfg.AppName)
	window.SetDecorated(false)
	window.SetSkipTaskbarHint(true)
	window.SetSkipPagerHint(true)
	window.SetName("launcher-window")
	window.SetDefaultSize(scaled(cfg.Window.Width, scale), scaled(cfg.Window.Height, scale))

	box, err := gtk.BoxNew(gtk.ORIENTATION_VERTICAL, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create box: %w", err)
	}
	window.Add(box)

	header, err := gtk.BoxNew(gtk.ORIENTATION_HORIZONTAL, scaled(6, scale))
	if err != nil {
		return nil, fmt.Errorf("failed to create header: %w", err)
	}
	header.SetName("launcher-header")
	box.PackStart(header, false, false, 0)

	modeIcon, err := gtk.ImageNew()
	if err != nil {
		return nil, fmt.Errorf("failed to create mode icon: %w", err)
	}
	modeIcon.SetPixelSize(scaled(cfg.Styling.IconSize*3/4, scale))
	header.PackStart(modeIcon, false, false, 0)

	modeLabel, err := gtk.LabelNew("")
	if err != nil {
		return nil, fmt.Errorf("failed to create mode label: %w", err)
	}
	modeLabel.SetName("mode-label")
	header.PackStart(modeLabel, false, false, 0)

	entry, err := gtk.EntryNew()
	if err != nil {
		return nil, fmt.Errorf("failed to create search entry: %w", err)
	}
	entry.SetName("launcher-entry")
	entry.SetPlaceholderText("Search applications, or type a plugin prefix...")
	header.PackStart(entry, true, true, 0)

	scrolled, err := gtk.ScrolledWindowNew(nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create scrolled window: %w", err)
	}
	scrolled.SetPolicy(gtk.POLICY_NEVER, gtk.POLICY_AUTOMATIC)
	scrolled.SetVExpand(true)
	box.PackStart(scrolled, true, true, 0)

	list, err := gtk.ListBoxNew()
	if err != nil {
		return nil, fmt.Errorf("failed to create result list: %w", err)
	}
	list.SetName("result-list")
	list.SetSelectionMode(gtk.SELECTION_SINGLE)
	list.SetCanFocus(false)
	scrolled.Add(list)

	icons, err := newIconLoader(scaled(cfg.Styling.IconSize, scale))
	if err != nil {
		return nil, err
	}

	w := &Window{
		window:    window,
		entry:     entry,
		modeIcon:  modeIcon,
		modeLabel: modeLabel,
		list:      list,
		scrolled:  scrolled,
		keys:      keys,
		icons:     icons,
		events:    launcher.NewEventQueue(),
	}

	w.placeWindow(cfg.Window)
	w.setupSignals()
	return w, nil
}

func (w *Window) placeWindow(cfg config.WindowConfig) {
	if cfg.LayerShell && layer.Supported() {
		log.Printf("[WINDOW] Using layer shell, anchor=%s", cfg.Anchor)
		layer.Configure(unsafe.Pointer(w.window.Native()), layer.Options{
			Namespace: "poplaunch",
			AnchorTop: cfg.Anchor == "top",
			MarginTop: cfg.MarginTop,
		})
		return
	}

	if cfg.Anchor == "top" {
		w.window.SetPosition(gtk.WIN_POS_NONE)
		w.window.Move(0, cfg.MarginTop)
	} else {
		w.window.SetPosition(gtk.WIN_POS_CENTER)
	}
	w.window.SetKeepAbove(true)
}

func (w *Window) setupSignals() {
	w.entry.Connect("changed", func() {
		if w.suppress {
			return
		}
		text, _ := w.entry.GetText()
		w.emit(launcher.UIEvent{Kind: launcher.InputChanged, Text: text, Seq: w.appliedSeq})
	})

	w.entry.Connect("key-press-event", func(entry *gtk.Entry, event *gdk.Event) bool {
		return w.onKeyPress(gdk.EventKeyNewFromEvent(event))
	})

	w.list.Connect("row-activated", func(list *gtk.ListBox, row *gtk.ListBoxRow) {
		w.emit(launcher.UIEvent{Kind: launcher.ExecuteRow, Index: row.GetIndex()})
	})

	w.window.Connect("focus-out-event", func(window *gtk.Window, event *gdk.Event) bool {
		w.emit(launcher.UIEvent{Kind: launcher.FocusLost})
		return false
	})

	w.window.Connect("destroy", func() {
		w.emit(launcher.UIEvent{Kind: launcher.Escape})
	})
}

func (w *Window) onKeyPress(ev *gdk.EventKey) bool {
	if kind, ok := w.keys.lookup(ev.KeyVal(), ev.State()); ok {
		w.emit(launcher.UIEvent{Kind: kind})
		return true
	}

	// GTK reports no change for Backspace in an empty box, but it still
	// means "leave the current mode".
	if ev.KeyVal() == gdk.KEY_BackSpace {
		if text, _ := w.entry.GetText(); text == "" {
			w.emit(launcher.UIEvent{Kind: launcher.InputChanged, Seq: w.appliedSeq})
			return true
		}
	}
	return false
}

// emit hands an event to the controller without blocking the main loop.
func (w *Window) emit(evt launcher.UIEvent) {
	w.events.Push(evt)
}

// Events is the stream of user interface events for the controller.
func (w *Window) Events() <-chan launcher.UIEvent {
	return w.events.Events()
}

func (w *Window) Show() {
	w.window.ShowAll()
	w.window.Present()
	w.entry.GrabFocus()
}

// Close stops event delivery. The GTK widgets are released when the main
// loop exits.
func (w *Window) Close() {
	w.events.Close()
}

func (w *Window) SetInput(edit launcher.InputEdit) {
	glib.IdleAdd(func() {
		w.applyInput(edit)
	})
}

// applyInput replaces the entry text. Keystrokes that reached the entry
// after the controller read it are kept and reported under the new edit.
func (w *Window) applyInput(edit launcher.InputEdit) {
	current, _ := w.entry.GetText()
	text, typed := edit.Apply(current)

	w.appliedSeq = edit.Seq
	w.suppress = true
	w.entry.SetText(text)
	w.entry.SetPosition(-1)
	w.suppress = false

	if typed {
		w.emit(launcher.UIEvent{Kind: launcher.InputChanged, Text: text, Seq: edit.Seq})
	}
}

func (w *Window) Render(s launcher.Snapshot) {
	glib.IdleAdd(func() {
		w.render(s)
	})
}

func (w *Window) render(s launcher.Snapshot) {
	w.modeLabel.SetText(s.ModeLabel)
	w.modeLabel.SetVisible(s.ModeLabel != "")
	if name := iconName(s.ModeIcon); name != "" {
		w.modeIcon.SetFromIconName(name, gtk.ICON_SIZE_BUTTON)
		w.modeIcon.Show()
	} else {
		w.modeIcon.Hide()
	}

	var stale []*gtk.ListBoxRow
	w.list.GetChildren().Foreach(func(child interface{}) {
		if row, ok := child.(*gtk.ListBoxRow); ok {
			stale = append(stale, row)
		}
	})
	for _, row := range stale {
		w.list.Remove(row)
	}

	for i, entry := range s.Entries {
		row, err := w.newRow(entry)
		if err != nil {
			log.Printf("[WINDOW] Failed to create row %d: %v", i, err)
			continue
		}
		w.list.Add(row)
	}

	if s.Selected < 0 {
		w.list.UnselectAll()
		return
	}
	if row := w.list.GetRowAtIndex(s.Selected); row != nil {
		w.list.SelectRow(row)
	}
}

func (w *Window) newRow(entry launcher.DisplayEntry) (*gtk.ListBoxRow, error) {
	row, err := gtk.ListBoxRowNew()
	if err != nil {
		return nil, err
	}
	row.SetCanFocus(false)
	if style, err := row.GetStyleContext(); err == nil {
		style.AddClass("list-row")
	}

	box, err := gtk.BoxNew(gtk.ORIENTATION_HORIZONTAL, 8)
	if err != nil {
		return nil, err
	}

	if pixbuf := w.icons.load(iconName(entry.Icon())); pixbuf != nil {
		icon, err := gtk.ImageNewFromPixbuf(pixbuf)
		if err != nil {
			return nil, err
		}
		box.PackStart(icon, false, false, 0)
	}

	text, err := gtk.BoxNew(gtk.ORIENTATION_VERTICAL, 2)
	if err != nil {
		return nil, err
	}

	title, err := gtk.LabelNew(entry.Title())
	if err != nil {
		return nil, err
	}
	title.SetHAlign(gtk.ALIGN_START)
	text.PackStart(title, false, false, 0)

	if desc := entry.Description(); desc != "" {
		sub, err := gtk.LabelNew(desc)
		if err != nil {
			return nil, err
		}
		sub.SetHAlign(gtk.ALIGN_START)
		if style, err := sub.GetStyleContext(); err == nil {
			style.AddClass("row-description")
		}
		text.PackStart(sub, false, false, 0)
	}

	box.PackStart(text, true, true, 0)
	row.Add(box)
	row.ShowAll()
	return row, nil
}

// iconName turns an icon source into a theme icon name. Mime types map to
// the freedesktop naming scheme, "text/html" becoming "text-html".
func iconName(src *protocol.IconSource) string {
	if src == nil {
		return ""
	}
	if src.Name != "" {
		return src.Name
	}
	return strings.ReplaceAll(src.Mime, "/", "-")
}
