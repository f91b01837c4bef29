package launcher

import "strings"

// UIEventKind identifies a user interface event.
type UIEventKind int

const (
	InputChanged UIEventKind = iota
	MoveUp
	MoveDown
	Execute
	// ExecuteRow selects Index and executes it, as a mouse click does.
	ExecuteRow
	Complete
	Escape
	FocusLost
)

func (k UIEventKind) String() string {
	switch k {
	case InputChanged:
		return "InputChanged"
	case MoveUp:
		return "MoveUp"
	case MoveDown:
		return "MoveDown"
	case Execute:
		return "Execute"
	case ExecuteRow:
		return "ExecuteRow"
	case Complete:
		return "Complete"
	case Escape:
		return "Escape"
	case FocusLost:
		return "FocusLost"
	}
	return "Unknown"
}

// UIEvent is sent by the view to the controller. Text is set for
// InputChanged and Index for ExecuteRow. Seq is the last InputEdit the view
// had applied when the text was read.
type UIEvent struct {
	Kind  UIEventKind
	Text  string
	Index int
	Seq   uint64
}

// InputEdit asks the view to replace the input text. Edits are numbered so
// the controller can tell typing that happened before an edit landed from
// typing after it.
type InputEdit struct {
	Text string
	// Replaces is the input the controller resolved when it made the edit.
	// Text typed after it is carried over. Empty means replace everything.
	Replaces string
	Seq      uint64
}

// Apply returns the text the input box should hold when current is its
// text at the moment the edit lands. typed reports whether keystrokes were
// carried over, in which case the view must report the result as a new
// InputChanged.
func (e InputEdit) Apply(current string) (text string, typed bool) {
	if e.Replaces == "" || len(current) <= len(e.Replaces) || !strings.HasPrefix(current, e.Replaces) {
		return e.Text, false
	}
	return e.Text + current[len(e.Replaces):], true
}
