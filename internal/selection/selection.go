// Package selection tracks which row of the result list is highlighted and
// whether it points at local history or at the backend's last result batch.
package selection

import (
	"fmt"

	"github.com/chess10kp/poplaunch/internal/mode"
)

// Kind is the selection state.
type Kind int

const (
	// KindReset means no row is highlighted; the input itself is selected.
	KindReset Kind = iota
	// KindHistory points into the locally cached history list.
	KindHistory
	// KindPopLauncher points into the backend's last Update batch.
	KindPopLauncher
)

// Selection is a value; transitions return a new Selection.
type Selection struct {
	Kind  Kind
	Index int
}

func Reset() Selection {
	return Selection{Kind: KindReset}
}

func History(i int) Selection {
	return Selection{Kind: KindHistory, Index: i}
}

func PopLauncher(i int) Selection {
	return Selection{Kind: KindPopLauncher, Index: i}
}

func (s Selection) String() string {
	switch s.Kind {
	case KindReset:
		return "Reset"
	case KindHistory:
		return fmt.Sprintf("History(%d)", s.Index)
	case KindPopLauncher:
		return fmt.Sprintf("PopLauncher(%d)", s.Index)
	}
	return fmt.Sprintf("Selection(%d, %d)", int(s.Kind), s.Index)
}

// OnInputChange is the selection after the input was edited into m. Modes
// that show history start with nothing selected; the others preselect the
// first result of the search that is about to be sent.
func OnInputChange(m mode.ActiveMode) Selection {
	if m.IsWeb() || m.ShowsHistory() {
		return Reset()
	}
	return PopLauncher(0)
}

// Down moves one row down a list of length n. From Reset it enters the
// history list when history is shown and the result list otherwise. Moves
// past the last row are ignored.
func (s Selection) Down(n int, history bool) Selection {
	switch s.Kind {
	case KindReset:
		if n == 0 {
			return s
		}
		if history {
			return History(0)
		}
		return PopLauncher(0)
	case KindHistory, KindPopLauncher:
		if s.Index+1 < n {
			return Selection{Kind: s.Kind, Index: s.Index + 1}
		}
	}
	return s
}

// Up moves one row up. Reset and the first row stay put.
func (s Selection) Up() Selection {
	if s.Kind != KindReset && s.Index > 0 {
		return Selection{Kind: s.Kind, Index: s.Index - 1}
	}
	return s
}

// Clamp pulls the index back inside a list of length n. An emptied history
// list drops back to Reset; PopLauncher(0) stays as the pending first result.
func (s Selection) Clamp(n int) Selection {
	switch s.Kind {
	case KindHistory:
		if n == 0 {
			return Reset()
		}
		if s.Index >= n {
			return History(n - 1)
		}
	case KindPopLauncher:
		if n == 0 {
			return PopLauncher(0)
		}
		if s.Index >= n {
			return PopLauncher(n - 1)
		}
	}
	return s
}
