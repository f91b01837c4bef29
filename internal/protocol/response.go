// Package protocol holds the pop-launcher wire types. Every frame is one JSON
// value on its own line; enums use serde's externally tagged layout.
package protocol

import (
	"encoding/json"
	"fmt"
)

// ResponseKind identifies a response variant
type ResponseKind int

const (
	ResponseClose ResponseKind = iota
	ResponseDesktopEntry
	ResponseUpdate
	ResponseFill
	ResponseContext
)

func (k ResponseKind) String() string {
	switch k {
	case ResponseClose:
		return "Close"
	case ResponseDesktopEntry:
		return "DesktopEntry"
	case ResponseUpdate:
		return "Update"
	case ResponseFill:
		return "Fill"
	case ResponseContext:
		return "Context"
	}
	return fmt.Sprintf("ResponseKind(%d)", int(k))
}

// Response is a message read from the backend's stdout. Only the field
// matching Kind is populated.
type Response struct {
	Kind         ResponseKind
	DesktopEntry *DesktopEntry
	Update       []SearchResult
	Fill         string
	Context      *ContextResponse
}

// DesktopEntry asks the front-end to launch a desktop file itself.
type DesktopEntry struct {
	Path          string  `json:"path"`
	GpuPreference string  `json:"gpu_preference,omitempty"`
	ActionName    *string `json:"action_name,omitempty"`
}

// ContextOption is a secondary action offered for a search result.
type ContextOption struct {
	ID   uint32 `json:"id"`
	Name string `json:"name"`
}

type ContextResponse struct {
	ID      uint32          `json:"id"`
	Options []ContextOption `json:"options"`
}

// SearchResult is one row of an Update batch. ID is the index the backend
// expects back in Activate and Complete requests.
type SearchResult struct {
	ID           uint32      `json:"id"`
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	Icon         *IconSource `json:"icon,omitempty"`
	CategoryIcon *IconSource `json:"category_icon,omitempty"`
	Window       *[2]uint32  `json:"window,omitempty"`
}

// IconSource names an icon either by theme name or by mime type.
type IconSource struct {
	Name string
	Mime string
}

func (i IconSource) MarshalJSON() ([]byte, error) {
	if i.Mime != "" {
		return json.Marshal(map[string]string{"Mime": i.Mime})
	}
	return json.Marshal(map[string]string{"Name": i.Name})
}

func (i *IconSource) UnmarshalJSON(data []byte) error {
	tag, body, err := splitTagged(data)
	if err != nil {
		return err
	}
	var value string
	if err := json.Unmarshal(body, &value); err != nil {
		return fmt.Errorf("decode icon %s: %w", tag, err)
	}
	switch tag {
	case "Name":
		*i = IconSource{Name: value}
	case "Mime":
		*i = IconSource{Mime: value}
	default:
		return fmt.Errorf("unknown icon source %q", tag)
	}
	return nil
}

func (r Response) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case ResponseClose:
		return json.Marshal("Close")
	case ResponseDesktopEntry:
		return json.Marshal(map[string]*DesktopEntry{"DesktopEntry": r.DesktopEntry})
	case ResponseUpdate:
		results := r.Update
		if results == nil {
			results = []SearchResult{}
		}
		return json.Marshal(map[string][]SearchResult{"Update": results})
	case ResponseFill:
		return json.Marshal(map[string]string{"Fill": r.Fill})
	case ResponseContext:
		return json.Marshal(map[string]*ContextResponse{"Context": r.Context})
	}
	return nil, fmt.Errorf("unknown response kind %d", int(r.Kind))
}

func (r *Response) UnmarshalJSON(data []byte) error {
	var unit string
	if err := json.Unmarshal(data, &unit); err == nil {
		if unit != "Close" {
			return fmt.Errorf("unknown response %q", unit)
		}
		*r = Response{Kind: ResponseClose}
		return nil
	}

	tag, body, err := splitTagged(data)
	if err != nil {
		return err
	}

	switch tag {
	case "Close":
		*r = Response{Kind: ResponseClose}
	case "DesktopEntry":
		var entry DesktopEntry
		if err := json.Unmarshal(body, &entry); err != nil {
			return fmt.Errorf("decode DesktopEntry: %w", err)
		}
		*r = Response{Kind: ResponseDesktopEntry, DesktopEntry: &entry}
	case "Update":
		var results []SearchResult
		if err := json.Unmarshal(body, &results); err != nil {
			return fmt.Errorf("decode Update: %w", err)
		}
		*r = Response{Kind: ResponseUpdate, Update: results}
	case "Fill":
		var fill string
		if err := json.Unmarshal(body, &fill); err != nil {
			return fmt.Errorf("decode Fill: %w", err)
		}
		*r = Response{Kind: ResponseFill, Fill: fill}
	case "Context":
		var ctx ContextResponse
		if err := json.Unmarshal(body, &ctx); err != nil {
			return fmt.Errorf("decode Context: %w", err)
		}
		*r = Response{Kind: ResponseContext, Context: &ctx}
	default:
		return fmt.Errorf("unknown response %q", tag)
	}
	return nil
}

// DecodeResponse parses one line read from the backend.
func DecodeResponse(line []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}
