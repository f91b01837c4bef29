package protocol

import (
	"encoding/json"
	"fmt"
)

// RequestKind identifies a request variant
type RequestKind int

const (
	RequestSearch RequestKind = iota
	RequestActivate
	RequestComplete
	RequestExit
)

func (k RequestKind) String() string {
	switch k {
	case RequestSearch:
		return "Search"
	case RequestActivate:
		return "Activate"
	case RequestComplete:
		return "Complete"
	case RequestExit:
		return "Exit"
	}
	return fmt.Sprintf("RequestKind(%d)", int(k))
}

// Request is a message sent to the backend on its stdin
type Request struct {
	Kind  RequestKind
	Query string
	ID    uint32
}

func Search(query string) Request {
	return Request{Kind: RequestSearch, Query: query}
}

func Activate(id uint32) Request {
	return Request{Kind: RequestActivate, ID: id}
}

func Complete(id uint32) Request {
	return Request{Kind: RequestComplete, ID: id}
}

func Exit() Request {
	return Request{Kind: RequestExit}
}

// MarshalJSON encodes the request as an externally tagged object, or a bare
// string for variants without a payload.
func (r Request) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case RequestSearch:
		return json.Marshal(map[string]string{"Search": r.Query})
	case RequestActivate, RequestComplete:
		return json.Marshal(map[string]uint32{r.Kind.String(): r.ID})
	case RequestExit:
		return json.Marshal(r.Kind.String())
	}
	return nil, fmt.Errorf("unknown request kind %d", int(r.Kind))
}

// UnmarshalJSON is the inverse of MarshalJSON. The launcher never reads
// requests, but fake backends in tests do.
func (r *Request) UnmarshalJSON(data []byte) error {
	var unit string
	if err := json.Unmarshal(data, &unit); err == nil {
		if unit != "Exit" {
			return fmt.Errorf("unknown request %q", unit)
		}
		*r = Exit()
		return nil
	}

	tag, body, err := splitTagged(data)
	if err != nil {
		return err
	}

	switch tag {
	case "Search":
		var q string
		if err := json.Unmarshal(body, &q); err != nil {
			return fmt.Errorf("decode Search: %w", err)
		}
		*r = Search(q)
	case "Activate", "Complete":
		var id uint32
		if err := json.Unmarshal(body, &id); err != nil {
			return fmt.Errorf("decode %s: %w", tag, err)
		}
		if tag == "Activate" {
			*r = Activate(id)
		} else {
			*r = Complete(id)
		}
	default:
		return fmt.Errorf("unknown request %q", tag)
	}
	return nil
}

// EncodeRequest returns the single-line frame for a request, newline included.
func EncodeRequest(r Request) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// splitTagged extracts the single key of an externally tagged enum object.
func splitTagged(data []byte) (string, json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return "", nil, fmt.Errorf("expected tagged object: %w", err)
	}
	if len(obj) != 1 {
		return "", nil, fmt.Errorf("expected exactly one variant tag, got %d", len(obj))
	}
	for tag, body := range obj {
		return tag, body, nil
	}
	return "", nil, fmt.Errorf("empty object")
}
