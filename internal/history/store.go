// Package history persists executed queries and launched desktop entries and
// serves them back ranked by how often they were used.
package history

// DesktopEntries is the collection holding launched desktop files.
const DesktopEntries = "desktop-entries"

// WebCollection names the collection for one web shortcut kind.
func WebCollection(kind string) string {
	return "web:" + kind
}

// Entry is one remembered item. Which fields are set depends on the
// collection: plugin and web collections carry Query, desktop entries
// carry Path and Name.
type Entry struct {
	Query  string `json:"query,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Path   string `json:"path,omitempty"`
	Name   string `json:"name,omitempty"`
	Icon   string `json:"icon,omitempty"`
	Weight int    `json:"weight"`
}

// Label is the text entries are matched and displayed by.
func (e Entry) Label() string {
	if e.Name != "" {
		return e.Name
	}
	return e.Query
}

// Store is the persistent backing of the history cache. GetAll returns
// entries in storage order; ranking is left to the caller.
type Store interface {
	Insert(collection, key string, entry Entry) error
	// GetByKey returns nil when the key is unknown.
	GetByKey(collection, key string) (*Entry, error)
	GetAll(collection string) ([]Entry, error)
	Close() error
}
