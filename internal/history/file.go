package history

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

type fileRecord struct {
	Key   string `json:"key"`
	Entry Entry  `json:"entry"`
}

// FileStore keeps every collection in one JSON file. Records are kept in
// insertion order and the whole file is rewritten on each insert.
type FileStore struct {
	collections map[string][]fileRecord
	mu          sync.RWMutex
	file        string
}

// NewFileStore loads the history file at path. A missing file starts an
// empty store; an unreadable one is logged and also starts empty.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	store := &FileStore{
		collections: make(map[string][]fileRecord),
		file:        path,
	}

	if err := store.load(); err != nil {
		log.Printf("[HISTORY] Failed to load history file: %v", err)
	}

	return store, nil
}

func (f *FileStore) Insert(collection, key string, entry Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	records := f.collections[collection]
	replaced := false
	for i := range records {
		if records[i].Key == key {
			records[i].Entry = entry
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, fileRecord{Key: key, Entry: entry})
	}
	f.collections[collection] = records

	return f.save()
}

func (f *FileStore) GetByKey(collection, key string) (*Entry, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, r := range f.collections[collection] {
		if r.Key == key {
			e := r.Entry
			return &e, nil
		}
	}
	return nil, nil
}

func (f *FileStore) GetAll(collection string) ([]Entry, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	records := f.collections[collection]
	entries := make([]Entry, 0, len(records))
	for _, r := range records {
		entries = append(entries, r.Entry)
	}
	return entries, nil
}

func (f *FileStore) Close() error {
	return nil
}

func (f *FileStore) load() error {
	data, err := os.ReadFile(f.file)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("[HISTORY] No existing history file, starting fresh")
			return nil
		}
		return err
	}

	var collections map[string][]fileRecord
	if err := json.Unmarshal(data, &collections); err != nil {
		return fmt.Errorf("failed to unmarshal history: %w", err)
	}
	if collections == nil {
		collections = make(map[string][]fileRecord)
	}

	f.mu.Lock()
	f.collections = collections
	f.mu.Unlock()

	log.Printf("[HISTORY] Loaded %d history collections", len(collections))
	return nil
}

func (f *FileStore) save() error {
	data, err := json.MarshalIndent(f.collections, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	if err := os.WriteFile(f.file, data, 0644); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}

	return nil
}
