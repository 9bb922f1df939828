// Package history keeps a capped, newest-first log of past dictations.
package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

const DefaultMaxEntries = 100

// Entry is one delivered dictation.
type Entry struct {
	ID              string    `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	Text            string    `json:"text"`
	WordCount       int       `json:"word_count"`
	DurationSeconds float64   `json:"duration_seconds"`
	Language        string    `json:"language"`
	Enhanced        bool      `json:"enhanced"`
}

// NewEntry creates an entry with a fresh id.
func NewEntry(text string, d time.Duration, language string, enhanced bool, now time.Time) Entry {
	return Entry{
		ID:              uuid.NewString(),
		Timestamp:       now,
		Text:            text,
		WordCount:       len(strings.Fields(text)),
		DurationSeconds: d.Seconds(),
		Language:        language,
		Enhanced:        enhanced,
	}
}

type document struct {
	Entries       []Entry `json:"entries"`
	MaxEntries    int     `json:"max_entries"`
	StoreFullText bool    `json:"store_full_text"`
}

// History is safe for concurrent use. Every mutation rewrites the file.
type History struct {
	mu   sync.Mutex
	path string
	doc  document
}

// DefaultPath returns history.json next to the settings file.
func DefaultPath(appDir string) string {
	return filepath.Join(appDir, "history.json")
}

// Load reads the history file. A missing file yields an empty history; a
// corrupt one is reported and replaced by an empty history.
func Load(path string) (*History, error) {
	h := &History{path: path, doc: document{MaxEntries: DefaultMaxEntries, StoreFullText: true}}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return h, nil
	}
	if err != nil {
		return h, err
	}
	doc := document{MaxEntries: DefaultMaxEntries, StoreFullText: true}
	if err := json.Unmarshal(b, &doc); err != nil {
		return h, fmt.Errorf("decode %s: %w", path, err)
	}
	if doc.MaxEntries <= 0 {
		doc.MaxEntries = DefaultMaxEntries
	}
	h.doc = doc
	return h, nil
}

// Add inserts e at the front, trimming the oldest entries beyond the cap.
// In privacy mode only the word count is kept.
func (h *History) Add(e Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.doc.StoreFullText {
		e.Text = fmt.Sprintf("[%d words]", e.WordCount)
	}
	h.doc.Entries = append([]Entry{e}, h.doc.Entries...)
	if len(h.doc.Entries) > h.doc.MaxEntries {
		h.doc.Entries = h.doc.Entries[:h.doc.MaxEntries]
	}
	return h.save()
}

// Recent returns up to n of the newest entries.
func (h *History) Recent(n int) []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n <= 0 || n > len(h.doc.Entries) {
		n = len(h.doc.Entries)
	}
	return append([]Entry(nil), h.doc.Entries[:n]...)
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.doc.Entries)
}

// Delete removes the entry with the given id.
func (h *History) Delete(id string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, e := range h.doc.Entries {
		if e.ID == id {
			h.doc.Entries = append(h.doc.Entries[:i], h.doc.Entries[i+1:]...)
			return true, h.save()
		}
	}
	return false, nil
}

func (h *History) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.doc.Entries = nil
	return h.save()
}

// SetPrivacy switches privacy mode. Existing entries are left as they are.
func (h *History) SetPrivacy(storeFullText bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.doc.StoreFullText = storeFullText
	return h.save()
}

func (h *History) save() error {
	if h.path == "" {
		return nil
	}
	doc := h.doc
	if doc.Entries == nil {
		doc.Entries = []Entry{}
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(h.path), 0755); err != nil {
		return err
	}
	tmp := h.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, h.path)
}
