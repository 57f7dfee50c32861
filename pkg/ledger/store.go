// Package ledger keeps a local history of the records this host signed, so
// they can be listed and re-verified later. Only public material is stored;
// private keys never enter the ledger.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/VeraLlugiqi/information-security-gr7/pkg/signedqr"
	"github.com/VeraLlugiqi/information-security-gr7/pkg/symbol"
)

// Common errors returned by this package.
var (
	ErrEntryNotFound = errors.New("entry not found in ledger")
	ErrDuplicate     = errors.New("record already in ledger")
	ErrEmptyRecord   = errors.New("record is empty")
	ErrCorrupt       = errors.New("ledger file is corrupt")
)

const fileVersion = 1

// Entry is one signed record and the context it was issued in.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	Data      string    `json:"data"`
	Signature string    `json:"signature"`
	PublicKey string    `json:"publicKey"`
	Level     string    `json:"level"`
	Image     string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Fields returns the wire fields of the stored record.
func (e Entry) Fields() signedqr.RawFields {
	return signedqr.RawFields{Data: e.Data, Signature: e.Signature, PublicKey: e.PublicKey}
}

// Record rebuilds the stored record. It fails if the file was edited into
// something that is no longer a record.
func (e Entry) Record() (signedqr.SignedRecord, error) {
	return signedqr.NewRecord(e.Fields())
}

type ledgerFile struct {
	Version int     `json:"version"`
	Entries []Entry `json:"entries"`
}

// Store is a JSON file backed ledger. Every mutation is written through to
// disk. A Store is safe for concurrent use within one process.
type Store struct {
	path    string
	mu      sync.RWMutex
	entries []Entry
	now     func() time.Time
}

// DefaultPath returns ~/.signedqr/ledger.json.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".signedqr", "ledger.json")
	}
	return filepath.Join(home, ".signedqr", "ledger.json")
}

// Open loads the ledger at path, or starts an empty one if the file does
// not exist yet. An empty path selects DefaultPath.
func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath()
	}
	s := &Store{path: path, now: time.Now}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}

	var f ledgerFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if f.Version != fileVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, f.Version)
	}
	s.entries = f.Entries
	return s, nil
}

// Path returns the ledger file location.
func (s *Store) Path() string {
	return s.path
}

// Add records rec as issued at level, with the image it was rendered to.
func (s *Store) Add(rec signedqr.SignedRecord, level symbol.Level, image string) (Entry, error) {
	if rec.IsZero() {
		return Entry{}, ErrEmptyRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	wire := signedqr.ToTransportText(rec)
	for _, e := range s.entries {
		if signedqr.Serialize(e.Fields()) == wire {
			return Entry{}, fmt.Errorf("%w: %s", ErrDuplicate, e.ID)
		}
	}

	entry := Entry{
		ID:        uuid.New(),
		Data:      rec.Data(),
		Signature: rec.Signature(),
		PublicKey: rec.PublicKey(),
		Level:     level.String(),
		Image:     image,
		CreatedAt: s.now().UTC(),
	}
	next := append(append([]Entry(nil), s.entries...), entry)
	if err := s.save(next); err != nil {
		return Entry{}, err
	}
	s.entries = next
	return entry, nil
}

// Get retrieves an entry by ID.
func (s *Store) Get(id uuid.UUID) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return Entry{}, ErrEntryNotFound
}

// List returns all entries, oldest first.
func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]Entry(nil), s.entries...)
}

// Count returns the number of entries.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

// Remove deletes an entry by ID.
func (s *Store) Remove(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.entries {
		if e.ID != id {
			continue
		}
		next := make([]Entry, 0, len(s.entries)-1)
		next = append(next, s.entries[:i]...)
		next = append(next, s.entries[i+1:]...)
		if err := s.save(next); err != nil {
			return err
		}
		s.entries = next
		return nil
	}
	return ErrEntryNotFound
}

// Clear deletes every entry and returns how many there were.
func (s *Store) Clear() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.entries)
	if err := s.save(nil); err != nil {
		return 0, err
	}
	s.entries = nil
	return n, nil
}

// save replaces the ledger file atomically. Callers hold s.mu.
func (s *Store) save(entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(ledgerFile{Version: fileVersion, Entries: entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".ledger-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace ledger: %w", err)
	}
	return nil
}
