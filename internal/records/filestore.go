// Package records persists the submitted and accepted identity sets. Each set
// is a mapping from stringified identity to an RFC 3339 timestamp, saved as a
// whole-document overwrite. A missing or corrupt file never fails startup; it
// loads as an empty mapping.
package records

import (
	"bytes"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ollkyy/scoutbot/internal/models"
)

const (
	submittedFile = "submitted_users.json"
	acceptedFile  = "accepted_users.json"
)

// FileStore keeps both mappings in memory and rewrites the backing file on
// every mutation.
type FileStore struct {
	mu        sync.Mutex
	dir       string
	submitted map[models.Identity]time.Time
	accepted  map[models.Identity]time.Time
}

// OpenFileStore loads both sets from dir, creating it if needed. A retention
// of zero keeps submitted entries forever; a positive retention drops
// submitted entries older than that age at load time.
func OpenFileStore(dir string, retention time.Duration) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	s := &FileStore{
		dir:       dir,
		submitted: loadMapping(filepath.Join(dir, submittedFile)),
		accepted:  loadMapping(filepath.Join(dir, acceptedFile)),
	}
	if retention > 0 {
		cutoff := time.Now().Add(-retention)
		for id, at := range s.submitted {
			if at.Before(cutoff) {
				delete(s.submitted, id)
			}
		}
	}
	return s, nil
}

func (s *FileStore) MarkSubmitted(id models.Identity, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitted[id] = at
	return saveMapping(filepath.Join(s.dir, submittedFile), s.submitted)
}

func (s *FileStore) AcceptedAt(id models.Identity) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.accepted[id]
	return at, ok, nil
}

func (s *FileStore) MarkAccepted(id models.Identity, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accepted[id] = at
	return saveMapping(filepath.Join(s.dir, acceptedFile), s.accepted)
}

func (s *FileStore) ListAccepted() (map[models.Identity]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyMapping(s.accepted), nil
}

func (s *FileStore) ListSubmitted() (map[models.Identity]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyMapping(s.submitted), nil
}

func copyMapping(m map[models.Identity]time.Time) map[models.Identity]time.Time {
	out := make(map[models.Identity]time.Time, len(m))
	for id, at := range m {
		out[id] = at
	}
	return out
}

func loadMapping(path string) map[models.Identity]time.Time {
	out := map[models.Identity]time.Time{}
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("records: read %s: %v", path, err)
		}
		return out
	}
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		log.Printf("records: parse %s: %v (starting empty)", path, err)
		return out
	}
	for k, v := range m {
		id, err := models.ParseIdentity(k)
		if err != nil {
			log.Printf("records: skip key %q in %s: %v", k, path, err)
			continue
		}
		at, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			log.Printf("records: skip timestamp %q in %s: %v", v, path, err)
			continue
		}
		out[id] = at
	}
	return out
}

func saveMapping(path string, m map[models.Identity]time.Time) error {
	doc := make(map[string]string, len(m))
	for id, at := range m {
		doc[id.String()] = at.Format(time.RFC3339Nano)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
