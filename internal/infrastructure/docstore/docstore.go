package docstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/preptrack/core/internal/infrastructure/config"
	"github.com/preptrack/core/internal/infrastructure/logger"
)

// Common errors
var (
	// ErrNotFound means no document exists at the given path.
	ErrNotFound = errors.New("document not found")
	// ErrCorrupt means a file exists but is not a readable document.
	ErrCorrupt = errors.New("document is corrupt")
)

// Store owns the active JSON document and serializes all access to it.
// Every mutation is applied in memory first and then persisted as a whole;
// a failed save rolls the in-memory state back, so callers never observe
// state that is not on disk.
type Store struct {
	mu     sync.RWMutex
	cfg    config.StorageConfig
	logger *logger.Logger

	path string
	doc  *Document
}

// sidecar records the last-used document path between runs.
type sidecar struct {
	LastDataFile string `json:"last_data_file"`
}

// Open resolves the active document path (sidecar first, config default
// otherwise), loads the document, and creates an empty well-formed one when
// the file does not exist. A corrupt file refuses to open.
func Open(cfg config.StorageConfig, appLogger *logger.Logger) (*Store, error) {
	s := &Store{
		cfg:    cfg,
		logger: appLogger.WithComponent("docstore"),
		path:   cfg.DataFile,
	}

	if last, err := readSidecar(cfg.SidecarFile); err == nil && last != "" {
		s.path = last
	}

	doc, err := Load(s.path)
	switch {
	case errors.Is(err, ErrNotFound):
		s.logger.Info("No existing document, creating a new one", "path", s.path)
		doc = NewDocument()
		s.doc = doc
		if err := s.saveLocked(); err != nil {
			return nil, fmt.Errorf("failed to create document: %w", err)
		}
	case err != nil:
		return nil, err
	default:
		s.doc = doc
	}

	if err := writeSidecar(cfg.SidecarFile, s.path); err != nil {
		s.logger.Warn("Failed to record active document path", "error", err)
	}

	s.logger.Info("Document opened",
		"path", s.path,
		"topics", len(s.doc.Topics),
		"problems", len(s.doc.Problems),
		"sessions", len(s.doc.Sessions),
	)

	return s, nil
}

// Load reads and validates a document from disk without touching any store
// state.
func Load(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read document %s: %w", path, err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	doc.normalize()

	return &doc, nil
}

// Path returns the active document path.
func (s *Store) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// View runs fn with read access to the document. fn must not retain or
// mutate anything it is handed; copy values out instead.
func (s *Store) View(fn func(*Document)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.doc)
}

// Mutate applies fn to the document and persists the result. If fn fails or
// the save fails, the document is restored to its prior state and the error
// is returned.
func (s *Store) Mutate(fn func(*Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.doc.Clone()
	if err != nil {
		return fmt.Errorf("failed to snapshot document: %w", err)
	}

	if err := fn(s.doc); err != nil {
		s.doc = snapshot
		return err
	}

	if err := s.saveLocked(); err != nil {
		s.doc = snapshot
		return fmt.Errorf("failed to persist document, change rolled back: %w", err)
	}

	return nil
}

// Save flushes the current document to disk.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

// saveLocked writes the document to a temporary file, keeps the previous
// file as <path>.bak, then renames the temporary file into place. Callers
// must hold the write lock.
func (s *Store) saveLocked() error {
	start := time.Now()

	var raw []byte
	var err error
	if s.cfg.PrettyJSON {
		raw, err = json.MarshalIndent(s.doc, "", "  ")
	} else {
		raw, err = json.Marshal(s.doc)
	}
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	// Keep the previous version as the last known-good copy.
	if prev, err := os.ReadFile(s.path); err == nil {
		if err := os.WriteFile(s.path+".bak", prev, 0o644); err != nil {
			os.Remove(tmp)
			return fmt.Errorf("failed to write backup: %w", err)
		}
	}

	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace document: %w", err)
	}

	s.logger.LogDocumentSave(s.path, float64(time.Since(start).Nanoseconds())/1e6, nil)
	return nil
}

// Switch flushes the current document, then makes newPath the active
// document. A missing file becomes a fresh empty document; a corrupt or
// unreadable file leaves the current document active and returns the error.
func (s *Store) Switch(newPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if newPath == s.path {
		return s.saveLocked()
	}

	if err := s.saveLocked(); err != nil {
		return fmt.Errorf("failed to flush current document: %w", err)
	}

	doc, err := Load(newPath)
	if errors.Is(err, ErrNotFound) {
		doc = NewDocument()
	} else if err != nil {
		s.logger.Warn("Refusing to switch document", "path", newPath, "error", err)
		return err
	}

	prevPath, prevDoc := s.path, s.doc
	s.path = newPath
	s.doc = doc

	if err := s.saveLocked(); err != nil {
		s.path, s.doc = prevPath, prevDoc
		return fmt.Errorf("failed to write new document, staying on %s: %w", prevPath, err)
	}

	if err := writeSidecar(s.cfg.SidecarFile, s.path); err != nil {
		s.logger.Warn("Failed to record active document path", "error", err)
	}

	s.logger.Info("Switched active document", "from", prevPath, "to", newPath)
	return nil
}

// HealthCheck verifies the active document is present and readable.
func (s *Store) HealthCheck() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := os.Stat(s.path); err != nil {
		return fmt.Errorf("document health check failed: %w", err)
	}
	return nil
}

// Info returns document statistics for the detailed health endpoint.
func (s *Store) Info() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := map[string]interface{}{
		"path":           s.path,
		"schema_version": s.doc.SchemaVersion,
		"topics":         len(s.doc.Topics),
		"problems":       len(s.doc.Problems),
		"sessions":       len(s.doc.Sessions),
	}

	if st, err := os.Stat(s.path); err == nil {
		info["size_bytes"] = st.Size()
		info["modified_at"] = st.ModTime().UTC().Format(time.RFC3339)
	}

	return info
}

// Close flushes the document a final time.
func (s *Store) Close() error {
	return s.Save()
}

func readSidecar(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	var sc sidecar
	if err := json.Unmarshal(raw, &sc); err != nil {
		return "", err
	}
	return sc.LastDataFile, nil
}

func writeSidecar(path, dataFile string) error {
	raw, err := json.MarshalIndent(sidecar{LastDataFile: dataFile}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
