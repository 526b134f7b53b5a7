package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// fileValue is the on-disk form of one value. JSON values are embedded
// verbatim so the file stays readable; anything else is base64 encoded.
type fileValue struct {
	JSON  json.RawMessage `json:"json,omitempty"`
	Bytes []byte          `json:"bytes,omitempty"`
}

// localStorage implements Storage using one JSON file on local disk.
// This is suitable for single-instance deployments.
type localStorage struct {
	mu       sync.RWMutex
	filePath string
	data     map[string][]byte
}

// NewLocal creates a file-backed storage area. An existing file is loaded
// eagerly; a corrupt file is reported rather than silently discarded.
func NewLocal(cfg LocalConfig) (Storage, error) {
	if cfg.Path == "" {
		cfg.Path = ".cache/storefront.json"
	}

	s := &localStorage{
		filePath: cfg.Path,
		data:     make(map[string][]byte),
	}

	raw, err := os.ReadFile(cfg.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil // No file yet, not an error
		}
		return nil, fmt.Errorf("failed to read storage file: %w", err)
	}

	if len(raw) == 0 {
		return s, nil
	}

	var stored map[string]fileValue
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("failed to parse storage file: %w", err)
	}
	for k, v := range stored {
		switch {
		case v.JSON != nil:
			s.data[k] = []byte(v.JSON)
		case v.Bytes != nil:
			s.data[k] = v.Bytes
		default:
			s.data[k] = []byte{}
		}
	}

	return s, nil
}

func (s *localStorage) Type() string {
	return TypeLocal
}

func (s *localStorage) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *localStorage) Set(_ context.Context, key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.data[key]
	s.data[key] = v
	if err := s.persistLocked(); err != nil {
		if had {
			s.data[key] = prev
		} else {
			delete(s.data, key)
		}
		return err
	}
	return nil
}

func (s *localStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[key]; !ok {
		return nil
	}
	delete(s.data, key)
	return s.persistLocked()
}

func (s *localStorage) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close is a no-op for local storage; every write is already on disk.
func (s *localStorage) Close() error {
	return nil
}

// persistLocked rewrites the whole file.
func (s *localStorage) persistLocked() error {
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	doc := make(map[string]fileValue, len(s.data))
	for k, v := range s.data {
		if len(v) > 0 && json.Valid(v) {
			doc[k] = fileValue{JSON: v}
			continue
		}
		doc[k] = fileValue{Bytes: v}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal storage: %w", err)
	}

	// Write atomically using temp file + rename
	tmpFile := s.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write storage file: %w", err)
	}
	if err := os.Rename(tmpFile, s.filePath); err != nil {
		os.Remove(tmpFile) // Clean up temp file
		return fmt.Errorf("failed to rename storage file: %w", err)
	}

	return nil
}
