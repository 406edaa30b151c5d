// Package jsonfile stores mode records as one JSON document on disk,
// rewritten in full on every save.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/udisondev/pvpguard/internal/model"
	"github.com/udisondev/pvpguard/internal/storage"
)

// DefaultFileName is the data file name inside the data directory.
const DefaultFileName = "pve_pvp_data.json"

// Storage is a JSON document backend.
type Storage struct {
	path   string
	schema *jsonschema.Schema
}

var _ storage.Backend = (*Storage)(nil)

// New creates a backend writing to path. The parent directory is created
// on first save.
func New(path string) (*Storage, error) {
	if path == "" {
		return nil, fmt.Errorf("empty data file path")
	}
	schema, err := compileSchema()
	if err != nil {
		return nil, err
	}
	return &Storage{path: path, schema: schema}, nil
}

// Path returns the data file path.
func (s *Storage) Path() string { return s.path }

// Load reads and validates the document.
//
// A missing file yields an empty set. A file that fails to parse or
// validate is moved aside to "<path>.corrupt-<unix>" so the next save does
// not destroy it, and storage.ErrCorrupt is returned.
func (s *Storage) Load(_ context.Context) (storage.Records, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return storage.Records{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}

	records, decodeErr := s.decode(data)
	if decodeErr == nil {
		return records, nil
	}

	aside := s.path + ".corrupt-" + strconv.FormatInt(time.Now().Unix(), 10)
	if err := os.Rename(s.path, aside); err != nil {
		slog.Error("moving corrupt data file aside",
			"path", s.path,
			"error", err)
	} else {
		slog.Warn("corrupt data file moved aside", "path", s.path, "backup", aside)
	}

	return nil, fmt.Errorf("%w: %s: %w", storage.ErrCorrupt, s.path, decodeErr)
}

func (s *Storage) decode(data []byte) (storage.Records, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return storage.Records{}, nil
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	if err := s.schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("validating document: %w", err)
	}

	var raw map[string]model.ModeRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding records: %w", err)
	}

	records := make(storage.Records, len(raw))
	for key, rec := range raw {
		id, err := model.ParsePlayerID(key)
		if err != nil {
			return nil, err
		}
		records[id] = rec
	}
	return records, nil
}

// Save writes the complete document atomically (temp file + rename).
func (s *Storage) Save(_ context.Context, all storage.Records, _ []model.PlayerID) error {
	doc := make(map[string]model.ModeRecord, len(all))
	for id, rec := range all {
		doc[id.String()] = rec
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding mode document: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating data dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", s.path, err)
	}
	return nil
}

// Close is a no-op: the file is not held open between saves.
func (s *Storage) Close() error { return nil }
