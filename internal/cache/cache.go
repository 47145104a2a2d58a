// Package cache persists the last good revision record so builds outside a
// working copy (release tarballs, exported trees) still get metadata.
package cache

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sergeknystautas/revstamp/internal/output"
	"github.com/sergeknystautas/revstamp/internal/record"
)

// FileName is the cache file created at the working-copy root.
const FileName = "autorevision.cache"

const header = "# Generated by revstamp. Edits are overwritten on the next run inside a working copy.\n"

// DefaultPath returns the cache location for a working copy root, or the
// current directory when there is none.
func DefaultPath(root string) string {
	if root == "" {
		root = "."
	}
	return filepath.Join(root, FileName)
}

// Load reads the cache at path. A missing, unreadable or corrupt cache yields
// nil; only the last two are logged.
func Load(path string, logger *zap.Logger) *record.Record {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("cache")

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug("no cache", zap.String("path", path))
		} else {
			log.Warn("cannot read cache, ignoring it", zap.String("path", path), zap.Error(err))
		}
		return nil
	}

	r, err := Decode(data)
	if err != nil {
		log.Warn("corrupt cache, ignoring it", zap.String("path", path), zap.Error(err))
		return nil
	}
	log.Debug("loaded cache", zap.String("path", path), zap.String("vcs", string(r.Type)))
	return &r
}

// Decode parses a cache document.
func Decode(data []byte) (record.Record, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return record.Record{}, fmt.Errorf("parse cache: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return record.Record{}, errors.New("parse cache: empty document")
	}
	var r record.Record
	if err := doc.Content[0].Decode(&r); err != nil {
		return record.Record{}, fmt.Errorf("parse cache: %w", err)
	}
	return r, nil
}

// Encode renders r as a cache document.
func Encode(r record.Record) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(header)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("encode cache: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode cache: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes r to path atomically.
func Save(path string, r record.Record) error {
	data, err := Encode(r)
	if err != nil {
		return err
	}
	if err := output.AtomicWriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save cache %s: %w", path, err)
	}
	return nil
}
