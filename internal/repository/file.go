package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/samber/mo"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/omarluq/authgate/internal/session"
)

// FileRepository keeps every session in one JSON document on disk, an object
// keyed by token. Each change rewrites the file atomically.
type FileRepository struct {
	path string
	doc  []byte
	mu   sync.Mutex
}

var (
	_ Repository     = (*FileRepository)(nil)
	_ session.Lister = (*FileRepository)(nil)
)

// OpenFile loads path, creating an empty document when it does not exist.
func OpenFile(path string) (*FileRepository, error) {
	doc, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		doc = []byte("{}")
	case err != nil:
		return nil, fmt.Errorf("read session file: %w", err)
	case !gjson.ValidBytes(doc) || !gjson.ParseBytes(doc).IsObject():
		return nil, fmt.Errorf("%w: %s is not a JSON object", ErrCorruptRecord, path)
	}
	return &FileRepository{path: path, doc: doc}, nil
}

// Save writes rec under its token.
func (f *FileRepository) Save(ctx context.Context, rec session.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := sjson.SetRawBytes(f.doc, gjson.Escape(rec.Token), raw)
	if err != nil {
		return fmt.Errorf("update session file: %w", err)
	}
	return f.commit(doc)
}

// FindByToken returns the record stored under token.
func (f *FileRepository) FindByToken(ctx context.Context, token string) (mo.Option[session.Record], error) {
	if err := ctx.Err(); err != nil {
		return mo.None[session.Record](), err
	}
	if token == "" {
		return mo.None[session.Record](), nil
	}

	f.mu.Lock()
	res := gjson.GetBytes(f.doc, gjson.Escape(token))
	f.mu.Unlock()

	if !res.Exists() {
		return mo.None[session.Record](), nil
	}
	rec, err := decodeRecord([]byte(res.Raw))
	if err != nil {
		return mo.None[session.Record](), err
	}
	return mo.Some(rec), nil
}

// DeleteByToken removes token and reports whether it was stored.
func (f *FileRepository) DeleteByToken(ctx context.Context, token string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if token == "" {
		return false, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	key := gjson.Escape(token)
	if !gjson.GetBytes(f.doc, key).Exists() {
		return false, nil
	}
	doc, err := sjson.DeleteBytes(f.doc, key)
	if err != nil {
		return false, fmt.Errorf("update session file: %w", err)
	}
	if err := f.commit(doc); err != nil {
		return false, err
	}
	return true, nil
}

// All returns every decodable record. Corrupt entries are skipped.
func (f *FileRepository) All(ctx context.Context) ([]session.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	doc := f.doc
	f.mu.Unlock()

	var records []session.Record
	gjson.ParseBytes(doc).ForEach(func(_, value gjson.Result) bool {
		if rec, err := decodeRecord([]byte(value.Raw)); err == nil {
			records = append(records, rec)
		}
		return true
	})
	return records, nil
}

// Close is a no-op; every change is already on disk.
func (f *FileRepository) Close() error { return nil }

// commit writes doc to a temp file and renames it over the real one.
// f.mu must be held.
func (f *FileRepository) commit(doc []byte) error {
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(doc); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write session file: %w", err)
	}

	f.doc = doc
	return nil
}

// Ping checks that the session file's directory is still accessible.
func (f *FileRepository) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := os.Stat(filepath.Dir(f.path))
	return err
}
