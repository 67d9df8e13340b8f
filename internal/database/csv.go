package database

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/afero"
)

// CSVStore keeps each table in <dir>/<name>.csv with a header row.
type CSVStore struct {
	fs  afero.Fs
	dir string
}

// NewCSVStore creates dir on fs if needed.
func NewCSVStore(fs afero.Fs, dir string) (*CSVStore, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating storage directory %s: %w", dir, err)
	}
	return &CSVStore{fs: fs, dir: dir}, nil
}

func (s *CSVStore) path(t Table) string {
	return filepath.Join(s.dir, t.Name+".csv")
}

func (s *CSVStore) EnsureInitialized(ctx context.Context, t Table) error {
	exists, err := afero.Exists(s.fs, s.path(t))
	if err != nil {
		return storageErr("init", t, err)
	}
	if exists {
		return nil
	}

	if err := s.replace(t, nil); err != nil {
		return storageErr("init", t, err)
	}
	return nil
}

func (s *CSVStore) ReadAll(ctx context.Context, t Table) ([][]string, error) {
	f, err := s.fs.Open(s.path(t))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storageErr("read", t, ErrTableMissing)
		}
		return nil, storageErr("read", t, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(t.Columns)

	records, err := r.ReadAll()
	if err != nil {
		return nil, storageErr("read", t, fmt.Errorf("%w: %v", ErrTableCorrupt, err))
	}

	if len(records) == 0 || !slices.Equal(records[0], t.Columns) {
		return nil, storageErr("read", t, fmt.Errorf("%w: header does not match schema", ErrTableCorrupt))
	}

	return records[1:], nil
}

// Append writes record at the end of the table. On a failed write the file
// is truncated back to its previous size.
func (s *CSVStore) Append(ctx context.Context, t Table, record []string) error {
	if err := checkWidth(t, record); err != nil {
		return storageErr("append", t, err)
	}

	var buf bytes.Buffer
	if err := encodeCSV(&buf, record); err != nil {
		return storageErr("append", t, err)
	}

	p := s.path(t)
	info, err := s.fs.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return storageErr("append", t, ErrTableMissing)
		}
		return storageErr("append", t, err)
	}

	f, err := s.fs.OpenFile(p, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return storageErr("append", t, err)
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		if truncErr := f.Truncate(info.Size()); truncErr != nil {
			err = errors.Join(err, fmt.Errorf("table left partially appended: %w", truncErr))
		}
		f.Close()
		return storageErr("append", t, err)
	}

	if err := f.Close(); err != nil {
		return storageErr("append", t, err)
	}
	return nil
}

// Overwrite replaces the table through a temp file and a rename, so a
// failed write leaves the previous content in place.
func (s *CSVStore) Overwrite(ctx context.Context, t Table, records [][]string) error {
	for _, rec := range records {
		if err := checkWidth(t, rec); err != nil {
			return storageErr("overwrite", t, err)
		}
	}

	if err := s.replace(t, records); err != nil {
		return storageErr("overwrite", t, err)
	}
	return nil
}

func (s *CSVStore) Close() error { return nil }

func (s *CSVStore) replace(t Table, records [][]string) error {
	var buf bytes.Buffer
	if err := encodeCSV(&buf, append([][]string{t.Columns}, records...)...); err != nil {
		return err
	}

	p := s.path(t)
	tmp := p + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, buf.Bytes(), 0o644); err != nil {
		s.fs.Remove(tmp)
		return err
	}

	if err := s.fs.Rename(tmp, p); err != nil {
		s.fs.Remove(tmp)
		return err
	}
	return nil
}

func encodeCSV(buf *bytes.Buffer, records ...[]string) error {
	w := csv.NewWriter(buf)
	if err := w.WriteAll(records); err != nil {
		return err
	}
	return w.Error()
}
