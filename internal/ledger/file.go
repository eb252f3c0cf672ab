// Package ledger provides the flat-file CSV stores backing the booking system.
//
// Every store in this service is a CSV file read and rewritten whole. All
// quoting goes through encoding/csv so fields holding commas, quotes, or
// embedded JSON survive a round trip intact, and every read-modify-write
// cycle is serialized behind the file's mutex so concurrent handlers cannot
// interleave a lost update.
package ledger

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// File is a mutex-guarded CSV file with a fixed header row.
type File struct {
	path   string
	header []string
	mu     sync.Mutex
}

// NewFile creates a handle for the CSV file at path. The file is not touched
// until the first write.
func NewFile(path string, header []string) *File {
	return &File{path: path, header: header}
}

// ReadAll returns every data row (the header is stripped). A missing file
// reads as empty.
func (f *File) ReadAll() ([][]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readLocked()
}

// Append adds one row, creating the file and header on first use.
func (f *File) Append(record []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(record) != len(f.header) {
		return fmt.Errorf("ledger: %s: record has %d fields, header has %d", filepath.Base(f.path), len(record), len(f.header))
	}
	records, err := f.readLocked()
	if err != nil {
		return err
	}
	return f.writeLocked(append(records, record))
}

// Update applies fn to the current rows and rewrites the file with its
// result. The whole cycle runs under the file lock.
func (f *File) Update(fn func(records [][]string) ([][]string, error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.readLocked()
	if err != nil {
		return err
	}
	updated, err := fn(records)
	if err != nil {
		return err
	}
	return f.writeLocked(updated)
}

func (f *File) readLocked() ([][]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("ledger: read %s: %w", filepath.Base(f.path), err)
	}
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = len(f.header)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("ledger: parse %s: %w", filepath.Base(f.path), err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[1:], nil
}

// writeLocked rewrites the file through a temp file and rename so a crash
// mid-write cannot leave a truncated ledger.
func (f *File) writeLocked(records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("ledger: mkdir for %s: %w", filepath.Base(f.path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("ledger: temp file for %s: %w", filepath.Base(f.path), err)
	}
	defer os.Remove(tmp.Name())

	writer := csv.NewWriter(tmp)
	if err := writer.Write(f.header); err != nil {
		tmp.Close()
		return fmt.Errorf("ledger: write header %s: %w", filepath.Base(f.path), err)
	}
	for _, record := range records {
		if len(record) != len(f.header) {
			tmp.Close()
			return fmt.Errorf("ledger: %s: record has %d fields, header has %d", filepath.Base(f.path), len(record), len(f.header))
		}
		if err := writer.Write(record); err != nil {
			tmp.Close()
			return fmt.Errorf("ledger: write row %s: %w", filepath.Base(f.path), err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("ledger: flush %s: %w", filepath.Base(f.path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("ledger: close temp for %s: %w", filepath.Base(f.path), err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("ledger: replace %s: %w", filepath.Base(f.path), err)
	}
	return nil
}
