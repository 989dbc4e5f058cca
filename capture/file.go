// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package capture

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// FileRecorder appends exchanges to a file, one fixed size slot each,
// and syncs after every record.
type FileRecorder struct {
	path string

	mu   sync.Mutex
	file *os.File
	buf  [slotSize]byte
}

// OpenFileRecorder opens path for appending, creating it if necessary.
func OpenFileRecorder(path string) (*FileRecorder, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if rem := fi.Size() % slotSize; rem != 0 {
		// A torn slot from an interrupted write; drop it.
		if err := f.Truncate(fi.Size() - rem); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to resize capture file: %w", err)
		}
	}

	return &FileRecorder{path: path, file: f}, nil
}

func (fr *FileRecorder) Record(rec Record) error {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	if fr.file == nil {
		return os.ErrClosed
	}
	encodeSlot(fr.buf[:], rec)
	if _, err := fr.file.Write(fr.buf[:]); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := fr.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync file to disk: %w", err)
	}
	return nil
}

func (fr *FileRecorder) Load() ([]Record, error) {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	f, err := os.Open(fr.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	records := make([]Record, 0, len(data)/slotSize)
	for off := 0; off+slotSize <= len(data); off += slotSize {
		rec, err := decodeSlot(data[off : off+slotSize])
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", off/slotSize, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Close the file.
func (fr *FileRecorder) Close() error {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	if fr.file == nil {
		return nil
	}
	err := fr.file.Close()
	fr.file = nil
	return err
}
