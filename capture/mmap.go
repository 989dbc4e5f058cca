// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package capture

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
)

const (
	ringMagic      = "MBCAP001"
	ringHeaderSize = 32
	// DefaultSlots is the ring size used when none is configured.
	DefaultSlots = 1024
)

// MmapRecorder keeps the last N exchanges in a memory-mapped ring file,
// so the most recent traffic survives a crash without unbounded growth.
//
// Layout:
// - Magic: 8 bytes (Offset 0)
// - Slots: 4 bytes (Offset 8)
// - Next slot: 4 bytes (Offset 12)
// - Count: 4 bytes (Offset 16)
// - Reserved up to offset 32, then Slots * 768 byte records
type MmapRecorder struct {
	path  string
	slots int

	mu   sync.Mutex
	file *os.File
	data mmap.MMap
}

// OpenMmapRecorder maps path as a ring of slots records. An existing ring
// with the same number of slots is kept; anything else is reinitialized.
func OpenMmapRecorder(path string, slots int) (*MmapRecorder, error) {
	if slots <= 0 {
		slots = DefaultSlots
	}
	totalSize := int64(ringHeaderSize + slots*slotSize)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open mmap file: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	fresh := fi.Size() != totalSize
	if fresh {
		if err := f.Truncate(0); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to resize mmap file: %w", err)
		}
		if err := f.Truncate(totalSize); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to resize mmap file: %w", err)
		}
	}

	data, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap failed: %w", err)
	}

	mr := &MmapRecorder{path: path, slots: slots, file: f, data: data}
	if !fresh && !mr.valid() {
		slog.Warn("Capture ring header invalid, reinitializing", "path", path)
		clear(data)
		fresh = true
	}
	if fresh {
		copy(data, ringMagic)
		binary.LittleEndian.PutUint32(data[8:], uint32(slots))
		if err := data.Flush(); err != nil {
			mr.Close()
			return nil, fmt.Errorf("mmap flush failed: %w", err)
		}
	}
	return mr, nil
}

func (mr *MmapRecorder) valid() bool {
	return string(mr.data[:8]) == ringMagic &&
		int(binary.LittleEndian.Uint32(mr.data[8:])) == mr.slots &&
		int(binary.LittleEndian.Uint32(mr.data[12:])) < mr.slots &&
		int(binary.LittleEndian.Uint32(mr.data[16:])) <= mr.slots
}

func (mr *MmapRecorder) slot(i int) []byte {
	off := ringHeaderSize + i*slotSize
	return mr.data[off : off+slotSize]
}

// Record overwrites the oldest slot once the ring is full.
func (mr *MmapRecorder) Record(rec Record) error {
	mr.mu.Lock()
	defer mr.mu.Unlock()

	if mr.data == nil {
		return fmt.Errorf("mmap data is nil")
	}
	next := int(binary.LittleEndian.Uint32(mr.data[12:]))
	count := int(binary.LittleEndian.Uint32(mr.data[16:]))

	encodeSlot(mr.slot(next), rec)
	next = (next + 1) % mr.slots
	if count < mr.slots {
		count++
	}
	binary.LittleEndian.PutUint32(mr.data[12:], uint32(next))
	binary.LittleEndian.PutUint32(mr.data[16:], uint32(count))

	return mr.data.Flush()
}

// Load returns the records in the ring, oldest first.
func (mr *MmapRecorder) Load() ([]Record, error) {
	mr.mu.Lock()
	defer mr.mu.Unlock()

	if mr.data == nil {
		return nil, fmt.Errorf("mmap data is nil")
	}
	next := int(binary.LittleEndian.Uint32(mr.data[12:]))
	count := int(binary.LittleEndian.Uint32(mr.data[16:]))

	records := make([]Record, 0, count)
	start := (next - count + mr.slots) % mr.slots
	for i := 0; i < count; i++ {
		rec, err := decodeSlot(mr.slot((start + i) % mr.slots))
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Close unmaps and closes the file.
func (mr *MmapRecorder) Close() error {
	mr.mu.Lock()
	defer mr.mu.Unlock()

	var err error
	if mr.data != nil {
		if e := mr.data.Unmap(); e != nil {
			err = e
		}
		mr.data = nil
	}
	if mr.file != nil {
		if e := mr.file.Close(); e != nil {
			err = e
		}
		mr.file = nil
	}
	return err
}
