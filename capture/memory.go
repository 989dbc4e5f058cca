// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package capture

import "sync"

// MemoryRecorder keeps exchanges in memory (non-persistent).
type MemoryRecorder struct {
	limit int

	mu      sync.Mutex
	records []Record
}

// NewMemoryRecorder returns a recorder that keeps the last limit
// exchanges, or all of them if limit is not positive.
func NewMemoryRecorder(limit int) *MemoryRecorder {
	return &MemoryRecorder{limit: limit}
}

func (mr *MemoryRecorder) Record(rec Record) error {
	mr.mu.Lock()
	defer mr.mu.Unlock()

	rec.Request = append([]byte(nil), rec.Request...)
	rec.Reply = append([]byte(nil), rec.Reply...)
	mr.records = append(mr.records, rec)
	if mr.limit > 0 && len(mr.records) > mr.limit {
		mr.records = append(mr.records[:0], mr.records[len(mr.records)-mr.limit:]...)
	}
	return nil
}

func (mr *MemoryRecorder) Load() ([]Record, error) {
	mr.mu.Lock()
	defer mr.mu.Unlock()

	out := make([]Record, len(mr.records))
	copy(out, mr.records)
	return out, nil
}

func (mr *MemoryRecorder) Close() error {
	return nil
}
