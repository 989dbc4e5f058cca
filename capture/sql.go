// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package capture

import (
	"database/sql"
	"fmt"
	"time"
)

// SQLRecorder stores exchanges in the `modbus_captures` table, creating
// it if needed.
type SQLRecorder struct {
	db *sql.DB
}

// OpenSQLRecorder connects to the database.
// Note: The driver (e.g., sqlite3) must be imported by the caller.
func OpenSQLRecorder(driver, dsn string) (*SQLRecorder, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	s := &SQLRecorder{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	return s, nil
}

func (s *SQLRecorder) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS modbus_captures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		time_ns INTEGER NOT NULL,
		unit_id INTEGER NOT NULL,
		function_code INTEGER NOT NULL,
		request BLOB,
		reply BLOB,
		err TEXT
	);
	`
	_, err := s.db.Exec(query)
	return err
}

func (s *SQLRecorder) Record(rec Record) error {
	query := "INSERT INTO modbus_captures (time_ns, unit_id, function_code, request, reply, err) VALUES (?, ?, ?, ?, ?, ?)"
	_, err := s.db.Exec(query, rec.Time.UnixNano(), int(rec.UnitID()), int(rec.FunctionCode()), rec.Request, rec.Reply, rec.Err)
	if err != nil {
		return fmt.Errorf("failed to persist capture: %w", err)
	}
	return nil
}

func (s *SQLRecorder) Load() ([]Record, error) {
	rows, err := s.db.Query("SELECT time_ns, request, reply, err FROM modbus_captures ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query captures: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			ns  int64
			rec Record
		)
		if err := rows.Scan(&ns, &rec.Request, &rec.Reply, &rec.Err); err != nil {
			return nil, err
		}
		rec.Time = time.Unix(0, ns)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLRecorder) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
