// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package conddb stores the conditions of a CAEN setup, high voltage
// readings and run records, in a MySQL database.
//
// The expected tables are:
//
//	CREATE TABLE runs (
//		identifier INT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
//		setup      VARCHAR(255),
//		datetime   DATETIME,
//		comment    TEXT
//	);
//	CREATE TABLE hv_readings (
//		board       VARCHAR(64),
//		channel     TINYINT UNSIGNED,
//		datetime    DATETIME(3),
//		power       BOOL,
//		status      SMALLINT UNSIGNED,
//		vset        DOUBLE,
//		iset        DOUBLE,
//		vmon        DOUBLE,
//		imon        DOUBLE,
//		temperature SMALLINT
//	);
package conddb // import "github.com/go-lpc/caen/conddb"

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/go-lpc/caen/hv"
)

var drvName = "mysql"

// DB exposes convenience methods to store and retrieve conditions data.
type DB struct {
	db   *sql.DB
	name string // name of the database
}

// Open opens a connection to the database described by dsn, e.g.
// "user:pass@tcp(localhost:3306)/caen".
func Open(dsn string) (*DB, error) {
	name := dbname(dsn)
	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("conddb: could not open %q db: %w", name, err)
	}

	err = ping(db, name)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{db: db, name: name}, nil
}

// dbname returns the database name of a MySQL DSN, or the DSN itself when
// it can not be parsed.
func dbname(dsn string) string {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil || cfg.DBName == "" {
		return dsn
	}
	return cfg.DBName
}

func ping(db *sql.DB, dbname string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("conddb: could not ping %q db: %w", dbname, err)
	}

	return nil
}

// Name returns the name of the database.
func (db *DB) Name() string { return db.name }

func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

// Run is a run record.
type Run struct {
	ID      uint32    `json:"identifier"`
	Setup   string    `json:"setup"`
	Start   time.Time `json:"datetime"`
	Comment string    `json:"comment"`
}

// NewRun records a new run and returns its identifier.
func (db *DB) NewRun(ctx context.Context, setup, comment string, start time.Time) (uint32, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := db.db.ExecContext(
		ctx,
		"INSERT INTO runs (setup, datetime, comment) VALUES (?, ?, ?)",
		setup, start.UTC(), comment,
	)
	if err != nil {
		return 0, fmt.Errorf("conddb: could not insert run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("conddb: could not retrieve run identifier: %w", err)
	}
	return uint32(id), nil
}

// LastRun returns the most recent run record.
func (db *DB) LastRun(ctx context.Context) (Run, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var (
		run   Run
		found = false
	)
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT identifier, setup, datetime, comment FROM runs ORDER BY identifier DESC LIMIT 1",
	)
	if err != nil {
		return run, fmt.Errorf("conddb: could not query last run: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		err = rows.Scan(&run.ID, &run.Setup, &run.Start, &run.Comment)
		if err != nil {
			return run, fmt.Errorf("conddb: could not get last run value: %w", err)
		}
		found = true
	}

	if err := rows.Err(); err != nil {
		return run, fmt.Errorf("conddb: could not scan db for last run: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return run, fmt.Errorf("conddb: context error while retrieving last run: %w", err)
	}

	if !found {
		return run, fmt.Errorf("conddb: no run recorded: %w", sql.ErrNoRows)
	}
	return run, nil
}

// HVRecord is a stored high voltage reading.
type HVRecord struct {
	Board string    `json:"board"`
	Time  time.Time `json:"datetime"`
	hv.Reading
}

// InsertHVReadings stores the readings of a board, taken at time t, in a
// single transaction.
func (db *DB) InsertHVReadings(ctx context.Context, board string, t time.Time, rs []hv.Reading) error {
	if len(rs) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("conddb: could not start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	t = t.UTC()
	for _, r := range rs {
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO hv_readings
(board, channel, datetime, power, status, vset, iset, vmon, imon, temperature)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			board, r.Channel, t, r.Power, uint16(r.Status),
			r.VSet, r.ISet, r.Voltage, r.Current, r.Temperature,
		)
		if err != nil {
			return fmt.Errorf("conddb: could not insert reading of %s channel %d: %w", board, r.Channel, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("conddb: could not commit hv readings: %w", err)
	}
	return nil
}

// HVReadings returns the readings of a board stored since t, oldest first.
func (db *DB) HVReadings(ctx context.Context, board string, since time.Time) ([]HVRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var recs []HVRecord
	rows, err := db.db.QueryContext(
		ctx,
		`SELECT board, channel, datetime, power, status, vset, iset, vmon, imon, temperature
FROM hv_readings WHERE (board=? AND datetime>=?) ORDER BY datetime, channel`,
		board, since.UTC(),
	)
	if err != nil {
		return recs, fmt.Errorf("conddb: could not run hv readings query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec    HVRecord
			status uint16
		)
		err = rows.Scan(
			&rec.Board, &rec.Channel, &rec.Time, &rec.Power, &status,
			&rec.VSet, &rec.ISet, &rec.Voltage, &rec.Current, &rec.Temperature,
		)
		if err != nil {
			return recs, fmt.Errorf("conddb: could not scan hv reading: %w", err)
		}
		rec.Status = hv.ChannelStatus(status)
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return recs, fmt.Errorf("conddb: could not scan db for hv readings: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return recs, fmt.Errorf("conddb: context error while retrieving hv readings: %w", err)
	}

	return recs, nil
}
