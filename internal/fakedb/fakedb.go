// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fakedb holds types to fake an in-memory DB.
//
// Queries return the rows installed by Run. Executed statements are
// recorded and can be retrieved with Execs.
package fakedb // import "github.com/go-lpc/caen/internal/fakedb"

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"sync"
)

var query struct {
	mu   sync.Mutex
	rows Rows
	err  error // error returned by the next statement

	log    sync.Mutex
	execs  []Exec
	lastID int64
	commit int
	abort  int
}

// Exec is an executed statement.
type Exec struct {
	Query string
	Args  []driver.Value
}

// Run installs rows as the result of the queries issued by f.
func Run(ctx context.Context, rows Rows, f func(ctx context.Context) error) error {
	query.mu.Lock()
	defer query.mu.Unlock()
	query.rows = rows
	query.err = nil

	return f(ctx)
}

// Fail makes the statements issued by f fail with err.
func Fail(ctx context.Context, err error, f func(ctx context.Context) error) error {
	query.mu.Lock()
	defer query.mu.Unlock()
	query.rows = Rows{}
	query.err = err
	defer func() { query.err = nil }()

	return f(ctx)
}

// Execs returns the statements executed since the last call to Reset.
func Execs() []Exec {
	query.log.Lock()
	defer query.log.Unlock()
	return append([]Exec(nil), query.execs...)
}

// Transactions returns the number of committed and rolled back
// transactions since the last call to Reset.
func Transactions() (commits, rollbacks int) {
	query.log.Lock()
	defer query.log.Unlock()
	return query.commit, query.abort
}

// Reset clears the recorded statements and transactions.
func Reset() {
	query.log.Lock()
	defer query.log.Unlock()
	query.execs = nil
	query.commit = 0
	query.abort = 0
}

func init() {
	sql.Register("fakedb", &Driver{})
}

type Driver struct{}

// Open returns a new connection to the database.
func (drv *Driver) Open(name string) (driver.Conn, error) {
	return &Conn{}, nil
}

type Conn struct{}

// Prepare returns a prepared statement, bound to this connection.
func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	return &Stmt{query: query}, nil
}

func (c *Conn) Close() error {
	return nil
}

// Begin starts and returns a new transaction.
func (c *Conn) Begin() (driver.Tx, error) {
	return &Tx{}, nil
}

type Tx struct{}

func (*Tx) Commit() error {
	query.log.Lock()
	defer query.log.Unlock()
	query.commit++
	return nil
}

func (*Tx) Rollback() error {
	query.log.Lock()
	defer query.log.Unlock()
	query.abort++
	return nil
}

type Stmt struct {
	query string
}

func (stmt *Stmt) Close() error {
	return nil
}

// NumInput returns -1: the number of placeholders is not checked.
func (stmt *Stmt) NumInput() int {
	return -1
}

// Exec records the statement and its arguments.
func (stmt *Stmt) Exec(args []driver.Value) (driver.Result, error) {
	if query.err != nil {
		return nil, query.err
	}
	query.log.Lock()
	defer query.log.Unlock()
	query.execs = append(query.execs, Exec{
		Query: stmt.query,
		Args:  append([]driver.Value(nil), args...),
	})
	query.lastID++
	return Result{id: query.lastID}, nil
}

// Query returns the rows installed by Run.
func (stmt *Stmt) Query(args []driver.Value) (driver.Rows, error) {
	if query.err != nil {
		return nil, query.err
	}
	return &query.rows, nil
}

// Result is the result of an executed statement.
type Result struct {
	id int64
}

func (res Result) LastInsertId() (int64, error) { return res.id, nil }
func (res Result) RowsAffected() (int64, error) { return 1, nil }

type Rows struct {
	Names  []string
	Values [][]driver.Value
}

// Columns returns the names of the columns.
func (rows *Rows) Columns() []string {
	return rows.Names
}

func (rows *Rows) Close() error {
	return nil
}

// Next populates dest with the next row of data.
// Next returns io.EOF when there are no more rows.
func (rows *Rows) Next(dest []driver.Value) error {
	if len(rows.Values) == 0 {
		return io.EOF
	}
	if len(dest) != len(rows.Values[0]) {
		return errors.New("fakedb: invalid number of columns")
	}
	copy(dest, rows.Values[0])
	rows.Values = rows.Values[1:]
	return nil
}

var (
	_ driver.Driver = (*Driver)(nil)
	_ driver.Conn   = (*Conn)(nil)
	_ driver.Tx     = (*Tx)(nil)
	_ driver.Stmt   = (*Stmt)(nil)
	_ driver.Result = (*Result)(nil)
	_ driver.Rows   = (*Rows)(nil)
)
