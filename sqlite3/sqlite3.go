// Copyright 2018 The go-sqlite-lite Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sqlite3 is a thin resource-management layer over the SQLite
// library. A Database owns one engine connection; a Stmt owns one compiled
// statement and walks it through bind, execute and fetch; a Row is a view of the
// statement's current result row. Handles have exactly one owner at a time and
// ownership moves explicitly with Stmt.Take and Stmt.MoveTo.
//
// Neither a Database nor its statements may be used from several goroutines at
// once without external serialization. Database.Interrupt is the only method
// meant to be called concurrently with a running statement.
//
// The package links against the system SQLite library; SQLite 3.14 or newer
// is required for expanded SQL in trace output.
package sqlite3

/*
#cgo LDFLAGS: -lsqlite3
#cgo linux LDFLAGS: -lm

#include <stdint.h>
#include <sqlite3.h>

// util.go exports.
void go_trace_stmt(uintptr_t, char*);

static int trace_stmt_cb(unsigned mask, void *ctx, void *p, void *x) {
	if (mask == SQLITE_TRACE_STMT) {
		char *sql = sqlite3_expanded_sql((sqlite3_stmt*)p);
		go_trace_stmt((uintptr_t)ctx, sql ? sql : (char*)x);
		sqlite3_free(sql);
	}
	return 0;
}

static void set_trace(sqlite3 *db, uintptr_t h, int enable) {
	if (enable) {
		sqlite3_trace_v2(db, SQLITE_TRACE_STMT, trace_stmt_cb, (void*)h);
	} else {
		sqlite3_trace_v2(db, 0, 0, 0);
	}
}
*/
import "C"

import (
	"fmt"
	"runtime"
	"runtime/cgo"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
)

// DefaultBusyTimeout is the busy timeout applied when a database is opened.
const DefaultBusyTimeout = 60 * time.Second

// initErr indicates a SQLite initialization error, which disables this package.
var initErr error

func init() {
	// https://www.sqlite.org/c3ref/initialize.html
	if rc := C.sqlite3_initialize(); rc != OK {
		initErr = errStr(rc)
	}
}

// TraceFunc receives the fully expanded text of each statement right before
// it starts running. It must not use the statement or its connection.
type TraceFunc func(sql string)

// LogTrace returns a TraceFunc writing every statement to l at debug level.
func LogTrace(l lgr.L) TraceFunc {
	return func(sql string) {
		l.Logf("[DEBUG] sql: %s", sql)
	}
}

// noCopy may be embedded into structs which must not be copied after first
// use. go vet reports copies through its copylocks check.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Option configures Open.
type Option func(o *options)

type options struct {
	exclusiveWAL bool
	busyTimeout  time.Duration
	log          lgr.L
}

// WithExclusiveWAL switches the connection to write-ahead logging and the
// exclusive locking mode after opening. It is enabled by default. No other
// process can use the file while the connection is open, and the resulting
// file requires SQLite 3.7.0 or newer.
func WithExclusiveWAL(enable bool) Option {
	return func(o *options) { o.exclusiveWAL = enable }
}

// WithBusyTimeout overrides DefaultBusyTimeout.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) { o.busyTimeout = d }
}

// WithLogger sets the logger used for connection diagnostics and for errors
// swallowed while releasing handles. The default discards everything.
func WithLogger(l lgr.L) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// Database is a connection handle. It is the only owner of the underlying
// engine connection and must not be copied.
// https://www.sqlite.org/c3ref/sqlite3.html
type Database struct {
	noCopy noCopy

	db          *C.sqlite3
	path        string
	busyTimeout time.Duration
	log         lgr.L

	trace   cgo.Handle
	traceFn TraceFunc
}

// Open opens the database at path, creating the file if it does not exist.
// The path can be a file name, a "file:" URI, ":memory:" for a private
// in-memory database, or "" for a temporary on-disk database. The busy timeout
// is applied at once and, unless disabled with WithExclusiveWAL(false), the
// connection is switched to WAL journaling with exclusive locking.
// https://www.sqlite.org/c3ref/open.html
func Open(path string, opts ...Option) (*Database, error) {
	if initErr != nil {
		return nil, initErr
	}
	o := options{exclusiveWAL: true, busyTimeout: DefaultBusyTimeout, log: lgr.NoOp}
	for _, opt := range opts {
		opt(&o)
	}

	name := path + "\x00"
	var db *C.sqlite3
	flags := C.SQLITE_OPEN_READWRITE | C.SQLITE_OPEN_CREATE | C.SQLITE_OPEN_URI
	rc := C.sqlite3_open_v2(cStr(name), &db, C.int(flags), nil)
	if rc != OK {
		err := kindErr(KindOpen, libErr(rc, db))
		C.sqlite3_close(db)
		return nil, err
	}
	C.sqlite3_extended_result_codes(db, 1)

	d := &Database{db: db, path: path, log: o.log}
	d.SetBusyTimeout(o.busyTimeout)
	if o.exclusiveWAL {
		if err := d.Exec("PRAGMA locking_mode = EXCLUSIVE; PRAGMA journal_mode = WAL;"); err != nil {
			C.sqlite3_close(db)
			return nil, kindErr(KindOpen, err)
		}
	}
	runtime.SetFinalizer(d, (*Database).release)
	d.log.Logf("[DEBUG] opened database %q, exclusive wal: %v, busy timeout: %v", path, o.exclusiveWAL, o.busyTimeout)
	return d, nil
}

// OpenConfig validates cfg and opens the database it describes. Options are
// applied after the configuration.
func OpenConfig(cfg Config, opts ...Option) (*Database, error) {
	if err := cfg.Validate(); err != nil {
		return nil, pkgErr(KindOpen, CANTOPEN, "invalid config: %v", err)
	}
	base := []Option{WithExclusiveWAL(cfg.ExclusiveWAL), WithBusyTimeout(cfg.BusyTimeout)}
	return Open(cfg.Path, append(base, opts...)...)
}

// Close releases the connection. It is a no-op on a closed Database. Close
// refuses to run while any statement compiled on this connection has not been
// finalized, and reports a KindLifecycle error instead; statements are never
// finalized behind the caller's back.
// https://www.sqlite.org/c3ref/close.html
func (d *Database) Close() error {
	db := d.db
	if db == nil {
		return nil
	}
	if C.sqlite3_next_stmt(db, nil) != nil {
		return pkgErr(KindLifecycle, BUSY, "close with outstanding statements; finalize them first")
	}
	if rc := C.sqlite3_close(db); rc != OK {
		return libErr(rc, db)
	}
	d.db = nil
	runtime.SetFinalizer(d, nil)
	if d.trace != 0 {
		d.trace.Delete()
		d.trace, d.traceFn = 0, nil
	}
	return nil
}

// release is the garbage collector's Close. Errors are logged, never returned.
func (d *Database) release() {
	if err := d.Close(); err != nil {
		d.log.Logf("[WARN] can't release database %q, %v", d.path, err)
	}
}

// Compile compiles exactly one SQL statement. Text after the first statement
// is accepted only if it holds nothing but whitespace and comments; otherwise
// a KindState error is returned and nothing stays compiled.
// https://www.sqlite.org/c3ref/prepare.html
func (d *Database) Compile(sql string) (*Stmt, error) {
	if d.db == nil {
		return nil, ErrBadConn
	}
	stmt, tail, err := d.prepare(sql)
	if err != nil {
		return nil, err
	}
	if stmt == nil {
		return nil, pkgErr(KindState, MISUSE, "no SQL statement in %q", sql)
	}
	if strings.TrimSpace(tail) != "" {
		extra, _, err := d.prepare(tail)
		if extra != nil {
			C.sqlite3_finalize(extra)
		}
		if err != nil || extra != nil {
			C.sqlite3_finalize(stmt)
			return nil, pkgErr(KindState, MISUSE, "only one statement can be compiled, got tail %q", strings.TrimSpace(tail))
		}
	}
	return newStmt(d, stmt), nil
}

// prepare compiles the first statement in sql and returns the uncompiled rest.
func (d *Database) prepare(sql string) (*C.sqlite3_stmt, string, error) {
	zSQL := sql + "\x00"

	var stmt *C.sqlite3_stmt
	var cTail *C.char
	rc := C.sqlite3_prepare_v2(d.db, cStr(zSQL), -1, &stmt, &cTail)
	if rc != OK {
		return nil, "", libErr(rc, d.db)
	}

	var tail string
	if cTail != nil {
		n := cStrOffset(zSQL, cTail)
		if n >= 0 && n < len(sql) {
			tail = sql[n:]
		}
	}
	return stmt, tail, nil
}

// Exec runs sql, which may contain several statements separated by
// semicolons. Rows produced by the statements are discarded.
// https://www.sqlite.org/c3ref/exec.html
func (d *Database) Exec(sql string) error {
	if d.db == nil {
		return ErrBadConn
	}
	sql += "\x00"
	if rc := C.sqlite3_exec(d.db, cStr(sql), nil, nil, nil); rc != OK {
		return libErr(rc, d.db)
	}
	return nil
}

// ExecFormatted expands template with args (see Format) and runs the result
// like Exec.
func (d *Database) ExecFormatted(template string, args ...Arg) error {
	sql, err := Format(template, args...)
	if err != nil {
		return err
	}
	return d.Exec(sql)
}

// Query expands template with args when any are given, compiles exactly one
// statement and executes it. The returned statement is positioned at its first
// row, or reports HasRow() == false for an empty result.
func (d *Database) Query(template string, args ...Arg) (*Stmt, error) {
	sql := template
	if len(args) > 0 {
		var err error
		if sql, err = Format(template, args...); err != nil {
			return nil, err
		}
	}
	s, err := d.Compile(sql)
	if err != nil {
		return nil, err
	}
	if err = s.Execute(); err != nil {
		s.Finalize()
		return nil, err
	}
	return s, nil
}

// Format is Format bound to the connection, for symmetry with Query.
func (d *Database) Format(template string, args ...Arg) (string, error) {
	return Format(template, args...)
}

// TableExists reports whether the main schema has a table called name. The
// name is bound as a parameter, so any characters are safe.
func (d *Database) TableExists(name string) (bool, error) {
	s, err := d.Compile("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?")
	if err != nil {
		return false, err
	}
	defer s.Finalize()

	if err = s.BindText(name); err != nil {
		return false, err
	}
	if err = s.Execute(); err != nil {
		return false, err
	}
	n, err := s.row.Int(0, 0)
	return n > 0, err
}

// Scalar runs sql and returns the first column of the first row as an int.
// errorValue is returned when the query produces no row or no column.
func (d *Database) Scalar(sql string, errorValue int) (int, error) {
	s, err := d.Query(sql)
	if err != nil {
		return errorValue, err
	}
	defer s.Finalize()

	if !s.HasRow() || s.row.FieldCount() < 1 {
		return errorValue, nil
	}
	return s.row.Int(0, 0)
}

// Begin starts a new deferred transaction.
// https://www.sqlite.org/lang_transaction.html
func (d *Database) Begin() error {
	return d.Exec("BEGIN")
}

// Commit saves all changes made within a transaction to the database.
func (d *Database) Commit() error {
	return d.Exec("COMMIT")
}

// Rollback aborts the current transaction without saving any changes.
func (d *Database) Rollback() error {
	return d.Exec("ROLLBACK")
}

// WithTx is a convenience method that begins a deferred transaction, calls the
// function f, and will commit the transaction if f does not return an error,
// and will roll back the transaction if f does return an error.
func (d *Database) WithTx(f func() error) error {
	if err := d.Begin(); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	err := f()
	if err != nil {
		if err2 := d.Rollback(); err2 != nil {
			return fmt.Errorf("%w, additionally rolling back transaction failed: %v", err, err2)
		}
		return err
	}

	if err = d.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Interrupt causes any pending database operation to abort and return at its
// earliest opportunity with an INTERRUPT error. It is safe to call this method
// from a goroutine different from the one that is currently running the
// database operation, but it is not safe to call this method on a connection
// that might close before the call returns.
// https://www.sqlite.org/c3ref/interrupt.html
func (d *Database) Interrupt() {
	if db := d.db; db != nil {
		C.sqlite3_interrupt(db)
	}
}

// AutoCommit returns true if the database connection is in auto-commit mode
// (i.e. outside of an explicit transaction started by BEGIN).
// https://www.sqlite.org/c3ref/get_autocommit.html
func (d *Database) AutoCommit() bool {
	return d.db != nil && C.sqlite3_get_autocommit(d.db) != 0
}

// LastInsertRowID returns the ROWID of the most recent successful INSERT
// statement.
// https://www.sqlite.org/c3ref/last_insert_rowid.html
func (d *Database) LastInsertRowID() int64 {
	if d.db == nil {
		return 0
	}
	return int64(C.sqlite3_last_insert_rowid(d.db))
}

// RowsChanged returns the number of rows that were changed, inserted, or
// deleted by the most recently completed INSERT, UPDATE or DELETE statement.
// Auxiliary changes caused by triggers or foreign key actions are not counted.
// https://www.sqlite.org/c3ref/changes.html
func (d *Database) RowsChanged() int {
	if d.db == nil {
		return 0
	}
	return int(C.sqlite3_changes(d.db))
}

// TotalChanges returns the number of rows that were changed, inserted, or
// deleted since the database connection was opened, including changes caused by
// trigger and foreign key actions.
// https://www.sqlite.org/c3ref/total_changes.html
func (d *Database) TotalChanges() int {
	if d.db == nil {
		return 0
	}
	return int(C.sqlite3_total_changes(d.db))
}

// SetBusyTimeout sets how long the engine keeps retrying when the database is
// locked by another connection before failing with a KindBusy error. The
// busy handler is disabled if d is negative or zero.
// https://www.sqlite.org/c3ref/busy_timeout.html
func (d *Database) SetBusyTimeout(timeout time.Duration) {
	d.busyTimeout = timeout
	if d.db != nil {
		C.sqlite3_busy_timeout(d.db, C.int(timeout/time.Millisecond))
	}
}

// BusyTimeout returns the timeout set with SetBusyTimeout.
func (d *Database) BusyTimeout() time.Duration {
	return d.busyTimeout
}

// SetTraceHandler installs f to receive the expanded SQL of every statement
// before it runs, replacing and returning the previous handler. A nil f
// removes tracing.
// https://www.sqlite.org/c3ref/trace_v2.html
func (d *Database) SetTraceHandler(f TraceFunc) (prev TraceFunc) {
	if d.db == nil {
		return nil
	}
	prev, old := d.traceFn, d.trace
	d.trace, d.traceFn = 0, nil
	if f != nil {
		d.trace, d.traceFn = cgo.NewHandle(f), f
		C.set_trace(d.db, C.uintptr_t(d.trace), 1)
	} else {
		C.set_trace(d.db, 0, 0)
	}
	if old != 0 {
		old.Delete()
	}
	return prev
}

// FileName returns the full file path of an attached database. An empty string
// is returned for temporary databases.
// https://www.sqlite.org/c3ref/db_filename.html
func (d *Database) FileName(db string) string {
	if d.db == nil {
		return ""
	}
	db += "\x00"
	if path := C.sqlite3_db_filename(d.db, cStr(db)); path != nil {
		return C.GoString(path)
	}
	return ""
}
