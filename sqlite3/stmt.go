// Copyright 2018 The go-sqlite-lite Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sqlite3

/*
#include <sqlite3.h>

// cgo doesn't handle SQLITE_{STATIC,TRANSIENT} pointer constants.
static int bind_text(sqlite3_stmt *s, int i, const char *p, int n) {
	if (n > 0) {
		return sqlite3_bind_text(s, i, p, n, SQLITE_TRANSIENT);
	}
	return sqlite3_bind_text(s, i, "", 0, SQLITE_STATIC);
}
static int bind_blob(sqlite3_stmt *s, int i, const void *p, int n) {
	if (n > 0) {
		return sqlite3_bind_blob(s, i, p, n, SQLITE_TRANSIENT);
	}
	return sqlite3_bind_zeroblob(s, i, 0);
}
*/
import "C"

import (
	"runtime"
)

// Same is a Bind argument that skips one parameter slot, leaving the value
// bound there by the previous cycle in place.
var Same = sameArg{}

type sameArg struct{}

// stmtHandle owns the compiled statement. It is the object the garbage
// collector finalizes, so it stays put while Stmt values trade ownership of it.
type stmtHandle struct {
	stmt *C.sqlite3_stmt
	conn *Database
}

func (h *stmtHandle) finalize() error {
	if h.stmt == nil {
		return nil
	}
	rc := C.sqlite3_finalize(h.stmt)
	h.stmt = nil
	runtime.SetFinalizer(h, nil)
	if rc != OK {
		return libErr(rc, h.conn.db)
	}
	return nil
}

// release is the garbage collector's Finalize.
func (h *stmtHandle) release() {
	if err := h.finalize(); err != nil {
		h.conn.log.Logf("[WARN] can't release abandoned statement, %v", err)
	}
}

// Stmt is a compiled statement together with its bind cursor and row state.
// A Stmt has one owner at a time and must not be copied; use Take or MoveTo to
// hand it over. After Finalize, or after its handle was taken, every operation
// fails with ErrBadStmt.
// https://www.sqlite.org/c3ref/stmt.html
type Stmt struct {
	noCopy noCopy

	h *stmtHandle

	bindNext  int // 1-based slot of the next bind
	endOfRows bool
	nCols     int

	// Data type codes for all columns in the current row. Column types are
	// required to differentiate NULL from zero values, and sqlite3_column_type
	// is undefined after a type conversion happens.
	colTypes     []uint8
	haveColTypes bool

	row Row
}

func newStmt(d *Database, stmt *C.sqlite3_stmt) *Stmt {
	h := &stmtHandle{stmt: stmt, conn: d}
	runtime.SetFinalizer(h, (*stmtHandle).release)
	s := &Stmt{h: h, bindNext: 1, endOfRows: true}
	s.row.s = s
	return s
}

// Valid reports whether s still owns a compiled statement.
func (s *Stmt) Valid() bool {
	return s != nil && s.h != nil && s.h.stmt != nil
}

func (s *Stmt) handle() (*C.sqlite3_stmt, error) {
	if !s.Valid() {
		return nil, ErrBadStmt
	}
	return s.h.stmt, nil
}

// Finalize releases the compiled statement. It can be called at any point in
// the statement's life cycle and any number of times. Errors reported by the
// engine at this point only repeat the last execution failure and are logged.
// https://www.sqlite.org/c3ref/finalize.html
func (s *Stmt) Finalize() {
	if s.h == nil {
		return
	}
	h := s.h
	s.h = nil
	s.clearRow()
	if err := h.finalize(); err != nil {
		h.conn.log.Logf("[DEBUG] finalize statement, %v", err)
	}
}

// Close is Finalize for use with defer and io.Closer. It always returns nil.
func (s *Stmt) Close() error {
	s.Finalize()
	return nil
}

// Take moves the compiled statement and all of its state into a new Stmt and
// returns it. s is left without a handle.
func (s *Stmt) Take() *Stmt {
	dst := &Stmt{}
	s.MoveTo(dst)
	return dst
}

// MoveTo transfers ownership of the compiled statement and all of its state to
// dst, finalizing whatever dst held before. s is left without a handle. Moving
// a Stmt onto itself does nothing.
func (s *Stmt) MoveTo(dst *Stmt) {
	if dst == s {
		return
	}
	dst.Finalize()
	dst.h, s.h = s.h, nil
	dst.bindNext, dst.endOfRows, dst.nCols = s.bindNext, s.endOfRows, s.nCols
	dst.colTypes, dst.haveColTypes = s.colTypes, s.haveColTypes
	dst.row.s = dst

	s.bindNext = 1
	s.colTypes = nil
	s.clearRow()
}

func (s *Stmt) clearRow() {
	s.endOfRows = true
	s.nCols = 0
	s.haveColTypes = false
	s.colTypes = s.colTypes[:0]
}

// onBind starts a new parameter set when the cursor is at its first slot.
func (s *Stmt) onBind() (*C.sqlite3_stmt, C.int, error) {
	stmt, err := s.handle()
	if err != nil {
		return nil, 0, err
	}
	if s.bindNext == 1 {
		C.sqlite3_reset(stmt)
		s.clearRow()
	}
	i := C.int(s.bindNext)
	s.bindNext++
	return stmt, i, nil
}

func (s *Stmt) bindErr(rc C.int, i C.int) error {
	if rc == OK {
		return nil
	}
	return pkgErr(KindBind, int(rc), "bind parameter %d: %s", int(i), C.GoString(C.sqlite3_errstr(rc)))
}

// BindInt binds v to the next parameter slot.
// https://www.sqlite.org/c3ref/bind_blob.html
func (s *Stmt) BindInt(v int) error {
	return s.BindInt64(int64(v))
}

// BindInt64 binds v to the next parameter slot.
func (s *Stmt) BindInt64(v int64) error {
	stmt, i, err := s.onBind()
	if err != nil {
		return err
	}
	return s.bindErr(C.sqlite3_bind_int64(stmt, i, C.sqlite3_int64(v)), i)
}

// BindFloat binds v to the next parameter slot.
func (s *Stmt) BindFloat(v float64) error {
	stmt, i, err := s.onBind()
	if err != nil {
		return err
	}
	return s.bindErr(C.sqlite3_bind_double(stmt, i, C.double(v)), i)
}

// BindBool binds v as 0 or 1 to the next parameter slot.
func (s *Stmt) BindBool(v bool) error {
	stmt, i, err := s.onBind()
	if err != nil {
		return err
	}
	return s.bindErr(C.sqlite3_bind_int64(stmt, i, C.sqlite3_int64(cBool(v))), i)
}

// BindText binds a copy of v to the next parameter slot.
func (s *Stmt) BindText(v string) error {
	stmt, i, err := s.onBind()
	if err != nil {
		return err
	}
	return s.bindErr(C.bind_text(stmt, i, cStr(v), C.int(len(v))), i)
}

// BindBlob binds a copy of v to the next parameter slot. A nil slice binds
// NULL; an empty non-nil slice binds a zero-length blob.
func (s *Stmt) BindBlob(v []byte) error {
	if v == nil {
		return s.BindNull()
	}
	stmt, i, err := s.onBind()
	if err != nil {
		return err
	}
	return s.bindErr(C.bind_blob(stmt, i, cBytes(v), C.int(len(v))), i)
}

// BindNull binds NULL to the next parameter slot.
func (s *Stmt) BindNull() error {
	stmt, i, err := s.onBind()
	if err != nil {
		return err
	}
	return s.bindErr(C.sqlite3_bind_null(stmt, i), i)
}

// BindSame advances the cursor past the next parameter slot, leaving its
// previously bound value untouched.
func (s *Stmt) BindSame() error {
	_, _, err := s.onBind()
	return err
}

// Bind binds args to consecutive parameter slots according to their type:
// int, int64, float64, bool, string, []byte, nil for NULL and Same to keep the
// previous value.
func (s *Stmt) Bind(args ...interface{}) error {
	for _, v := range args {
		var err error
		switch v := v.(type) {
		case nil:
			err = s.BindNull()
		case int:
			err = s.BindInt(v)
		case int64:
			err = s.BindInt64(v)
		case float64:
			err = s.BindFloat(v)
		case bool:
			err = s.BindBool(v)
		case string:
			err = s.BindText(v)
		case []byte:
			err = s.BindBlob(v)
		case sameArg:
			err = s.BindSame()
		default:
			if !s.Valid() {
				return ErrBadStmt
			}
			return pkgErr(KindBind, MISMATCH, "unsupported type for parameter %d (%T)", s.bindNext, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Execute runs the statement with the parameters bound so far and positions it
// at the first result row, if any. The next Bind call starts a new parameter
// set. A statement abandoned in the middle of its rows is reset first.
// https://www.sqlite.org/c3ref/step.html
func (s *Stmt) Execute() error {
	stmt, err := s.handle()
	if err != nil {
		return err
	}
	s.bindNext = 1
	// a no-op unless the previous run was abandoned or failed
	C.sqlite3_reset(stmt)
	s.haveColTypes = false

	switch rc := C.sqlite3_step(stmt); rc {
	case ROW:
		s.endOfRows = false
		s.nCols = int(C.sqlite3_column_count(stmt))
		return nil
	case DONE:
		s.endOfRows = true
		s.nCols = 0
		return nil
	default:
		err = libErr(rc, s.h.conn.db)
		C.sqlite3_reset(stmt)
		s.clearRow()
		return err
	}
}

// NextRow advances to the next result row and reports whether there is one.
// Once the rows are exhausted it keeps returning false without touching the
// engine.
func (s *Stmt) NextRow() (bool, error) {
	stmt, err := s.handle()
	if err != nil {
		return false, err
	}
	if s.endOfRows {
		return false, nil
	}
	s.haveColTypes = false

	switch rc := C.sqlite3_step(stmt); rc {
	case ROW:
		s.endOfRows = false
		return true, nil
	case DONE:
		s.clearRow()
		return false, nil
	default:
		err = libErr(rc, s.h.conn.db)
		s.clearRow()
		return false, err
	}
}

// HasRow reports whether the statement is positioned at a result row.
func (s *Stmt) HasRow() bool {
	return s.Valid() && !s.endOfRows
}

// CurrentRow returns the view of the result row the statement is positioned
// at. The view follows the statement: it always reads the current row and is
// usable only while HasRow is true.
func (s *Stmt) CurrentRow() (*Row, error) {
	if _, err := s.handle(); err != nil {
		return nil, err
	}
	if s.endOfRows {
		return nil, pkgErr(KindState, MISUSE, "no current row")
	}
	return &s.row, nil
}

// SQL returns the text the statement was compiled from.
// https://www.sqlite.org/c3ref/expanded_sql.html
func (s *Stmt) SQL() string {
	stmt, err := s.handle()
	if err != nil {
		return ""
	}
	return C.GoString(C.sqlite3_sql(stmt))
}

// ReadOnly returns true if the statement makes no direct changes to the
// content of the database file.
// https://www.sqlite.org/c3ref/stmt_readonly.html
func (s *Stmt) ReadOnly() bool {
	stmt, err := s.handle()
	return err == nil && C.sqlite3_stmt_readonly(stmt) != 0
}

// BindParameterCount returns the number of SQL parameters in the statement.
// https://www.sqlite.org/c3ref/bind_parameter_count.html
func (s *Stmt) BindParameterCount() int {
	stmt, err := s.handle()
	if err != nil {
		return 0
	}
	return int(C.sqlite3_bind_parameter_count(stmt))
}

// ColumnCount returns the number of columns produced by the statement,
// regardless of whether it is positioned at a row.
// https://www.sqlite.org/c3ref/column_count.html
func (s *Stmt) ColumnCount() int {
	stmt, err := s.handle()
	if err != nil {
		return 0
	}
	return int(C.sqlite3_column_count(stmt))
}
