// Copyright 2018 The go-sqlite-lite Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sqlite3

/*
#include <stdint.h>
#include <sqlite3.h>
*/
import "C"

import (
	"errors"
	"fmt"
	"runtime/cgo"
	"unsafe"
)

// Kind classifies an Error by the condition that produced it.
type Kind int

// Error kinds. KindMisuse marks programming errors (use of a finalized
// statement or a closed connection) rather than operational failures.
const (
	KindSQL       Kind = iota // generic engine failure
	KindOpen                  // storage could not be opened or created
	KindLifecycle             // close attempted with outstanding statements
	KindBusy                  // storage locked, busy timeout elapsed
	KindFormat                // SQL text formatting failed
	KindBind                  // parameter rejected by the engine
	KindState                 // no current row, or more than one statement
	KindLookup                // unknown field name
	KindIndex                 // field index out of range
	KindMisuse                // operation on a finalized statement or closed connection
)

var kindNames = [...]string{
	KindSQL:       "sql",
	KindOpen:      "open",
	KindLifecycle: "lifecycle",
	KindBusy:      "busy",
	KindFormat:    "format",
	KindBind:      "bind",
	KindState:     "state",
	KindLookup:    "lookup",
	KindIndex:     "index",
	KindMisuse:    "misuse",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is returned for all failures reported by this package. Errors that
// originate in SQLite carry the extended result code; errors detected by the
// package itself carry the closest matching code, or zero.
type Error struct {
	kind Kind
	rc   int
	msg  string
}

// NewError creates a new Error instance using the specified SQLite result code
// and error message. The kind is derived from the code.
func NewError(rc int, msg string) *Error {
	return &Error{kind: kindOf(rc), rc: rc, msg: msg}
}

// Sentinel errors for use with errors.Is. They match any Error of the same
// kind.
var (
	ErrSQL       = &Error{kind: KindSQL}
	ErrOpen      = &Error{kind: KindOpen}
	ErrLifecycle = &Error{kind: KindLifecycle}
	ErrBusy      = &Error{kind: KindBusy}
	ErrFormat    = &Error{kind: KindFormat}
	ErrBind      = &Error{kind: KindBind}
	ErrState     = &Error{kind: KindState}
	ErrLookup    = &Error{kind: KindLookup}
	ErrIndex     = &Error{kind: KindIndex}
)

// Errors returned for access attempts to closed or invalid objects.
var (
	ErrBadConn = &Error{KindMisuse, MISUSE, "closed or invalid connection"}
	ErrBadStmt = &Error{KindMisuse, MISUSE, "finalized or invalid statement"}
)

// kindOf maps an engine result code to an error kind.
func kindOf(rc int) Kind {
	switch rc & 0xff {
	case BUSY:
		return KindBusy
	case MISUSE:
		return KindMisuse
	}
	return KindSQL
}

func errStr(rc C.int) error {
	return &Error{kindOf(int(rc)), int(rc), C.GoString(C.sqlite3_errstr(rc))}
}

// libErr reports an error originating in SQLite. The error message is obtained
// from the database connection when possible, which may include some additional
// information. Otherwise, the result code is translated to a generic message.
func libErr(rc C.int, db *C.sqlite3) error {
	if db != nil && rc == C.sqlite3_extended_errcode(db) {
		return &Error{kindOf(int(rc)), int(rc), C.GoString(C.sqlite3_errmsg(db))}
	}
	return errStr(rc)
}

// kindErr re-labels an engine error with kind k, keeping its code and message.
func kindErr(k Kind, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return &Error{k, e.rc, e.msg}
	}
	return &Error{k, ERROR, err.Error()}
}

// pkgErr reports an error originating in this package.
func pkgErr(k Kind, rc int, msg string, v ...interface{}) error {
	if len(v) == 0 {
		return &Error{k, rc, msg}
	}
	return &Error{k, rc, fmt.Sprintf(msg, v...)}
}

// Code returns the SQLite extended result code.
func (err *Error) Code() int {
	return err.rc
}

// CodeName returns the symbolic name of the primary result code.
func (err *Error) CodeName() string {
	return CodeName(err.rc)
}

// Kind returns the error classification.
func (err *Error) Kind() Kind {
	return err.kind
}

// Error implements the error interface.
func (err *Error) Error() string {
	if err.rc == 0 {
		return fmt.Sprintf("sqlite3: %s", err.msg)
	}
	return fmt.Sprintf("sqlite3: %s [%d]", err.msg, err.rc)
}

// Is reports whether target is a sentinel of the same kind. A sentinel with a
// non-zero code also has to match the primary result code.
func (err *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.msg != "" {
		return false
	}
	return t.kind == err.kind && (t.rc == 0 || t.rc&0xff == err.rc&0xff)
}

// IsMisuse reports whether err signals a programming error, such as using a
// statement after it was finalized, rather than a recoverable failure.
func IsMisuse(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.kind == KindMisuse
}

// Complete returns true if sql appears to contain a complete statement that is
// ready to be parsed. This does not validate the statement syntax.
// https://www.sqlite.org/c3ref/complete.html
func Complete(sql string) bool {
	if initErr != nil {
		return false
	}
	sql += "\x00"
	return C.sqlite3_complete(cStr(sql)) == 1
}

// SourceID returns the check-in identifier of SQLite within its configuration
// management system.
// https://www.sqlite.org/c3ref/c_source_id.html
func SourceID() string {
	if initErr != nil {
		return ""
	}
	return C.GoString(C.sqlite3_sourceid())
}

// Version returns the SQLite version as a string in the format "X.Y.Z[.N]".
// https://www.sqlite.org/c3ref/libversion.html
func Version() string {
	if initErr != nil {
		return ""
	}
	return C.GoString(C.sqlite3_libversion())
}

// VersionNum returns the SQLite version as an integer in the format X*1000000 +
// Y*1000 + Z, where X is the major version, Y is the minor version, and Z is
// the release number.
func VersionNum() int {
	if initErr != nil {
		return 0
	}
	return int(C.sqlite3_libversion_number())
}

// cStr returns a pointer to the first byte in s. The caller must make sure s
// is null-terminated.
func cStr(s string) *C.char {
	return (*C.char)(unsafe.Pointer(unsafe.StringData(s)))
}

// cStrOffset returns the offset of p in s or -1 if p doesn't point into s.
func cStrOffset(s string, p *C.char) int {
	base := uintptr(unsafe.Pointer(unsafe.StringData(s)))
	if off := uintptr(unsafe.Pointer(p)) - base; off < uintptr(len(s)) {
		return int(off)
	}
	return -1
}

// cBytes returns a pointer to the first byte in b.
func cBytes(b []byte) unsafe.Pointer {
	return unsafe.Pointer(unsafe.SliceData(b))
}

// cBool returns a C representation of a Go bool (false = 0, true = 1).
func cBool(b bool) C.int {
	if b {
		return 1
	}
	return 0
}

//export go_trace_stmt
func go_trace_stmt(h C.uintptr_t, sql *C.char) {
	fn, _ := cgo.Handle(h).Value().(TraceFunc)
	if fn != nil {
		fn(C.GoString(sql))
	}
}
