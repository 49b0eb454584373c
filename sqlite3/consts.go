// Copyright 2018 The go-sqlite-lite Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sqlite3

/*
#include <sqlite3.h>
*/
import "C"

// General result codes returned by the SQLite API. When converted to an error,
// OK, ROW, and DONE codes are never observed. Extended result codes carry the
// primary code in their low byte.
// https://www.sqlite.org/rescode.html
const (
	OK         = C.SQLITE_OK         // Successful result
	ERROR      = C.SQLITE_ERROR      // SQL error or missing database
	INTERNAL   = C.SQLITE_INTERNAL   // Internal logic error in SQLite
	PERM       = C.SQLITE_PERM       // Access permission denied
	ABORT      = C.SQLITE_ABORT      // Callback routine requested an abort
	BUSY       = C.SQLITE_BUSY       // The database file is locked
	LOCKED     = C.SQLITE_LOCKED     // A table in the database is locked
	NOMEM      = C.SQLITE_NOMEM      // A malloc() failed
	READONLY   = C.SQLITE_READONLY   // Attempt to write a readonly database
	INTERRUPT  = C.SQLITE_INTERRUPT  // Operation terminated by sqlite3_interrupt()
	IOERR      = C.SQLITE_IOERR      // Some kind of disk I/O error occurred
	CORRUPT    = C.SQLITE_CORRUPT    // The database disk image is malformed
	NOTFOUND   = C.SQLITE_NOTFOUND   // Unknown opcode in sqlite3_file_control()
	FULL       = C.SQLITE_FULL       // Insertion failed because database is full
	CANTOPEN   = C.SQLITE_CANTOPEN   // Unable to open the database file
	PROTOCOL   = C.SQLITE_PROTOCOL   // Database lock protocol error
	EMPTY      = C.SQLITE_EMPTY      // Database is empty
	SCHEMA     = C.SQLITE_SCHEMA     // The database schema changed
	TOOBIG     = C.SQLITE_TOOBIG     // String or BLOB exceeds size limit
	CONSTRAINT = C.SQLITE_CONSTRAINT // Abort due to constraint violation
	MISMATCH   = C.SQLITE_MISMATCH   // Data type mismatch
	MISUSE     = C.SQLITE_MISUSE     // Library used incorrectly
	NOLFS      = C.SQLITE_NOLFS      // Uses OS features not supported on host
	AUTH       = C.SQLITE_AUTH       // Authorization denied
	FORMAT     = C.SQLITE_FORMAT     // Auxiliary database format error
	RANGE      = C.SQLITE_RANGE      // 2nd parameter to sqlite3_bind out of range
	NOTADB     = C.SQLITE_NOTADB     // File opened that is not a database file
	NOTICE     = C.SQLITE_NOTICE     // Notifications from sqlite3_log()
	WARNING    = C.SQLITE_WARNING    // Warnings from sqlite3_log()
	ROW        = C.SQLITE_ROW        // sqlite3_step() has another row ready
	DONE       = C.SQLITE_DONE       // sqlite3_step() has finished executing
)

// Fundamental data types reported by Row.FieldDataType.
// https://www.sqlite.org/c3ref/c_blob.html
const (
	INTEGER = C.SQLITE_INTEGER
	FLOAT   = C.SQLITE_FLOAT
	TEXT    = C.SQLITE_TEXT
	BLOB    = C.SQLITE_BLOB
	NULL    = C.SQLITE_NULL
)

var codeNames = [...]string{
	"SQLITE_OK", "SQLITE_ERROR", "SQLITE_INTERNAL", "SQLITE_PERM",
	"SQLITE_ABORT", "SQLITE_BUSY", "SQLITE_LOCKED", "SQLITE_NOMEM", "SQLITE_READONLY", "SQLITE_INTERRUPT",
	"SQLITE_IOERR", "SQLITE_CORRUPT", "SQLITE_NOTFOUND", "SQLITE_FULL", "SQLITE_CANTOPEN",
	"SQLITE_PROTOCOL", "SQLITE_EMPTY", "SQLITE_SCHEMA", "SQLITE_TOOBIG", "SQLITE_CONSTRAINT",
	"SQLITE_MISMATCH", "SQLITE_MISUSE", "SQLITE_NOLFS", "SQLITE_AUTH", "SQLITE_FORMAT", "SQLITE_RANGE",
	"SQLITE_NOTADB", "SQLITE_NOTICE", "SQLITE_WARNING",
}

// CodeName returns the symbolic name of the primary result code in rc, such as
// "SQLITE_BUSY". Extended codes are reported by their primary code.
func CodeName(rc int) string {
	switch rc {
	case ROW:
		return "SQLITE_ROW"
	case DONE:
		return "SQLITE_DONE"
	}
	if p := rc & 0xff; p >= 0 && p < len(codeNames) {
		return codeNames[p]
	}
	return "SQLITE_UNKNOWN"
}
