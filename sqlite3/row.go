// Copyright 2018 The go-sqlite-lite Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sqlite3

/*
#include <sqlite3.h>

// Faster retrieval of column data types (1 cgo call instead of n).
static void column_types(sqlite3_stmt *s, unsigned char p[], int n) {
	int i = 0;
	for (; i < n; ++i, ++p) {
		*p = sqlite3_column_type(s, i);
	}
}
*/
import "C"

import (
	"unsafe"
)

// Row is a view of the current result row of its statement. It has no state
// of its own; every call reads whatever row the statement is positioned at.
// Field indexes start at 0.
type Row struct {
	s *Stmt
}

// column validates i against the column count cached by the last step.
func (r *Row) column(i int) (*C.sqlite3_stmt, error) {
	stmt, err := r.s.handle()
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= r.s.nCols {
		return nil, pkgErr(KindIndex, RANGE, "field index %d out of range [0,%d)", i, r.s.nCols)
	}
	return stmt, nil
}

// assureColTypes asks SQLite for column types for the current row if we don't
// currently have them. We must cache the column types since they're important
// for null detection and their values are undefined after type conversions.
func (r *Row) assureColTypes(stmt *C.sqlite3_stmt) {
	s := r.s
	if s.haveColTypes {
		return
	}
	n := s.nCols
	if cap(s.colTypes) < n {
		s.colTypes = make([]uint8, n)
	} else {
		s.colTypes = s.colTypes[:n]
	}
	if n > 0 {
		C.column_types(stmt, (*C.uchar)(cBytes(s.colTypes)), C.int(n))
	}
	s.haveColTypes = true
}

// FieldCount returns the number of columns in the current row, or 0 when the
// statement has no row.
func (r *Row) FieldCount() int {
	if !r.s.Valid() {
		return 0
	}
	return r.s.nCols
}

// FieldIndex returns the index of the column called name. The match is exact
// and case-sensitive; an unknown name is a KindLookup error.
func (r *Row) FieldIndex(name string) (int, error) {
	stmt, err := r.s.handle()
	if err != nil {
		return -1, err
	}
	for i := 0; i < r.s.nCols; i++ {
		if C.GoString(C.sqlite3_column_name(stmt, C.int(i))) == name {
			return i, nil
		}
	}
	return -1, pkgErr(KindLookup, NOTFOUND, "no field named %q", name)
}

// FieldName returns the name of column i.
// https://www.sqlite.org/c3ref/column_name.html
func (r *Row) FieldName(i int) (string, error) {
	stmt, err := r.column(i)
	if err != nil {
		return "", err
	}
	return C.GoString(C.sqlite3_column_name(stmt, C.int(i))), nil
}

// FieldDeclType returns the type declared for column i in the table
// definition, or "" for expressions and subqueries.
// https://www.sqlite.org/c3ref/column_decltype.html
func (r *Row) FieldDeclType(i int) (string, error) {
	stmt, err := r.column(i)
	if err != nil {
		return "", err
	}
	return C.GoString(C.sqlite3_column_decltype(stmt, C.int(i))), nil
}

// FieldDataType returns the storage class of the value in column i: one of
// INTEGER, FLOAT, TEXT, BLOB or NULL. Unlike SQLite, the result stays defined
// after a getter has converted the value.
// https://www.sqlite.org/c3ref/column_blob.html
func (r *Row) FieldDataType(i int) (int, error) {
	stmt, err := r.column(i)
	if err != nil {
		return 0, err
	}
	r.assureColTypes(stmt)
	return int(r.s.colTypes[i]), nil
}

// IsNull reports whether column i holds NULL.
func (r *Row) IsNull(i int) (bool, error) {
	typ, err := r.FieldDataType(i)
	return typ == NULL, err
}

// valueAt is the common prologue of the getters. It returns a nil statement
// when the column holds NULL.
func (r *Row) valueAt(i int) (*C.sqlite3_stmt, error) {
	stmt, err := r.column(i)
	if err != nil {
		return nil, err
	}
	r.assureColTypes(stmt)
	if r.s.colTypes[i] == NULL {
		return nil, nil
	}
	return stmt, nil
}

// Int returns column i as an int, or null if it holds NULL.
func (r *Row) Int(i int, null int) (int, error) {
	v, err := r.Int64(i, int64(null))
	return int(v), err
}

// Int64 returns column i as an int64, or null if it holds NULL.
func (r *Row) Int64(i int, null int64) (int64, error) {
	stmt, err := r.valueAt(i)
	if err != nil || stmt == nil {
		return null, err
	}
	return int64(C.sqlite3_column_int64(stmt, C.int(i))), nil
}

// Float returns column i as a float64, or null if it holds NULL.
func (r *Row) Float(i int, null float64) (float64, error) {
	stmt, err := r.valueAt(i)
	if err != nil || stmt == nil {
		return null, err
	}
	return float64(C.sqlite3_column_double(stmt, C.int(i))), nil
}

// String returns a copy of column i as text, or null if it holds NULL.
func (r *Row) String(i int, null string) (string, error) {
	stmt, err := r.valueAt(i)
	if err != nil || stmt == nil {
		return null, err
	}
	p := (*C.char)(unsafe.Pointer(C.sqlite3_column_text(stmt, C.int(i))))
	n := C.sqlite3_column_bytes(stmt, C.int(i))
	if p == nil {
		if n == 0 {
			return "", nil
		}
		return null, libErr(C.sqlite3_errcode(r.s.h.conn.db), r.s.h.conn.db)
	}
	return C.GoStringN(p, n), nil
}

// Blob returns a copy of column i as bytes, or null if it holds NULL. The
// length of the value is len of the result.
func (r *Row) Blob(i int, null []byte) ([]byte, error) {
	stmt, err := r.valueAt(i)
	if err != nil || stmt == nil {
		return null, err
	}
	p := C.sqlite3_column_blob(stmt, C.int(i))
	n := C.sqlite3_column_bytes(stmt, C.int(i))
	if n == 0 {
		return []byte{}, nil
	}
	if p == nil {
		return null, libErr(C.sqlite3_errcode(r.s.h.conn.db), r.s.h.conn.db)
	}
	return C.GoBytes(p, n), nil
}

// IntByName is Int for the column called name.
func (r *Row) IntByName(name string, null int) (int, error) {
	i, err := r.FieldIndex(name)
	if err != nil {
		return null, err
	}
	return r.Int(i, null)
}

// Int64ByName is Int64 for the column called name.
func (r *Row) Int64ByName(name string, null int64) (int64, error) {
	i, err := r.FieldIndex(name)
	if err != nil {
		return null, err
	}
	return r.Int64(i, null)
}

// FloatByName is Float for the column called name.
func (r *Row) FloatByName(name string, null float64) (float64, error) {
	i, err := r.FieldIndex(name)
	if err != nil {
		return null, err
	}
	return r.Float(i, null)
}

// StringByName is String for the column called name.
func (r *Row) StringByName(name string, null string) (string, error) {
	i, err := r.FieldIndex(name)
	if err != nil {
		return null, err
	}
	return r.String(i, null)
}

// BlobByName is Blob for the column called name.
func (r *Row) BlobByName(name string, null []byte) ([]byte, error) {
	i, err := r.FieldIndex(name)
	if err != nil {
		return null, err
	}
	return r.Blob(i, null)
}

// IsNullByName is IsNull for the column called name.
func (r *Row) IsNullByName(name string) (bool, error) {
	i, err := r.FieldIndex(name)
	if err != nil {
		return false, err
	}
	return r.IsNull(i)
}
