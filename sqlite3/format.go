// Copyright 2018 The go-sqlite-lite Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sqlite3

/*
#include <stdlib.h>
#include <sqlite3.h>

// cgo doesn't handle variadic functions.
static char *format_str(int mode, const char *s) {
	switch (mode) {
	case 'q': return sqlite3_mprintf("%q", s);
	case 'Q': return sqlite3_mprintf("%Q", s);
	case 'w': return sqlite3_mprintf("\"%w\"", s);
	}
	return 0;
}
static char *format_int(sqlite3_int64 v) {
	return sqlite3_mprintf("%lld", v);
}
static char *format_float(double v) {
	return sqlite3_mprintf("%!.15g", v);
}
*/
import "C"

import (
	"strings"
	"unsafe"
)

type argKind int

const (
	argEscape argKind = iota
	argLiteral
	argIdent
	argNull
	argInt
	argFloat
	argFragment
)

// printf directive per string argument kind.
var strModes = [...]C.int{argEscape: 'q', argLiteral: 'Q', argIdent: 'w'}

// Arg is a typed value substituted into a Format template. Arguments are
// created with Esc, Lit, Null, Ident, Int, Float and Frag; the constructor
// decides how the value is quoted.
type Arg struct {
	kind argKind
	s    string
	i    int64
	f    float64
}

// Esc doubles every single quote in s, for use inside a quoted literal in the
// template. It is SQLite's %q directive.
func Esc(s string) Arg { return Arg{kind: argEscape, s: s} }

// Lit renders s as a complete single-quoted literal, quotes included. It is
// SQLite's %Q directive.
func Lit(s string) Arg { return Arg{kind: argLiteral, s: s} }

// Null renders the NULL keyword, what %Q produces for a null pointer.
func Null() Arg { return Arg{kind: argNull} }

// Ident renders s as a double-quoted identifier.
func Ident(s string) Arg { return Arg{kind: argIdent, s: s} }

// Int renders v as a decimal integer.
func Int(v int64) Arg { return Arg{kind: argInt, i: v} }

// Float renders v the way SQLite prints REAL values.
func Float(v float64) Arg { return Arg{kind: argFloat, f: v} }

// Frag inserts s unchanged. It is meant for SQL text built by an earlier
// Format call, like SQLite's %z directive, and must never carry user input.
func Frag(s string) Arg { return Arg{kind: argFragment, s: s} }

func (a Arg) render() (string, error) {
	var p *C.char
	switch a.kind {
	case argFragment:
		return a.s, nil
	case argNull:
		return "NULL", nil
	case argEscape, argLiteral, argIdent:
		cs := C.CString(a.s)
		p = C.format_str(strModes[a.kind], cs)
		C.free(unsafe.Pointer(cs))
	case argInt:
		p = C.format_int(C.sqlite3_int64(a.i))
	case argFloat:
		p = C.format_float(C.double(a.f))
	default:
		return "", pkgErr(KindFormat, MISUSE, "unknown format argument kind %d", int(a.kind))
	}
	if p == nil {
		return "", pkgErr(KindFormat, NOMEM, "unable to apply format to SQL string")
	}
	defer C.sqlite3_free(unsafe.Pointer(p))
	return C.GoString(p), nil
}

// Format substitutes args, in order, for the {} placeholders in template. A
// literal brace is written as {{ or }}. A placeholder count that does not match
// len(args), or a stray brace, is a KindFormat error.
//
//	Format("SELECT * FROM {} WHERE name = {}", Ident("t"), Lit("O'Brien"))
//	// SELECT * FROM "t" WHERE name = 'O''Brien'
func Format(template string, args ...Arg) (string, error) {
	var b strings.Builder
	b.Grow(len(template))

	n := 0
	for i := 0; i < len(template); i++ {
		c := template[i]
		switch {
		case c == '{' && i+1 < len(template) && template[i+1] == '{':
			b.WriteByte('{')
			i++
		case c == '}' && i+1 < len(template) && template[i+1] == '}':
			b.WriteByte('}')
			i++
		case c == '{' && i+1 < len(template) && template[i+1] == '}':
			if n >= len(args) {
				return "", pkgErr(KindFormat, RANGE, "template has more placeholders than the %d arguments given", len(args))
			}
			s, err := args[n].render()
			if err != nil {
				return "", err
			}
			b.WriteString(s)
			n++
			i++
		case c == '{' || c == '}':
			return "", pkgErr(KindFormat, ERROR, "unmatched %q at offset %d in template", c, i)
		default:
			b.WriteByte(c)
		}
	}
	if n != len(args) {
		return "", pkgErr(KindFormat, RANGE, "template has %d placeholders, got %d arguments", n, len(args))
	}
	return b.String(), nil
}

// Escape returns s with every single quote doubled (%q).
func Escape(s string) (string, error) {
	return Esc(s).render()
}

// QuoteLiteral returns s as a single-quoted SQL literal (%Q).
func QuoteLiteral(s string) (string, error) {
	return Lit(s).render()
}

// QuoteNull returns the literal %Q produces for a null string, "NULL".
func QuoteNull() string {
	return "NULL"
}

// QuoteIdent returns s as a double-quoted SQL identifier.
func QuoteIdent(s string) (string, error) {
	return Ident(s).render()
}
