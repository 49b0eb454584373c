// Copyright 2018 The go-sqlite-lite Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sqlite3

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type triple struct {
	a int
	b string
	c interface{}
}

func readTriples(t *testing.T, db *Database, sql string) []triple {
	t.Helper()
	s, err := db.Query(sql)
	require.NoError(t, err)
	defer s.Finalize()

	var res []triple
	for ok := s.HasRow(); ok; ok, err = s.NextRow() {
		row, err := s.CurrentRow()
		require.NoError(t, err)
		var tr triple
		tr.a, err = row.Int(0, -1)
		require.NoError(t, err)
		tr.b, err = row.String(1, "<null>")
		require.NoError(t, err)
		null, err := row.IsNull(2)
		require.NoError(t, err)
		if !null {
			tr.c, err = row.Float(2, 0)
			require.NoError(t, err)
		}
		res = append(res, tr)
	}
	require.NoError(t, err)
	return res
}

func TestBindCursor(t *testing.T) {
	db := open(t, ":memory:")
	exec(t, db, "CREATE TABLE t(a, b, c)")

	s := compile(t, db, "INSERT INTO t VALUES(?, ?, ?)")
	defer s.Finalize()
	assert.Equal(t, 3, s.BindParameterCount())

	require.NoError(t, s.BindInt(1))
	require.NoError(t, s.BindText("x"))
	require.NoError(t, s.BindNull())
	require.NoError(t, s.Execute())
	assert.Equal(t, 1, db.RowsChanged())

	// a bind after execute starts over at slot 1, Same keeps slot 2
	require.NoError(t, s.Bind(2, Same, 3.5))
	require.NoError(t, s.Execute())

	// only slot 1 rebound, the rest carries over
	require.NoError(t, s.BindInt(3))
	require.NoError(t, s.Execute())

	// no binds at all reruns the previous set
	require.NoError(t, s.Execute())

	want := []triple{{1, "x", nil}, {2, "x", 3.5}, {3, "x", 3.5}, {3, "x", 3.5}}
	assert.Equal(t, want, readTriples(t, db, "SELECT a, b, c FROM t ORDER BY rowid"))
}

func TestBindTypes(t *testing.T) {
	db := open(t, ":memory:")

	s := compile(t, db, "SELECT typeof(?), typeof(?), typeof(?), typeof(?), typeof(?), typeof(?), typeof(?), typeof(?)")
	defer s.Finalize()

	require.NoError(t, s.Bind(1, int64(2), 3.0, true, "s", []byte("b"), []byte{}, nil))
	require.NoError(t, s.Execute())
	row, err := s.CurrentRow()
	require.NoError(t, err)

	want := []string{"integer", "integer", "real", "integer", "text", "blob", "blob", "null"}
	for i, w := range want {
		v, err := row.String(i, "")
		require.NoError(t, err)
		assert.Equal(t, w, v, "column %d", i)
	}

	require.NoError(t, s.BindBlob(nil))
	require.NoError(t, s.Execute())
	v, err := row.String(0, "")
	require.NoError(t, err)
	assert.Equal(t, "null", v)
}

func TestBindError(t *testing.T) {
	db := open(t, ":memory:")

	s := compile(t, db, "SELECT ?")
	defer s.Finalize()

	require.NoError(t, s.BindInt(1))
	err := s.BindInt(2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBind), err.Error())
	errCode(t, err, RANGE)

	err = s.Bind(struct{}{})
	assert.True(t, errors.Is(err, ErrBind), err.Error())

	// the cursor restarts on the next cycle
	require.NoError(t, s.Execute())
	require.NoError(t, s.BindText("again"))
	require.NoError(t, s.Execute())
	row, err := s.CurrentRow()
	require.NoError(t, err)
	v, err := row.String(0, "")
	require.NoError(t, err)
	assert.Equal(t, "again", v)
}

func TestNextRow(t *testing.T) {
	db := open(t, ":memory:")
	exec(t, db, "CREATE TABLE t(a); INSERT INTO t VALUES(1); INSERT INTO t VALUES(2); INSERT INTO t VALUES(3)")

	s := compile(t, db, "SELECT a FROM t ORDER BY a")
	defer s.Finalize()
	assert.False(t, s.HasRow())
	_, err := s.CurrentRow()
	assert.True(t, errors.Is(err, ErrState))

	require.NoError(t, s.Execute())
	var got []int
	for {
		row, err := s.CurrentRow()
		require.NoError(t, err)
		v, err := row.Int(0, -1)
		require.NoError(t, err)
		got = append(got, v)

		ok, err := s.NextRow()
		require.NoError(t, err)
		if !ok {
			break
		}
	}
	assert.Equal(t, []int{1, 2, 3}, got)

	for i := 0; i < 3; i++ {
		ok, err := s.NextRow()
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.False(t, s.HasRow())
	_, err = s.CurrentRow()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrState))
	assert.False(t, IsMisuse(err))

	// no rows at all
	require.NoError(t, db.Exec("DELETE FROM t"))
	require.NoError(t, s.Execute())
	assert.False(t, s.HasRow())
	ok, err := s.NextRow()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExecuteRestart(t *testing.T) {
	db := open(t, ":memory:")
	exec(t, db, "CREATE TABLE t(a); INSERT INTO t VALUES(1); INSERT INTO t VALUES(2)")

	s := compile(t, db, "SELECT a FROM t ORDER BY a")
	defer s.Finalize()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Execute())
		row, err := s.CurrentRow()
		require.NoError(t, err)
		v, err := row.Int(0, -1)
		require.NoError(t, err)
		assert.Equal(t, 1, v, "abandoned iteration restarts from the first row")
	}
}

func TestExecuteError(t *testing.T) {
	db := open(t, ":memory:")
	exec(t, db, "CREATE TABLE t(a UNIQUE)")

	s := compile(t, db, "INSERT INTO t VALUES(?)")
	defer s.Finalize()

	require.NoError(t, s.BindInt(1))
	require.NoError(t, s.Execute())
	require.NoError(t, s.BindInt(1))
	err := s.Execute()
	require.Error(t, err)
	errCode(t, err, CONSTRAINT)
	assert.True(t, errors.Is(err, ErrSQL))
	assert.Equal(t, "SQLITE_CONSTRAINT", err.(*Error).CodeName())
	assert.False(t, s.HasRow())

	require.NoError(t, s.BindInt(2))
	require.NoError(t, s.Execute())
	n, err := db.Scalar("SELECT COUNT(*) FROM t", -1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestFinalize(t *testing.T) {
	db := open(t, ":memory:")

	s := compile(t, db, "SELECT 1")
	require.NoError(t, s.Execute())
	row, err := s.CurrentRow()
	require.NoError(t, err)

	assert.True(t, s.Valid())
	s.Finalize()
	s.Finalize()
	assert.NoError(t, s.Close())
	assert.False(t, s.Valid())

	assert.Equal(t, ErrBadStmt, s.Execute())
	_, err = s.NextRow()
	assert.Equal(t, ErrBadStmt, err)
	_, err = s.CurrentRow()
	assert.Equal(t, ErrBadStmt, err)
	assert.Equal(t, ErrBadStmt, s.BindInt(1))
	assert.Equal(t, ErrBadStmt, s.BindSame())
	assert.Equal(t, ErrBadStmt, s.Bind(struct{}{}))
	assert.False(t, s.HasRow())
	assert.Equal(t, "", s.SQL())
	assert.Equal(t, 0, s.ColumnCount())
	assert.Equal(t, 0, s.BindParameterCount())
	assert.False(t, s.ReadOnly())

	_, err = row.Int(0, 0)
	assert.True(t, IsMisuse(err))
	assert.Equal(t, 0, row.FieldCount())
}

func TestTake(t *testing.T) {
	db := open(t, ":memory:")
	exec(t, db, "CREATE TABLE t(a); INSERT INTO t VALUES(1); INSERT INTO t VALUES(2)")

	src := compile(t, db, "SELECT a FROM t ORDER BY a")
	defer src.Finalize()
	require.NoError(t, src.Execute())
	srcRow, err := src.CurrentRow()
	require.NoError(t, err)

	dst := src.Take()
	defer dst.Finalize()

	// the source is inert
	assert.False(t, src.Valid())
	assert.False(t, src.HasRow())
	assert.Equal(t, ErrBadStmt, src.Execute())
	_, err = src.NextRow()
	assert.Equal(t, ErrBadStmt, err)
	_, err = srcRow.Int(0, 0)
	assert.Equal(t, ErrBadStmt, err)
	src.Finalize()

	// the destination carries on where the source was
	require.True(t, dst.HasRow())
	row, err := dst.CurrentRow()
	require.NoError(t, err)
	v, err := row.Int(0, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	ok, err := dst.NextRow()
	require.NoError(t, err)
	require.True(t, ok)
	v, err = row.Int(0, -1)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	// taking from an inert statement yields another inert one
	assert.False(t, src.Take().Valid())
}

func TestMoveTo(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)

	a := compile(t, db, "SELECT 'a'")
	b := compile(t, db, "SELECT 'b'")

	a.MoveTo(b)
	assert.False(t, a.Valid())
	assert.Equal(t, "SELECT 'a'", b.SQL())
	b.MoveTo(b)
	assert.True(t, b.Valid())

	require.NoError(t, b.Execute())
	row, err := b.CurrentRow()
	require.NoError(t, err)
	v, err := row.String(0, "")
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	// b's original statement was finalized by the move
	b.Finalize()
	assert.NoError(t, db.Close())
}

func TestStmtMeta(t *testing.T) {
	db := open(t, ":memory:")
	exec(t, db, "CREATE TABLE t(a, b)")

	s := compile(t, db, "SELECT a, b FROM t WHERE a = ?")
	defer s.Finalize()
	assert.Equal(t, "SELECT a, b FROM t WHERE a = ?", s.SQL())
	assert.Equal(t, 2, s.ColumnCount())
	assert.Equal(t, 1, s.BindParameterCount())
	assert.True(t, s.ReadOnly())

	w := compile(t, db, "DELETE FROM t")
	defer w.Finalize()
	assert.False(t, w.ReadOnly())
	assert.Equal(t, 0, w.ColumnCount())
}

func abandon(t *testing.T, db *Database) {
	s := compile(t, db, "SELECT 1")
	require.NoError(t, s.Execute())
}

func TestStmtFinalizer(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)

	abandon(t, db)
	require.Eventually(t, func() bool {
		runtime.GC()
		return db.Close() == nil
	}, 5*time.Second, 10*time.Millisecond)
}
