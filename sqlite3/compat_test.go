// Copyright 2018 The go-sqlite-lite Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sqlite3

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite" // pure go sqlite driver, reads files written here
)

// TestCrossEngine checks that a file written through this package in exclusive
// WAL mode is an ordinary SQLite database once the connection is closed.
func TestCrossEngine(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "shared.db")

	db, err := Open(fname)
	require.NoError(t, err)
	exec(t, db, "CREATE TABLE people(id INTEGER PRIMARY KEY, name TEXT, score REAL)")
	require.NoError(t, db.WithTx(func() error {
		s, err := db.Compile("INSERT INTO people(name, score) VALUES(?, ?)")
		if err != nil {
			return err
		}
		defer s.Finalize()
		for i, name := range []string{"O'Brien", "Zoë", "plain"} {
			if err = s.Bind(name, float64(i)+0.5); err != nil {
				return err
			}
			if err = s.Execute(); err != nil {
				return err
			}
		}
		return nil
	}))
	require.NoError(t, db.Close())

	other, err := sql.Open("sqlite", fname)
	require.NoError(t, err)
	defer other.Close()

	var n int
	require.NoError(t, other.QueryRow("SELECT COUNT(*) FROM people").Scan(&n))
	assert.Equal(t, 3, n)

	var score float64
	require.NoError(t, other.QueryRow("SELECT score FROM people WHERE name = ?", "O'Brien").Scan(&score))
	assert.Equal(t, 0.5, score)

	// and the other way around
	_, err = other.Exec("INSERT INTO people(name, score) VALUES('from modernc', 9)")
	require.NoError(t, err)
	require.NoError(t, other.Close())

	db = open(t, fname, WithExclusiveWAL(false))
	ok, err := db.TableExists("people")
	require.NoError(t, err)
	assert.True(t, ok)
	n, err = db.Scalar("SELECT COUNT(*) FROM people", -1)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
