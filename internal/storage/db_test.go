package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewDBRejectsMalformedDSN(t *testing.T) {
	db, err := NewDB(context.Background(), "postgres://reportrag@localhost:notaport/reportrag")
	require.ErrorContains(t, err, "parse postgres config")
	require.Nil(t, db)
}

func TestCloseNilDB(t *testing.T) {
	var db *DB
	require.NotPanics(t, db.Close)
	require.NotPanics(t, (&DB{}).Close)
}
