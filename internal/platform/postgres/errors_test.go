package postgres

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nate007-quant/mission-control/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	plain := errors.New("something else")

	tests := []struct {
		name    string
		err     error
		wantIs  error
		wantRaw bool
	}{
		{name: "no rows", err: sql.ErrNoRows, wantIs: store.ErrNotFound},
		{name: "check violation", err: &pgconn.PgError{Code: "23514", ConstraintName: "tasks_status_check"}, wantIs: store.ErrInvalidEntity},
		{name: "not null violation", err: &pgconn.PgError{Code: "23502", ColumnName: "title"}, wantIs: store.ErrInvalidEntity},
		{name: "connection failure class", err: &pgconn.PgError{Code: "08006"}, wantIs: store.ErrUnavailable},
		{name: "cannot connect now", err: &pgconn.PgError{Code: "57P03"}, wantIs: store.ErrUnavailable},
		{name: "missing schema", err: &pgconn.PgError{Code: "42P01"}, wantIs: store.ErrUnavailable},
		{name: "bad conn", err: driver.ErrBadConn, wantIs: store.ErrUnavailable},
		{name: "network error", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, wantIs: store.ErrUnavailable},
		{name: "unmapped pg error", err: &pgconn.PgError{Code: "22001"}, wantRaw: true},
		{name: "unmapped error", err: plain, wantRaw: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mapped := MapError(tc.err)
			if tc.wantRaw {
				assert.Equal(t, tc.err, mapped)
				return
			}
			assert.ErrorIs(t, mapped, tc.wantIs)
		})
	}

	assert.NoError(t, MapError(nil))
}

func TestIsCheckConstraintViolation(t *testing.T) {
	assert.True(t, IsCheckConstraintViolation(&pgconn.PgError{Code: "23514"}))
	assert.False(t, IsCheckConstraintViolation(&pgconn.PgError{Code: "23502"}))
	assert.False(t, IsCheckConstraintViolation(errors.New("plain")))
}
