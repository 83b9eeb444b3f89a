package presence

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/guestgc/internal/errs"
)

func newMock(t *testing.T) (*PG, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return NewPGWithQuerier(mock, time.Minute), mock
}

func TestPG_Register(t *testing.T) {
	r, mock := newMock(t)
	defer mock.Close()
	ctx := context.Background()
	accountID := uuid.Must(uuid.NewV4())

	mock.ExpectExec(`INSERT INTO connection_records`).
		WithArgs(pgxmock.AnyArg(), accountID, "tab-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	connID, err := r.Register(ctx, accountID, "tab-1")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, connID)
}

func TestPG_Unregister_Idempotent(t *testing.T) {
	r, mock := newMock(t)
	defer mock.Close()
	ctx := context.Background()
	connID := uuid.Must(uuid.NewV4())

	// dropping an unknown connection is not an error
	mock.ExpectExec(`DELETE FROM connection_records WHERE id=\$1`).
		WithArgs(connID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	require.NoError(t, r.Unregister(ctx, connID))
}

func TestPG_Heartbeat(t *testing.T) {
	r, mock := newMock(t)
	defer mock.Close()
	ctx := context.Background()
	connID := uuid.Must(uuid.NewV4())

	mock.ExpectExec(`UPDATE connection_records SET expires_at=\$2`).
		WithArgs(connID, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.Heartbeat(ctx, connID))

	// record expired between heartbeats: the client must reconnect
	mock.ExpectExec(`UPDATE connection_records SET expires_at=\$2`).
		WithArgs(connID, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	require.ErrorIs(t, r.Heartbeat(ctx, connID), errs.ErrNotFound)
}

func TestPG_Connections(t *testing.T) {
	r, mock := newMock(t)
	defer mock.Close()
	ctx := context.Background()
	accountID := uuid.Must(uuid.NewV4())
	c1 := uuid.Must(uuid.NewV4())
	c2 := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`SELECT id FROM connection_records WHERE account_id=\$1 AND expires_at > now\(\)`).
		WithArgs(accountID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(c1).AddRow(c2))
	ids, err := r.Connections(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	mock.ExpectQuery(`SELECT id FROM connection_records WHERE account_id=\$1 AND expires_at > now\(\)`).
		WithArgs(accountID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))
	ids, err = r.Connections(ctx, accountID)
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestPG_SessionConnections(t *testing.T) {
	r, mock := newMock(t)
	defer mock.Close()
	ctx := context.Background()
	accountID := uuid.Must(uuid.NewV4())
	c1 := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`SELECT id FROM connection_records\s+WHERE account_id=\$1 AND session_id=\$2`).
		WithArgs(accountID, "tab-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(c1))
	ids, err := r.SessionConnections(ctx, accountID, "tab-1")
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{c1}, ids)
}

func TestPG_PurgeExpired(t *testing.T) {
	r, mock := newMock(t)
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM connection_records WHERE expires_at <= now\(\)`).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	n, err := r.PurgeExpired(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
}
