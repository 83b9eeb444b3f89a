package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/guestgc/internal/errs"
	"github.com/and161185/guestgc/internal/model"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

func TestAccountRepo_Create(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)
	ctx := context.Background()

	a := &model.Account{
		ID:     uuid.Must(uuid.NewV4()),
		Name:   "guest-1",
		Role:   model.RoleGuest,
		Status: model.StatusActive,
	}
	mock.ExpectExec(`INSERT INTO accounts \(id, name, role, status, expires_at\)`).
		WithArgs(a.ID, a.Name, int16(model.RoleGuest), string(model.StatusActive), (*time.Time)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Create(ctx, a))
}

func TestAccountRepo_GetByID(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`SELECT id, name, role, status, expires_at, created_at FROM accounts WHERE id=\$1`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "role", "status", "expires_at", "created_at"}).
			AddRow(id, "guest-1", int16(model.RoleGuest), string(model.StatusActive), nil, time.Now()))
	a, err := r.GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, id, a.ID)
	require.Equal(t, model.RoleGuest, a.Role)
	require.Equal(t, model.StatusActive, a.Status)

	mock.ExpectQuery(`SELECT id, name, role, status, expires_at, created_at FROM accounts WHERE id=\$1`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByID(ctx, id)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestAccountRepo_UpdateRole_SetStatus(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())

	mock.ExpectExec(`UPDATE accounts SET role=\$2 WHERE id=\$1`).
		WithArgs(id, int16(model.RoleGuest)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.UpdateRole(ctx, id, model.RoleGuest))

	mock.ExpectExec(`UPDATE accounts SET role=\$2 WHERE id=\$1`).
		WithArgs(id, int16(model.RoleGuest)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	require.ErrorIs(t, r.UpdateRole(ctx, id, model.RoleGuest), errs.ErrNotFound)

	mock.ExpectExec(`UPDATE accounts SET status=\$2 WHERE id=\$1`).
		WithArgs(id, string(model.StatusMarkedForDeletion)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.SetStatus(ctx, id, model.StatusMarkedForDeletion))
}

func TestAccountRepo_ListCollectable(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)
	ctx := context.Background()

	u1 := uuid.Must(uuid.NewV4())
	u2 := uuid.Must(uuid.NewV4())
	since := time.Now().Add(-time.Minute)

	mock.ExpectQuery(`SELECT a\.id\s+FROM accounts a\s+LEFT JOIN connection_records c`).
		WithArgs(int16(model.RoleGuest), string(model.StatusMarkedForDeletion), since).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(u1).AddRow(u2))
	ids, err := r.ListCollectable(ctx, since)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{u1, u2}, ids)
}

func TestAccountRepo_Delete(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())

	mock.ExpectBeginTx(pgx.TxOptions{})
	mock.ExpectExec(`DELETE FROM access_rights WHERE principal_kind='account' AND principal_id=\$1`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM accounts WHERE id=\$1`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()
	require.NoError(t, r.Delete(ctx, id))

	mock.ExpectBeginTx(pgx.TxOptions{})
	mock.ExpectExec(`DELETE FROM access_rights WHERE principal_kind='account' AND principal_id=\$1`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`DELETE FROM accounts WHERE id=\$1`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectRollback()
	require.ErrorIs(t, r.Delete(ctx, id), errs.ErrNotFound)
}
