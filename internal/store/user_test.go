package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserRepoMock(t *testing.T) (*UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewUserRepository(db), mock
}

func userRows(id int64, email, hash string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "email", "password_hash", "created_at", "updated_at"}).
		AddRow(id, email, hash, now, now)
}

func TestUserRepository_Create(t *testing.T) {
	repo, mock := newUserRepoMock(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("jane@example.com", "hash", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	user, err := repo.Create(context.Background(), "jane@example.com", "hash")
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, "jane@example.com", user.Email)
	assert.Equal(t, "hash", user.PasswordHash)
	assert.False(t, user.CreatedAt.IsZero())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateDuplicateEmail(t *testing.T) {
	repo, mock := newUserRepoMock(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("jane@example.com", "hash", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	_, err := repo.Create(context.Background(), "jane@example.com", "hash")
	assert.ErrorIs(t, err, ErrEmailTaken)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByEmail(t *testing.T) {
	repo, mock := newUserRepoMock(t)

	mock.ExpectQuery(`SELECT id, email, password_hash, created_at, updated_at\s+FROM users\s+WHERE email = \$1`).
		WithArgs("jane@example.com").
		WillReturnRows(userRows(7, "jane@example.com", "hash"))

	user, err := repo.GetByEmail(context.Background(), "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, "hash", user.PasswordHash)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByEmailNotFound(t *testing.T) {
	repo, mock := newUserRepoMock(t)

	mock.ExpectQuery(`SELECT id, email, password_hash, created_at, updated_at\s+FROM users\s+WHERE email = \$1`).
		WithArgs("nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByIDNotFound(t *testing.T) {
	repo, mock := newUserRepoMock(t)

	mock.ExpectQuery(`SELECT id, email, password_hash, created_at, updated_at\s+FROM users\s+WHERE id = \$1`).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
