package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dom/videotube-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockRepo(t *testing.T) (*userRepository, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewUserRepository(db), mock
}

// The rotation must be a single conditional UPDATE so concurrent refreshes
// cannot both succeed.
func TestRotateRefreshToken_ConditionalUpdate(t *testing.T) {
	rotate := `UPDATE "users" SET "refresh_token"=\$1,"updated_at"=\$2 WHERE \(?id = \$3 AND refresh_token = \$4\)?`

	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		want    bool
		wantErr bool
	}{
		{
			name: "current token matches",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(rotate).WillReturnResult(sqlmock.NewResult(0, 1))
			},
			want: true,
		},
		{
			name: "token already rotated",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(rotate).WillReturnResult(sqlmock.NewResult(0, 0))
			},
			want: false,
		},
		{
			name: "database error",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(rotate).WillReturnError(errors.New("connection reset"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			tt.setup(mock)

			ok, err := repo.RotateRefreshToken(context.Background(), uuid.New(), "current", "next")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, ok)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestClearRefreshToken_MissingUser(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "users" SET`)).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.ClearRefreshToken(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
