package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/asso-lecture/asso-backend/internal/domain"
	"github.com/asso-lecture/asso-backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var requestCols = []string{"id", "nom", "prenom", "email", "note", "status", "user_id", "decided_at", "created_at", "updated_at"}

func TestStore_AccessRequests(t *testing.T) {
	store, mock, db := setupStore(t)
	defer db.Close()
	ctx := context.Background()
	now := time.Now()

	t.Run("create defaults to pending", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO access_requests`).
			WithArgs(sqlmock.AnyArg(), "Durand", "Ana", "ana@example.org", "", "pending").
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

		r := &domain.AccessRequest{Nom: "Durand", Prenom: "Ana", Email: "ana@example.org"}
		require.NoError(t, store.CreateAccessRequest(ctx, r))
		assert.NotEmpty(t, r.ID)
		assert.Equal(t, domain.RequestPending, r.Status)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("list filters by status", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM access_requests WHERE status = \$1 ORDER BY created_at, id`).
			WithArgs("pending").
			WillReturnRows(sqlmock.NewRows(requestCols).
				AddRow("r1", "Durand", "Ana", "ana@example.org", "", "pending", nil, nil, now, now))

		items, err := store.ListAccessRequests(ctx, storage.AccessRequestFilter{Status: domain.RequestPending})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Nil(t, items[0].UserID)
		assert.Nil(t, items[0].DecidedAt)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("decide a pending request", func(t *testing.T) {
		mock.ExpectQuery(`UPDATE access_requests SET status = \$2, user_id = \$3`).
			WithArgs("r1", "approved", "u9").
			WillReturnRows(sqlmock.NewRows(requestCols).
				AddRow("r1", "Durand", "Ana", "ana@example.org", "", "approved", "u9", now, now, now))

		r, err := store.DecideAccessRequest(ctx, "r1", domain.RequestApproved, "u9")
		require.NoError(t, err)
		assert.Equal(t, domain.RequestApproved, r.Status)
		assert.Equal(t, "u9", domain.StrVal(r.UserID))
		require.NotNil(t, r.DecidedAt)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("an already decided request is a validation error", func(t *testing.T) {
		mock.ExpectQuery(`UPDATE access_requests`).
			WithArgs("r1", "rejected", nil).
			WillReturnRows(sqlmock.NewRows(requestCols))
		mock.ExpectQuery(`SELECT .* FROM access_requests WHERE id = \$1`).
			WithArgs("r1").
			WillReturnRows(sqlmock.NewRows(requestCols).
				AddRow("r1", "Durand", "Ana", "ana@example.org", "", "approved", "u9", now, now, now))

		_, err := store.DecideAccessRequest(ctx, "r1", domain.RequestRejected, "")
		assert.True(t, errors.Is(err, domain.ErrValidation))
		assert.Contains(t, err.Error(), "already approved")

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("a missing request is not found", func(t *testing.T) {
		mock.ExpectQuery(`UPDATE access_requests`).
			WithArgs("nope", "rejected", nil).
			WillReturnRows(sqlmock.NewRows(requestCols))
		mock.ExpectQuery(`SELECT .* FROM access_requests WHERE id = \$1`).
			WithArgs("nope").
			WillReturnRows(sqlmock.NewRows(requestCols))

		_, err := store.DecideAccessRequest(ctx, "nope", domain.RequestRejected, "")
		assert.True(t, errors.Is(err, domain.ErrNotFound))

		require.NoError(t, mock.ExpectationsWereMet())
	})
}
