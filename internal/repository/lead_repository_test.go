package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/devlanding/leads-api/internal/models"
	"github.com/devlanding/leads-api/internal/repository"
	"github.com/devlanding/leads-api/pkg/db"
	apperrors "github.com/devlanding/leads-api/pkg/errors"
	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var leadColumns = []string{"id", "email", "phone", "is_programmer", "utm_source", "utm_medium", "utm_campaign", "ip_address", "user_agent", "created_at"}

func strPtr(s string) *string { return &s }

func newMockedPool(t *testing.T, maxConns int32) (pgxmock.PgxPoolIface, *db.Pool) {
	t.Helper()

	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	pool := db.NewPool(db.PoolConfig{
		URL:            "postgres://leads@db.internal/leads",
		MaxConns:       maxConns,
		ConnectTimeout: 100 * time.Millisecond,
	}, db.ConnectorFunc(func(ctx context.Context) (db.Querier, func(), error) {
		return mockPool, func() {}, nil
	}))

	return mockPool, pool
}

func TestLeadRepository_Create(t *testing.T) {
	t.Run("Should insert lead and return server-assigned fields", func(t *testing.T) {
		mockPool, pool := newMockedPool(t, 1)
		repo := repository.NewLeadRepository(pool)
		ctx := context.Background()

		lead := &models.QualifiedLead{
			Email:        "a@b.com",
			Phone:        "123",
			IsProgrammer: true,
			UTMSource:    strPtr("newsletter"),
		}
		id := uuid.NewString()
		createdAt := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
		var nilString *string

		rows := mockPool.NewRows(leadColumns).
			AddRow(id, "a@b.com", "123", true, strPtr("newsletter"), nilString, nilString, nilString, nilString, createdAt)
		mockPool.ExpectQuery("INSERT INTO qualified_leads").
			WithArgs("a@b.com", "123", true, lead.UTMSource, nilString, nilString, nilString, nilString).
			WillReturnRows(rows)

		stored, err := repo.Create(ctx, lead)
		require.NoError(t, err)

		assert.Equal(t, id, stored.ID)
		assert.Equal(t, createdAt, stored.CreatedAt)
		assert.Equal(t, "a@b.com", stored.Email)
		require.NotNil(t, stored.UTMSource)
		assert.Equal(t, "newsletter", *stored.UTMSource)
		assert.Nil(t, stored.UTMMedium)
		assert.Equal(t, int64(0), pool.InUse())
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should classify backend rejection and release the connection", func(t *testing.T) {
		mockPool, pool := newMockedPool(t, 1)
		repo := repository.NewLeadRepository(pool)

		anyArgs := make([]interface{}, 8)
		for i := range anyArgs {
			anyArgs[i] = pgxmock.AnyArg()
		}
		mockPool.ExpectQuery("INSERT INTO qualified_leads").
			WithArgs(anyArgs...).
			WillReturnError(errors.New(`new row violates check constraint "qualified_leads_phone_not_blank"`))

		stored, err := repo.Create(context.Background(), &models.QualifiedLead{Email: "a@b.com", Phone: " "})
		assert.Nil(t, stored)

		var perr *apperrors.PersistenceError
		require.ErrorAs(t, err, &perr)
		assert.Contains(t, perr.Cause.Error(), "check constraint")
		assert.Equal(t, int64(0), pool.InUse())
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should return pool exhaustion without touching the backend", func(t *testing.T) {
		mockPool, pool := newMockedPool(t, 1)
		repo := repository.NewLeadRepository(pool)

		held, err := pool.Acquire(context.Background())
		require.NoError(t, err)
		defer held.Release()

		stored, err := repo.Create(context.Background(), &models.QualifiedLead{Email: "a@b.com", Phone: "1"})
		assert.Nil(t, stored)
		assert.ErrorIs(t, err, apperrors.ErrPoolExhausted)
		assert.NotErrorIs(t, err, apperrors.ErrPersistence)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}
