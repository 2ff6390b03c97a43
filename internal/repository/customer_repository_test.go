package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shri22/vmurugan-gold-trading-sub000/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomerRepository_Credit(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewCustomerRepository(db)
	ctx := context.Background()

	t.Run("first credit creates the customer row", func(t *testing.T) {
		at := time.Now().Truncate(time.Second)
		err := repo.Credit(ctx, model.CustomerCredit{
			Phone:         "9876543210",
			GoldGrams:     0.8333,
			Amount:        5000,
			TransactionAt: at,
		})
		require.NoError(t, err)

		c, err := repo.GetByPhone(ctx, "9876543210")
		require.NoError(t, err)
		assert.Equal(t, 0.8333, c.TotalGold)
		assert.Equal(t, 0.0, c.TotalSilver)
		assert.Equal(t, 5000.0, c.TotalInvested)
		assert.Equal(t, 1, c.TransactionCount)
		require.NotNil(t, c.LastTransaction)
		assert.WithinDuration(t, at, *c.LastTransaction, time.Second)
	})

	t.Run("credits accumulate", func(t *testing.T) {
		err := repo.Credit(ctx, model.CustomerCredit{
			Phone:         "9876543210",
			SilverGrams:   20,
			Amount:        1500,
			TransactionAt: time.Now(),
		})
		require.NoError(t, err)

		c, err := repo.GetByPhone(ctx, "9876543210")
		require.NoError(t, err)
		assert.Equal(t, 0.8333, c.TotalGold)
		assert.Equal(t, 20.0, c.TotalSilver)
		assert.Equal(t, 6500.0, c.TotalInvested)
		assert.Equal(t, 2, c.TransactionCount)
	})

	t.Run("credit is additive, never a replace", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			err := repo.Credit(ctx, model.CustomerCredit{
				Phone:         "9876543210",
				GoldGrams:     0.1,
				Amount:        600,
				TransactionAt: time.Now(),
			})
			require.NoError(t, err)
		}

		c, err := repo.GetByPhone(ctx, "9876543210")
		require.NoError(t, err)
		assert.InDelta(t, 1.1333, c.TotalGold, 1e-9)
		assert.Equal(t, 8300.0, c.TotalInvested)
		assert.Equal(t, 5, c.TransactionCount)
	})
}

func TestCustomerRepository_GetByPhone(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewCustomerRepository(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, &model.Customer{Phone: "9000000001", Name: "Lakshmi"})
	require.NoError(t, err)

	t.Run("existing customer", func(t *testing.T) {
		c, err := repo.GetByPhone(ctx, "9000000001")
		require.NoError(t, err)
		assert.Equal(t, "Lakshmi", c.Name)
	})

	t.Run("unknown phone", func(t *testing.T) {
		_, err := repo.GetByPhone(ctx, "9999999999")
		assert.ErrorIs(t, err, ErrCustomerNotFound)
	})
}

func TestCustomerRepository_UpdateProfile(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewCustomerRepository(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, &model.Customer{Phone: "9000000002", Name: "Customer"})
	require.NoError(t, err)

	t.Run("fills name and email", func(t *testing.T) {
		err := repo.UpdateProfile(ctx, "9000000002", "Ravi Kumar", "ravi@example.com")
		require.NoError(t, err)

		c, err := repo.GetByPhone(ctx, "9000000002")
		require.NoError(t, err)
		assert.Equal(t, "Ravi Kumar", c.Name)
		assert.Equal(t, "ravi@example.com", c.Email)
	})

	t.Run("empty values leave existing data alone", func(t *testing.T) {
		err := repo.UpdateProfile(ctx, "9000000002", "", "")
		require.NoError(t, err)

		c, err := repo.GetByPhone(ctx, "9000000002")
		require.NoError(t, err)
		assert.Equal(t, "Ravi Kumar", c.Name)
	})
}
