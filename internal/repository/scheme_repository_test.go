package repository

import (
	"context"
	"testing"

	"github.com/shri22/vmurugan-gold-trading-sub000/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScheme(schemeID, phone string, metal model.MetalType, status model.SchemeStatus) *model.Scheme {
	return &model.Scheme{
		SchemeID:      schemeID,
		Phone:         phone,
		MetalType:     metal,
		Type:          "MONTHLY",
		MonthlyAmount: 5000,
		Status:        status,
	}
}

func TestSchemeRepository_FindActive(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewSchemeRepository(db)
	ctx := context.Background()

	seed := []*model.Scheme{
		newScheme("SCH001", "9876543210", model.MetalGold, model.SchemeStatusActive),
		newScheme("SCH002", "9876543210", model.MetalSilver, model.SchemeStatusActive),
		newScheme("SCH003", "9876543210", model.MetalGold, model.SchemeStatusCancelled),
		newScheme("SCH004", "9000000001", model.MetalGold, model.SchemeStatusActive),
		newScheme("SCH005", "9000000001", model.MetalGold, model.SchemeStatusActive),
	}
	for _, s := range seed {
		_, err := repo.Create(ctx, s)
		require.NoError(t, err)
	}

	t.Run("single active scheme", func(t *testing.T) {
		schemes, err := repo.FindActive(ctx, "9876543210", model.MetalGold)
		require.NoError(t, err)
		require.Len(t, schemes, 1)
		assert.Equal(t, "SCH001", schemes[0].SchemeID)
	})

	t.Run("cancelled schemes are excluded", func(t *testing.T) {
		schemes, err := repo.FindActive(ctx, "9876543210", model.MetalSilver)
		require.NoError(t, err)
		require.Len(t, schemes, 1)
		assert.Equal(t, "SCH002", schemes[0].SchemeID)
	})

	t.Run("multiple active schemes are all returned", func(t *testing.T) {
		schemes, err := repo.FindActive(ctx, "9000000001", model.MetalGold)
		require.NoError(t, err)
		assert.Len(t, schemes, 2)
	})

	t.Run("no schemes", func(t *testing.T) {
		schemes, err := repo.FindActive(ctx, "9111111111", model.MetalGold)
		require.NoError(t, err)
		assert.Empty(t, schemes)
	})
}

func TestSchemeRepository_Credit(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewSchemeRepository(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, newScheme("SCH010", "9876543210", model.MetalGold, model.SchemeStatusActive))
	require.NoError(t, err)

	t.Run("installments accumulate", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			err := repo.Credit(ctx, SchemeCredit{
				SchemeID:   "SCH010",
				Amount:     5000,
				MetalGrams: 0.8333,
			})
			require.NoError(t, err)
		}

		s, err := repo.GetBySchemeID(ctx, "SCH010")
		require.NoError(t, err)
		assert.Equal(t, 10000.0, s.TotalInvested)
		assert.Equal(t, 10000.0, s.TotalAmountPaid)
		assert.InDelta(t, 1.6666, s.TotalMetalAccumulated, 1e-9)
		assert.Equal(t, 2, s.CompletedInstallments)
	})

	t.Run("unknown scheme", func(t *testing.T) {
		err := repo.Credit(ctx, SchemeCredit{SchemeID: "SCH404", Amount: 100})
		assert.ErrorIs(t, err, ErrSchemeNotFound)
	})
}

func TestSchemeRepository_GetBySchemeID(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewSchemeRepository(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, newScheme("SCH020", "9876543210", model.MetalSilver, model.SchemeStatusActive))
	require.NoError(t, err)

	s, err := repo.GetBySchemeID(ctx, "SCH020")
	require.NoError(t, err)
	assert.Equal(t, model.MetalSilver, s.MetalType)

	_, err = repo.GetBySchemeID(ctx, "SCH404")
	assert.ErrorIs(t, err, ErrSchemeNotFound)
}
