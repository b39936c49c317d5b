package customer

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
	"github.com/your-org/storefront-backend/internal/testutil"
)

func strPtr(s string) *string { return &s }

func TestGetOrCreate_SingleProfile(t *testing.T) {
	db := testutil.NewDB(t, &Customer{})
	svc := NewService(db, logger.Discard())
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]uint, 4)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			profile, err := svc.GetOrCreate(ctx, 3)
			if assert.NoError(t, err) {
				ids[i] = profile.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}

	var count int64
	require.NoError(t, db.Model(&Customer{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	_, err := svc.GetOrCreate(ctx, 0)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestUpdate_Partial(t *testing.T) {
	db := testutil.NewDB(t, &Customer{})
	svc := NewService(db, logger.Discard())
	ctx := context.Background()

	profile, err := svc.Update(ctx, 5, &UpdateRequest{
		Phone:      strPtr("+91 98765 43210"),
		Address:    strPtr("14 MG Road"),
		City:       strPtr("Pune"),
		State:      strPtr("Maharashtra"),
		PostalCode: strPtr("411001"),
	})
	require.NoError(t, err)
	assert.True(t, profile.IsComplete())

	profile, err = svc.Update(ctx, 5, &UpdateRequest{City: strPtr("Mumbai")})
	require.NoError(t, err)
	assert.Equal(t, "Mumbai", profile.City)
	assert.Equal(t, "14 MG Road", profile.Address)
	assert.Equal(t, "+91 98765 43210", profile.Phone)
	assert.Equal(t, "411001", profile.PostalCode)

	unchanged, err := svc.Update(ctx, 5, &UpdateRequest{})
	require.NoError(t, err)
	assert.Equal(t, profile.City, unchanged.City)
}

func TestUpdate_Validation(t *testing.T) {
	db := testutil.NewDB(t, &Customer{})
	svc := NewService(db, logger.Discard())
	ctx := context.Background()

	_, err := svc.Update(ctx, 5, &UpdateRequest{Phone: strPtr("call me")})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = svc.Update(ctx, 5, &UpdateRequest{PostalCode: strPtr("12345678901")})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	// The phone column holds 15 characters, plus sign included
	_, err = svc.Update(ctx, 5, &UpdateRequest{Phone: strPtr("+91 98765 432109")})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	_, err = svc.Update(ctx, 5, &UpdateRequest{Phone: strPtr("9876543210123456")})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	profile, err := svc.GetOrCreate(ctx, 5)
	require.NoError(t, err)
	assert.False(t, profile.IsComplete())
	assert.Empty(t, profile.Phone)

	profile, err = svc.Update(ctx, 5, &UpdateRequest{Phone: strPtr("+91 98765 43210")})
	require.NoError(t, err)
	assert.Equal(t, "+91 98765 43210", profile.Phone)
	profile, err = svc.Update(ctx, 5, &UpdateRequest{Phone: strPtr("987654321012345")})
	require.NoError(t, err)
	assert.Equal(t, "987654321012345", profile.Phone)
}
