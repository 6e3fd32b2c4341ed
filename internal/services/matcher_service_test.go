package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/salonflow/queue-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func provider(name string, active bool, serviceIDs ...uuid.UUID) models.ServiceProvider {
	return models.ServiceProvider{
		ID:         uuid.New(),
		Name:       name,
		IsActive:   active,
		ServiceIDs: serviceIDs,
	}
}

func TestMatchProvider(t *testing.T) {
	haircut := uuid.New()
	coloring := uuid.New()

	t.Run("Picks first capable candidate in roster order", func(t *testing.T) {
		a := provider("Amal", true, haircut)
		b := provider("Bimal", true, haircut, coloring)

		got := matchProvider([]models.ServiceProvider{a, b}, []uuid.UUID{haircut}, nil, nil)
		require.NotNil(t, got)
		assert.Equal(t, a.ID, got.ID)
	})

	t.Run("Requires the full capability set", func(t *testing.T) {
		a := provider("Amal", true, haircut)
		b := provider("Bimal", true, haircut, coloring)

		got := matchProvider([]models.ServiceProvider{a, b}, []uuid.UUID{haircut, coloring}, nil, nil)
		require.NotNil(t, got)
		assert.Equal(t, b.ID, got.ID)
	})

	t.Run("Skips busy and on-leave providers", func(t *testing.T) {
		a := provider("Amal", true, haircut)
		b := provider("Bimal", true, haircut)
		c := provider("Chamal", true, haircut)

		busy := map[uuid.UUID]bool{a.ID: true}
		onLeave := map[uuid.UUID]bool{b.ID: true}

		got := matchProvider([]models.ServiceProvider{a, b, c}, []uuid.UUID{haircut}, busy, onLeave)
		require.NotNil(t, got)
		assert.Equal(t, c.ID, got.ID)
	})

	t.Run("Skips inactive providers", func(t *testing.T) {
		a := provider("Amal", false, haircut)

		got := matchProvider([]models.ServiceProvider{a}, []uuid.UUID{haircut}, nil, nil)
		assert.Nil(t, got)
	})

	t.Run("Empty roster yields no match", func(t *testing.T) {
		got := matchProvider(nil, []uuid.UUID{haircut}, nil, nil)
		assert.Nil(t, got)
	})
}
