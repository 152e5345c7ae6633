package domain_test

import (
	"testing"
	"time"

	"github.com/fouadkhalied/task-mangment-system/internal/shared/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewBaseEntity(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	entity := domain.NewBaseEntity(now)

	assert.NotEqual(t, uuid.Nil, entity.ID())
	assert.Equal(t, now, entity.CreatedAt())
	assert.Equal(t, entity.CreatedAt(), entity.UpdatedAt())
}

func TestBaseEntity_Touch(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	entity := domain.NewBaseEntity(now)

	entity.Touch(now.Add(time.Minute))
	assert.Equal(t, now.Add(time.Minute), entity.UpdatedAt())
	assert.Equal(t, now, entity.CreatedAt())

	entity.Touch(now.Add(-time.Hour))
	assert.Equal(t, now.Add(time.Minute), entity.UpdatedAt(), "touch must not move backwards")
}

func TestRehydrateBaseEntity(t *testing.T) {
	id := uuid.New()
	created := time.Date(2024, 12, 1, 8, 0, 0, 0, time.UTC)
	updated := created.Add(48 * time.Hour)

	entity := domain.RehydrateBaseEntity(id, created, updated)

	assert.Equal(t, id, entity.ID())
	assert.Equal(t, created, entity.CreatedAt())
	assert.Equal(t, updated, entity.UpdatedAt())
}

func TestBaseEntity_Equals(t *testing.T) {
	now := time.Now()
	a := domain.NewBaseEntity(now)
	b := domain.RehydrateBaseEntity(a.ID(), now, now)
	c := domain.NewBaseEntity(now)

	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))
	assert.False(t, a.Equals(nil))
}
