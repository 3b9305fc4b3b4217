package shortcode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocator_AllocateProducesValidCode(t *testing.T) {
	a := New(7)
	code, err := a.Allocate(context.Background(), func(context.Context, string) (bool, error) {
		return false, nil
	})
	require.NoError(t, err)
	assert.Len(t, code, 7)
	assert.True(t, IsValidCode(code))
}

func TestAllocator_RetriesOnCollision(t *testing.T) {
	a := New(7)
	calls := 0
	code, err := a.Allocate(context.Background(), func(context.Context, string) (bool, error) {
		calls++
		return calls < 3, nil
	})
	require.NoError(t, err)
	assert.Len(t, code, 7)
	assert.Equal(t, 3, calls)
}

func TestAllocator_GrowsLengthAfterExhaustingCollisionBudget(t *testing.T) {
	a := New(4)
	calls := 0
	code, err := a.Allocate(context.Background(), func(context.Context, string) (bool, error) {
		calls++
		return calls <= maxCollisionAttempts, nil
	})
	require.NoError(t, err)
	assert.Len(t, code, 4+collisionGrowStep)
	assert.Equal(t, maxCollisionAttempts+1, calls)
}

func TestAllocator_OutOfRangeLengthClampsToDefault(t *testing.T) {
	a := New(1000)
	code, err := a.Allocate(context.Background(), func(context.Context, string) (bool, error) {
		return false, nil
	})
	require.NoError(t, err)
	assert.Len(t, code, 7)
}

func TestValidateAlias(t *testing.T) {
	assert.NoError(t, ValidateAlias("my-link"))
	assert.NoError(t, ValidateAlias("abc"))
	assert.Error(t, ValidateAlias("ab"))
	assert.Error(t, ValidateAlias("has a space"))
	assert.Error(t, ValidateAlias("has/slash"))
}

func TestIsValidCode(t *testing.T) {
	assert.True(t, IsValidCode("abc123"))
	assert.True(t, IsValidCode("a_b-C9"))
	assert.False(t, IsValidCode("ab"))
	assert.False(t, IsValidCode("has space"))
}
