package slugs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/lavish-fashion/lavish-backend/pkg/errors"
)

func TestMake(t *testing.T) {
	assert.Equal(t, "silk-wrap-dress", Make("  Silk Wrap Dress "))
	assert.Equal(t, "cafe-creme-blazer", Make("Café Crème Blazer"))
}

func TestUniqueAppendsSuffix(t *testing.T) {
	taken := map[string]bool{"linen-shirt": true, "linen-shirt-2": true}
	got, err := Unique(context.Background(), "Linen Shirt", func(_ context.Context, c string) (bool, error) {
		return taken[c], nil
	})
	require.NoError(t, err)
	assert.Equal(t, "linen-shirt-3", got)
}

func TestUniqueRejectsEmpty(t *testing.T) {
	_, err := Unique(context.Background(), "!!!", func(context.Context, string) (bool, error) { return false, nil })
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUniquePropagatesLookupError(t *testing.T) {
	_, err := Unique(context.Background(), "Coat", func(context.Context, string) (bool, error) {
		return false, errors.New("db down")
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestUniqueExhausted(t *testing.T) {
	_, err := Unique(context.Background(), "Coat", func(context.Context, string) (bool, error) { return true, nil })
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}
