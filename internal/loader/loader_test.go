package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lxp-recflow/engine/internal/recommend"
)

func TestValidateLevelAcceptsBoundaryValues(t *testing.T) {
	for _, level := range []int{0, 1, 2, 3} {
		assert.NoError(t, validateLevel("user", "u1", level))
	}
}

func TestValidateLevelRejectsOutOfRange(t *testing.T) {
	for _, level := range []int{-1, 4, 7} {
		err := validateLevel("course", "c1", level)
		require.Error(t, err)
		assert.ErrorIs(t, err, recommend.ErrInvalidInput)
	}
}
