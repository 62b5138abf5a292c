package foundation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

func TestNormalizer(t *testing.T) {
	n := NewNormalizer(map[string]string{"production": "production", "prod": "production", "development": "development"})

	tests := []struct {
		raw  string
		want string
	}{
		{"production", "production"},
		{" Production ", "production"},
		{"PROD", "production"},
		{"development", "development"},
	}
	for _, tt := range tests {
		got, err := n.Normalize("env", tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got)
	}

	_, err := n.Normalize("env", "staging")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	accepted, _ := ce.Context().GetString("accepted")
	assert.Equal(t, "development, prod, production", accepted)
	assert.Equal(t, []string{"development", "prod", "production"}, n.Names())
}
