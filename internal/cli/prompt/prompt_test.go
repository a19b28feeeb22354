package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmOverwrite_Force(t *testing.T) {
	ok, err := ConfirmOverwrite("/tmp/config.yaml", true)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConfirmOverwrite_NotInteractive(t *testing.T) {
	if Interactive() {
		t.Skip("stdin is a terminal")
	}
	ok, err := ConfirmOverwrite("/tmp/config.yaml", false)
	assert.ErrorIs(t, err, ErrNotInteractive)
	assert.False(t, ok)
}
