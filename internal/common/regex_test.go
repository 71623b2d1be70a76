package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompilePattern(t *testing.T) {
	t.Run("case-insensitive by default", func(t *testing.T) {
		re, err := CompilePattern("^hello", false)
		require.NoError(t, err)
		assert.True(t, re.MatchString("HELLO world"))
	})

	t.Run("case-sensitive when asked", func(t *testing.T) {
		re, err := CompilePattern("^hello", true)
		require.NoError(t, err)
		assert.False(t, re.MatchString("HELLO world"))
		assert.True(t, re.MatchString("hello world"))
	})

	t.Run("invalid pattern", func(t *testing.T) {
		_, err := CompilePattern("[", false)
		assert.Error(t, err)
	})
}
