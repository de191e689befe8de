package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("pa55word")
	require.NoError(t, err)
	require.NotEqual(t, "pa55word", hash)

	assert.True(t, CheckPassword("pa55word", hash))
	assert.False(t, CheckPassword("wrong", hash))
	assert.False(t, CheckPassword("pa55word", "not-a-hash"))
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	first, err := HashPassword("pa55word")
	require.NoError(t, err)
	second, err := HashPassword("pa55word")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}
