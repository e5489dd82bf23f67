package digest

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytes(t *testing.T) {
	// Known SHA-256 vectors.
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		Bytes(nil))
	assert.Equal(t,
		"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		Bytes([]byte("hello")))
}

func TestReader(t *testing.T) {
	data := []byte("hello")

	sum, n, err := Reader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, Bytes(data), sum)
}

func TestReader_Empty(t *testing.T) {
	sum, n, err := Reader(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	assert.Equal(t, Bytes(nil), sum)
}

func TestValid(t *testing.T) {
	valid := strings.Repeat("ab", 32)
	assert.True(t, Valid(valid))

	assert.False(t, Valid(""))
	assert.False(t, Valid(valid[:63]))
	assert.False(t, Valid(valid+"a"))
	assert.False(t, Valid(strings.ToUpper(valid)))
	assert.False(t, Valid(strings.Repeat("g", 64)))
}
