package blob

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllocatePath(t *testing.T) {
	digest := strings.Repeat("ab", 32)
	now := time.Date(2026, time.August, 25, 14, 30, 0, 0, time.UTC)

	assert.Equal(t,
		"drive/2026/08/"+digest+".pdf",
		AllocatePath(digest, ".pdf", now))

	// No extension.
	assert.Equal(t,
		"drive/2026/08/"+digest,
		AllocatePath(digest, "", now))

	// Month is zero-padded.
	january := time.Date(2027, time.January, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t,
		"drive/2027/01/"+digest,
		AllocatePath(digest, "", january))
}

func TestAllocatePath_Deterministic(t *testing.T) {
	digest := strings.Repeat("cd", 32)
	now := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

	first := AllocatePath(digest, ".txt", now)
	second := AllocatePath(digest, ".txt", now)
	assert.Equal(t, first, second)
}

func TestValidPath(t *testing.T) {
	assert.True(t, ValidPath("drive/2026/08/abc.pdf"))
	assert.True(t, ValidPath("drive/x"))

	assert.False(t, ValidPath(""))
	assert.False(t, ValidPath("/drive/x"))
	assert.False(t, ValidPath("drive//x"))
	assert.False(t, ValidPath("drive/./x"))
	assert.False(t, ValidPath("drive/../x"))
	assert.False(t, ValidPath("drive/x/"))
}
