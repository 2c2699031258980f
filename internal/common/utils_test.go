package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", FirstNonEmpty("", "  ", "b", "c"))
	assert.Equal(t, "x", FirstNonEmpty(" x "))
	assert.Empty(t, FirstNonEmpty())
	assert.Empty(t, FirstNonEmpty("", "\t"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "", Truncate("abc", 0))
	// Runes, not bytes.
	assert.Equal(t, "ñá", Truncate("ñáé", 2))
}
