package outbox

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeError(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", SanitizeError(nil))
	assert.Equal(t, "boom", SanitizeError(errors.New("  boom \n")))

	exact := strings.Repeat("a", MaxErrorLength)
	assert.Equal(t, exact, SanitizeError(errors.New(exact)))

	long := SanitizeError(errors.New(strings.Repeat("ж", MaxErrorLength+1)))
	assert.Len(t, []rune(long), MaxErrorLength)
	assert.True(t, strings.HasSuffix(long, errorTruncatedSuffix))
}

func TestTruncateShortLimit(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc", truncate("abcdef", 3, "... (truncated)"))
}
