package sentiment

import (
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	assert.Equal(t, "abc", CleanText("ABC123!"))
	assert.Equal(t, "", CleanText(""))
	assert.Equal(t, "great product  love it", CleanText("Great product -- love it!!"))
	assert.Equal(t, "caf au lait", CleanText("Café au lait"))
	assert.Equal(t, "tab\there", CleanText("Tab\tHere"))
}

func TestCleanTextAlphabet(t *testing.T) {
	out := CleanText("Mixed CASE, 42 numbers; ümlauts & symbols: #$%")
	for _, r := range out {
		assert.True(t, (r >= 'a' && r <= 'z') || unicode.IsSpace(r), "unexpected rune %q", r)
	}
}
