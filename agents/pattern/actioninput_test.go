package pattern

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func newParser() *ActionInputParser {
	return NewActionInputParser(zerolog.Nop())
}

func TestParseValidObject(t *testing.T) {
	args := newParser().Parse(`{"path": "/tmp", "depth": 2}`)
	assert.Equal(t, "/tmp", args["path"])
	assert.Equal(t, float64(2), args["depth"])
}

func TestParseValidObjectIsUntouched(t *testing.T) {
	// well-formed input must pass through with no repairs applied
	raw := `{"note": "it's fine, really"}`
	args := newParser().Parse(raw)
	assert.Equal(t, "it's fine, really", args["note"])
}

func TestParseEmptyInput(t *testing.T) {
	assert.Empty(t, newParser().Parse(""))
	assert.Empty(t, newParser().Parse("   \n\t"))
}

func TestParseArrayWrapsUnderItems(t *testing.T) {
	args := newParser().Parse(`[1, 2, 3]`)
	assert.Equal(t, []any{float64(1), float64(2), float64(3)}, args["items"])
}

func TestParseNeverFails(t *testing.T) {
	inputs := []string{
		"complete garbage",
		"{{{{",
		`{"unclosed": `,
		"42",
		`"just a string"`,
	}
	for _, input := range inputs {
		args := newParser().Parse(input)
		assert.NotNil(t, args, "input %q", input)
	}
}

func TestRepairTrailingComma(t *testing.T) {
	args := newParser().Parse(`{"path": "/tmp", "depth": 2,}`)
	assert.Equal(t, "/tmp", args["path"])
	assert.Equal(t, float64(2), args["depth"])
}

func TestRepairSingleQuotes(t *testing.T) {
	args := newParser().Parse(`{'path': '/tmp'}`)
	assert.Equal(t, "/tmp", args["path"])
}

func TestRepairBareBackslashes(t *testing.T) {
	args := newParser().Parse(`{"path": "C:\Users\me"}`)
	assert.Equal(t, `C:\Users\me`, args["path"])
}

func TestScraperFallback(t *testing.T) {
	// mixed quoting defeats all repairs, the scraper still pulls the pairs
	args := newParser().Parse(`thought: use "path": "/var/log" and "depth": 3 and "dry_run": true`)
	assert.Equal(t, "/var/log", args["path"])
	assert.Equal(t, float64(3), args["depth"])
	assert.Equal(t, true, args["dry_run"])
}

func TestEscapeBareBackslashesPreservesValidEscapes(t *testing.T) {
	assert.Equal(t, `a\nb`, escapeBareBackslashes(`a\nb`))
	assert.Equal(t, `a\\b`, escapeBareBackslashes(`a\b`))
	assert.Equal(t, `end\\`, escapeBareBackslashes(`end\`))
}

func TestStripTrailingCommas(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, stripTrailingCommas(`{"a": 1,}`))
	assert.Equal(t, `[1, 2]`, stripTrailingCommas(`[1, 2,]`))
	assert.Equal(t, `{"a": 1, "b": 2}`, stripTrailingCommas(`{"a": 1, "b": 2}`))
}

func TestNormalizeSingleQuotesSkipsMixedPayloads(t *testing.T) {
	mixed := `{'a': "b"}`
	assert.Equal(t, mixed, normalizeSingleQuotes(mixed))
	assert.Equal(t, `{"a": "b"}`, normalizeSingleQuotes(`{'a': 'b'}`))
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))

	// "é" is two bytes, so a 5-byte cut would land mid-rune
	clipped := truncate(strings.Repeat("é", 10), 5)
	assert.True(t, utf8.ValidString(clipped))
	assert.Equal(t, "éé…", clipped)
}
