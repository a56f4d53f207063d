package pattern

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// ActionInputParser turns the string a model claims is JSON into an argument
// mapping. It tries a strict parse first, then a bounded sequence of textual
// repairs, then a regex key/value scraper. It never fails: the worst outcome
// is an empty mapping, which the tool invoker rejects downstream as a normal
// usage error. Every repair attempt is logged so model drift stays debuggable.
type ActionInputParser struct {
	log zerolog.Logger
}

// NewActionInputParser builds a parser logging through the given logger.
func NewActionInputParser(log zerolog.Logger) *ActionInputParser {
	return &ActionInputParser{log: log}
}

// repairStep is one pure string transform in the repair pipeline.
type repairStep struct {
	name string
	fn   func(string) string
}

// repairPipeline runs in order, cumulatively. Each step targets one
// malformation models actually emit.
var repairPipeline = []repairStep{
	{"escape_backslashes", escapeBareBackslashes},
	{"strip_trailing_commas", stripTrailingCommas},
	{"normalize_single_quotes", normalizeSingleQuotes},
}

var kvPattern = regexp.MustCompile(`"(\w+)"\s*:\s*("(?:[^"\\]|\\.)*"|-?\d+(?:\.\d+)?|true|false|null)`)

// Parse converts raw into an argument mapping. A JSON array becomes a single
// entry under the reserved "items" key so positional collections survive the
// keyword-argument contract.
func (p *ActionInputParser) Parse(raw string) map[string]any {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return map[string]any{}
	}

	if args, ok := tryDecode(trimmed); ok {
		return args
	}

	repaired := trimmed
	for _, step := range repairPipeline {
		repaired = step.fn(repaired)
		p.log.Debug().Str("repair", step.name).Str("input", truncate(raw, 200)).Msg("action input repair attempt")
		if args, ok := tryDecode(repaired); ok {
			p.log.Warn().Str("repair", step.name).Msg("action input recovered by repair")
			return args
		}
	}

	p.log.Warn().Str("input", truncate(raw, 200)).Msg("action input unparseable, falling back to key/value scraper")
	return scrapeKeyValues(trimmed)
}

// tryDecode attempts a strict parse and normalizes the shape. Scalars fall
// through to the repair/scraper path and ultimately yield an empty mapping.
func tryDecode(s string) (map[string]any, bool) {
	var value any
	if err := json.Unmarshal([]byte(s), &value); err != nil {
		return nil, false
	}
	switch v := value.(type) {
	case map[string]any:
		return v, true
	case []any:
		return map[string]any{"items": v}, true
	default:
		return nil, false
	}
}

// escapeBareBackslashes doubles backslashes that do not start a valid JSON
// escape, the usual casualty of Windows paths pasted into arguments.
func escapeBareBackslashes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 < len(s) {
			switch s[i+1] {
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't', 'u':
				b.WriteByte(c)
				continue
			}
		}
		b.WriteString(`\\`)
	}
	return b.String()
}

// stripTrailingCommas collapses ",}" and ",]" artifacts.
func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		if runes[i] == ',' {
			j := i + 1
			for j < len(runes) && (runes[j] == ' ' || runes[j] == '\n' || runes[j] == '\t' || runes[j] == '\r') {
				j++
			}
			if j < len(runes) && (runes[j] == '}' || runes[j] == ']') {
				continue
			}
		}
		b.WriteRune(runes[i])
	}
	return b.String()
}

// normalizeSingleQuotes rewrites single-quoted strings as double-quoted when
// the payload contains no double quotes at all (a whole-payload heuristic;
// mixed quoting is left for the scraper).
func normalizeSingleQuotes(s string) string {
	if strings.Contains(s, `"`) {
		return s
	}
	return strings.ReplaceAll(s, "'", `"`)
}

// scrapeKeyValues extracts whatever "key": value pairs it can find, typing
// quoted strings, bare numbers, booleans and null.
func scrapeKeyValues(s string) map[string]any {
	out := map[string]any{}
	for _, match := range kvPattern.FindAllStringSubmatch(s, -1) {
		key, rawVal := match[1], match[2]
		switch {
		case strings.HasPrefix(rawVal, `"`):
			var str string
			if err := json.Unmarshal([]byte(rawVal), &str); err == nil {
				out[key] = str
			}
		case rawVal == "true":
			out[key] = true
		case rawVal == "false":
			out[key] = false
		case rawVal == "null":
			out[key] = nil
		default:
			if n, err := strconv.ParseFloat(rawVal, 64); err == nil {
				out[key] = n
			}
		}
	}
	return out
}

// truncate clips s to at most max bytes, backing up to a rune boundary so the
// clipped log field stays valid UTF-8.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
