package pattern

import "strings"

// ExtractJSON returns the outermost JSON object inside a model response,
// stripping markdown code fences first since models frequently wrap payloads
// in ```json blocks. When no braces are present it returns an empty JSON
// object so downstream unmarshalling still succeeds.
func ExtractJSON(raw string) string {
	cleaned := stripFences(raw)
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end >= start {
		return cleaned[start : end+1]
	}
	return "{}"
}

// stripFences removes leading/trailing markdown code fence markers.
func stripFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		// drop the language tag line (```json)
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
