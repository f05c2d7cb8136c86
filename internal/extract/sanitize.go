package extract

import "strings"

// StripCodeFences removes markdown code fences the model sometimes wraps its
// JSON in, despite being told not to. Handles ```json and bare ``` fences
// anywhere in the content, then trims to the outermost JSON braces so leading
// prose like "Here is the extracted data:" does not break parsing.
func StripCodeFences(content string) string {
	content = strings.ReplaceAll(content, "```json", "")
	content = strings.ReplaceAll(content, "```", "")
	content = strings.TrimSpace(content)

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		content = content[start : end+1]
	}
	return content
}
