package notifications

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// Render substitutes {{name}} placeholders from payload. Unknown names render as NULL.
func Render(template string, payload Payload) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		value, ok := payload[name]
		if !ok || value == nil {
			return "NULL"
		}
		return strings.TrimSpace(fmt.Sprint(value))
	})
}
