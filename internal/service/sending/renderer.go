package sending

import "regexp"

// NameFallback replaces the placeholder when a recipient has no name.
const NameFallback = "there"

var namePlaceholder = regexp.MustCompile(`(?i)\{\{\s*name\s*\}\}`)

// Render substitutes every {{name}} token (any case, optional inner
// whitespace) with name, or with NameFallback when name is empty.
func Render(template, name string) string {
	if name == "" {
		name = NameFallback
	}
	return namePlaceholder.ReplaceAllLiteralString(template, name)
}
