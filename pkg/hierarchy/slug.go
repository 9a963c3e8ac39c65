package hierarchy

import "strings"

const (
	// digitPrefix is prepended to labels that would otherwise start with a digit.
	digitPrefix = "n"
	// unnamedLabel stands in for tokens with no usable characters.
	unnamedLabel = "unnamed"
)

// Slug turns a raw token into an ltree-safe label. ok is false when nothing
// alphanumeric survives.
func Slug(s string) (string, bool) {
	var b strings.Builder
	b.Grow(len(s))
	pendingSep := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	out := b.String()
	if out == "" {
		return "", false
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = digitPrefix + out
	}
	return out, true
}

// MaterializedPath joins the slugs of tokens with dots. Tokens that slug to
// nothing are replaced by a placeholder label and reported in unnamed.
func MaterializedPath(tokens []string) (path string, unnamed []string) {
	labels := make([]string, len(tokens))
	for i, t := range tokens {
		label, ok := Slug(t)
		if !ok {
			label = unnamedLabel
			unnamed = append(unnamed, t)
		}
		labels[i] = label
	}
	return strings.Join(labels, "."), unnamed
}
