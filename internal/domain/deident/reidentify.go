package deident

import "strings"

// Reidentify substitutes the original identifying values back into model
// output. It is pure and total: a placeholder the model paraphrased away is
// simply unused, and token-like substrings not present in the mapping are left
// untouched. Entry order is irrelevant because placeholder tokens are exact,
// mutually non-overlapping strings, and the operation is idempotent because a
// replaced token no longer exists in the text.
func Reidentify(modelOutput string, mapping RedactionMapping) string {
	out := modelOutput
	for _, e := range mapping {
		if e.Placeholder == "" {
			continue
		}
		out = strings.ReplaceAll(out, e.Placeholder, e.OriginalValue)
	}
	return out
}
