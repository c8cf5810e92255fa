package convention

import "strings"

// Pluralize returns the English plural of word. In a phrase or a
// snake_case name only the last word changes: "x axis" becomes "x axes"
// and "tick_index" becomes "tick_indices".
func Pluralize(word string) string {
	i := strings.LastIndexAny(word, " _") + 1
	head, last := word[:i], word[i:]
	if last == "" {
		return word
	}
	return head + pluralWord(last)
}

func pluralWord(w string) string {
	lower := strings.ToLower(w)
	if p, ok := irregular[lower]; ok {
		if w[0] != lower[0] {
			return strings.ToUpper(p[:1]) + p[1:]
		}
		return p
	}
	for _, r := range suffixRules {
		if strings.HasSuffix(lower, r.suffix) && (r.when == nil || r.when(lower)) {
			return w[:len(w)-r.trim] + r.add
		}
	}
	return w + "s"
}

type suffixRule struct {
	suffix string
	trim   int
	add    string
	when   func(lower string) bool
}

var suffixRules = []suffixRule{
	{suffix: "y", trim: 1, add: "ies", when: consonantBeforeY},
	{suffix: "s", add: "es"},
	{suffix: "x", add: "es"},
	{suffix: "z", add: "es"},
	{suffix: "ch", add: "es"},
	{suffix: "sh", add: "es"},
}

func consonantBeforeY(lower string) bool {
	return len(lower) > 1 && !strings.ContainsRune("aeiou", rune(lower[len(lower)-2]))
}

// Plot vocabulary the suffix rules get wrong.
var irregular = map[string]string{
	"axis":   "axes",
	"datum":  "data",
	"index":  "indices",
	"matrix": "matrices",
	"vertex": "vertices",
}
