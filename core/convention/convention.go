// Package convention holds the naming rules shared by property declarations,
// bundle grafting and generated documentation.
package convention

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// UnitsSuffix is appended to a spec property name to name its units companion.
const UnitsSuffix = "_units"

// HelpPlaceholder in a bundle property's help text is replaced by the
// description of the group it is grafted into.
const HelpPlaceholder = "{prop}"

var (
	identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	typeName   = regexp.MustCompile(`^[A-Z][A-Za-z0-9_]*$`)
)

// IsIdentifier reports whether name is usable as a property name.
func IsIdentifier(name string) bool {
	return identifier.MatchString(name)
}

// IsTypeName reports whether name is usable as a type name. Type names are
// identifiers starting with an upper-case letter.
func IsTypeName(name string) bool {
	return typeName.MatchString(name)
}

// UnitsName returns the name of the units companion of a spec property.
func UnitsName(name string) string {
	return name + UnitsSuffix
}

// UnitsOf returns the spec property a units companion belongs to.
func UnitsOf(name string) (string, bool) {
	base, ok := strings.CutSuffix(name, UnitsSuffix)
	if !ok || base == "" {
		return "", false
	}
	return base, true
}

// Prefixed returns name with the graft prefix applied.
func Prefixed(prefix, name string) string {
	return prefix + name
}

// Humanize turns snake_case and CamelCase identifiers into lower-case words.
//
//	Humanize("border_line_color") == "border line color"
//	Humanize("LineProps")         == "line props"
func Humanize(name string) string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}

	runes := []rune(name)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || unicode.IsSpace(r):
			flush()
		case unicode.IsUpper(r) && i > 0 && (unicode.IsLower(runes[i-1]) ||
			(i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()

	return strings.Join(words, " ")
}

// GroupDescription describes a grafted property group. An explicit help
// text wins; otherwise the prefix names the group, and without a prefix
// the target type does.
func GroupDescription(help, prefix, target string) string {
	if help != "" {
		return help
	}
	if p := strings.TrimRight(prefix, "_"); p != "" {
		return Humanize(p)
	}
	return Humanize(target)
}

// ExpandHelp substitutes the group description into a bundle help text.
func ExpandHelp(help, group string) string {
	return strings.ReplaceAll(help, HelpPlaceholder, group)
}

// Count renders n with the right form of word, e.g. "1 type", "3 types".
func Count(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return strconv.Itoa(n) + " " + Pluralize(word)
}
