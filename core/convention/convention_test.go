package convention

import "testing"

func TestIsIdentifier(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"line_color", true},
		{"_private", true},
		{"x2", true},
		{"", false},
		{"2x", false},
		{"line-color", false},
		{"line color", false},
	}

	for _, tt := range tests {
		if got := IsIdentifier(tt.name); got != tt.want {
			t.Errorf("IsIdentifier(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestIsTypeName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Plot", true},
		{"LineProps", true},
		{"plot", false},
		{"", false},
		{"Line Props", false},
	}

	for _, tt := range tests {
		if got := IsTypeName(tt.name); got != tt.want {
			t.Errorf("IsTypeName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestUnitsName(t *testing.T) {
	if got := UnitsName("angle"); got != "angle_units" {
		t.Errorf("UnitsName(angle) = %q", got)
	}

	base, ok := UnitsOf("start_angle_units")
	if !ok || base != "start_angle" {
		t.Errorf("UnitsOf(start_angle_units) = %q, %v", base, ok)
	}

	if _, ok := UnitsOf("_units"); ok {
		t.Error("UnitsOf(_units) should not resolve")
	}
	if _, ok := UnitsOf("angle"); ok {
		t.Error("UnitsOf(angle) should not resolve")
	}
}

func TestHumanize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"border_line_color", "border line color"},
		{"LineProps", "line props"},
		{"HTTPServer", "http server"},
		{"text", "text"},
		{"", ""},
		{"__x__", "x"},
	}

	for _, tt := range tests {
		if got := Humanize(tt.in); got != tt.want {
			t.Errorf("Humanize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGroupDescription(t *testing.T) {
	tests := []struct {
		name                 string
		help, prefix, target string
		want                 string
	}{
		{"explicit help wins", "outline", "border_", "Plot", "outline"},
		{"prefix", "", "border_", "Plot", "border"},
		{"multi word prefix", "", "major_tick_", "Axis", "major tick"},
		{"target", "", "", "GlyphRenderer", "glyph renderer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GroupDescription(tt.help, tt.prefix, tt.target); got != tt.want {
				t.Errorf("GroupDescription() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExpandHelp(t *testing.T) {
	got := ExpandHelp("The line color for the {prop}.", "border")
	if got != "The line color for the border." {
		t.Errorf("ExpandHelp() = %q", got)
	}

	if got := ExpandHelp("No placeholder.", "border"); got != "No placeholder." {
		t.Errorf("ExpandHelp() without placeholder = %q", got)
	}
}

func TestCount(t *testing.T) {
	tests := []struct {
		n    int
		word string
		want string
	}{
		{0, "type", "0 types"},
		{1, "type", "1 type"},
		{2, "property", "2 properties"},
		{3, "axis", "3 axes"},
		{2, "definition file", "2 definition files"},
		{4, "unresolved reference", "4 unresolved references"},
	}

	for _, tt := range tests {
		if got := Count(tt.n, tt.word); got != tt.want {
			t.Errorf("Count(%d, %q) = %q, want %q", tt.n, tt.word, got, tt.want)
		}
	}
}

func TestPluralize_EmptyString(t *testing.T) {
	if got := Pluralize(""); got != "" {
		t.Errorf("Pluralize(\"\") = %q, want \"\"", got)
	}
}

func TestPluralize_RegularWords(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"type", "types"},
		{"enum", "enums"},
		{"glyph", "glyphs"},
		{"renderer", "renderers"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Pluralize(tt.input); got != tt.expected {
				t.Errorf("Pluralize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestPluralize_Suffixes(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"class", "classes"},
		{"box", "boxes"},
		{"patch", "patches"},
		{"mesh", "meshes"},
		{"property", "properties"},
		{"key", "keys"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Pluralize(tt.input); got != tt.expected {
				t.Errorf("Pluralize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestPluralize_IrregularPlurals(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"axis", "axes"},
		{"Axis", "Axes"},
		{"vertex", "vertices"},
		{"datum", "data"},
		{"schema", "schemas"},
		{"x axis", "x axes"},
		{"tick_index", "tick_indices"},
		{"Y_Axis", "Y_Axes"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Pluralize(tt.input); got != tt.expected {
				t.Errorf("Pluralize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestIsVowel(t *testing.T) {
	for _, r := range "aeiouAEIOU" {
		if !isVowel(r) {
			t.Errorf("isVowel(%q) = false, want true", r)
		}
	}
	for _, r := range "bcdyBCDY" {
		if isVowel(r) {
			t.Errorf("isVowel(%q) = true, want false", r)
		}
	}
}
