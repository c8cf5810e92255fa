// Package enum provides immutable, ordered sets of permitted string tokens.
//
// The first declared token is the default. Matching may be case-insensitive,
// but token identity never is: "Red" and "red" are distinct declarations.
package enum

import (
	"iter"
	"slices"
	"strconv"
	"strings"

	"github.com/artpar/vizprops/core/errs"
)

// Enumeration is an ordered set of unique, non-empty tokens.
type Enumeration struct {
	values        []string
	index         map[string]struct{}
	caseSensitive bool
	quote         bool
}

// Option configures an Enumeration.
type Option func(*Enumeration)

// CaseInsensitive makes Contains fold both sides to lower case.
func CaseInsensitive() Option {
	return func(e *Enumeration) { e.caseSensitive = false }
}

// Quoted makes String quote every token.
func Quoted() Option {
	return func(e *Enumeration) { e.quote = true }
}

// New creates an enumeration from values in declaration order.
func New(values []string, opts ...Option) (*Enumeration, error) {
	if len(values) == 0 {
		return nil, errs.Definition("enumeration requires at least one value")
	}

	e := &Enumeration{
		values:        make([]string, 0, len(values)),
		caseSensitive: true,
	}
	for _, opt := range opts {
		opt(e)
	}

	seen := make(map[string]struct{}, len(values))
	for i, v := range values {
		if v == "" {
			return nil, errs.Definition("enumeration value %d is empty", i)
		}
		if _, dup := seen[v]; dup {
			return nil, errs.Definition("enumeration has duplicate value %q", v)
		}
		seen[v] = struct{}{}
		e.values = append(e.values, v)
	}

	e.index = make(map[string]struct{}, len(e.values))
	for _, v := range e.values {
		e.index[e.fold(v)] = struct{}{}
	}
	return e, nil
}

// MustNew is like New but panics on error. Use it for package-level tables.
func MustNew(values []string, opts ...Option) *Enumeration {
	e, err := New(values, opts...)
	if err != nil {
		panic(err)
	}
	return e
}

// FromAny builds an enumeration from a decoded list, rejecting non-string
// elements.
func FromAny(values []any, opts ...Option) (*Enumeration, error) {
	strs := make([]string, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			return nil, errs.Definition("enumeration value %d is %T, not a string", i, v)
		}
		strs = append(strs, s)
	}
	return New(strs, opts...)
}

func (e *Enumeration) fold(s string) string {
	if e.caseSensitive {
		return s
	}
	return strings.ToLower(s)
}

// Contains reports whether value is one of the tokens.
func (e *Enumeration) Contains(value string) bool {
	_, ok := e.index[e.fold(value)]
	return ok
}

// Default returns the first declared token.
func (e *Enumeration) Default() string {
	return e.values[0]
}

// CaseSensitive reports how Contains matches.
func (e *Enumeration) CaseSensitive() bool {
	return e.caseSensitive
}

// Len returns the number of tokens.
func (e *Enumeration) Len() int {
	return len(e.values)
}

// Values returns a copy of the tokens in declaration order.
func (e *Enumeration) Values() []string {
	return slices.Clone(e.values)
}

// All iterates over the tokens in declaration order.
func (e *Enumeration) All() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, v := range e.values {
			if !yield(v) {
				return
			}
		}
	}
}

// String joins the tokens with ", ".
func (e *Enumeration) String() string {
	if !e.quote {
		return strings.Join(e.values, ", ")
	}
	quoted := make([]string, len(e.values))
	for i, v := range e.values {
		quoted[i] = strconv.Quote(v)
	}
	return strings.Join(quoted, ", ")
}
