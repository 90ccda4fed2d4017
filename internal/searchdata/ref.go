package searchdata

import (
	"path"
	"strings"
)

// Kind classifies where a reference points.
type Kind string

// Reference kinds
const (
	KindDeclaration Kind = "declaration"
	KindDefinition  Kind = "definition"
	KindType        Kind = "type"
	KindFile        Kind = "file"
	KindOther       Kind = "other"
)

// scopeSeparator divides a signature from its defining file, e.g.
// "vectorGet(Vector *list, int index):&#160;Vector.c" once unescaped.
const scopeSeparator = ": "

// Ref is one documentation location of a symbol.
type Ref struct {
	// Page is the documentation page relative to the search directory,
	// e.g. "../_vector_8c.html".
	Page string `json:"page" yaml:"page"`

	// Anchor is the fragment identifier without '#'. Empty for page-level
	// entries such as a file or a type page.
	Anchor string `json:"anchor,omitempty" yaml:"anchor,omitempty"`

	// TargetParent mirrors the generator's link flag: the link opens in the
	// parent frame rather than the search frame.
	TargetParent bool `json:"target_parent,omitempty" yaml:"target_parent,omitempty"`

	// Scope is the display text with HTML entities unescaped.
	Scope string `json:"scope,omitempty" yaml:"scope,omitempty"`
}

// URL returns the page joined with its anchor.
func (r Ref) URL() string {
	if r.Anchor == "" {
		return r.Page
	}
	return r.Page + "#" + r.Anchor
}

// Kind derives the reference kind from the page name.
func (r Ref) Kind() Kind {
	base := path.Base(r.Page)
	stem := strings.TrimSuffix(base, path.Ext(base))
	switch {
	case hasAnyPrefix(stem, "struct_", "class_", "union_"):
		return KindType
	case r.Anchor == "":
		return KindFile
	case strings.HasSuffix(stem, "_8h"), strings.HasSuffix(stem, "_8hpp"):
		return KindDeclaration
	case strings.HasSuffix(stem, "_8c"), strings.HasSuffix(stem, "_8cpp"), strings.HasSuffix(stem, "_8cc"):
		return KindDefinition
	}
	return KindOther
}

// Signature is the structured form of a reference scope.
type Signature struct {
	// Name is the symbol as displayed, possibly qualified ("Entry::value").
	Name string `json:"name" yaml:"name"`
	// Params holds the parameter declarations in order. Nil when the scope is
	// not callable, empty for "f()".
	Params []string `json:"params,omitempty" yaml:"params,omitempty"`
	// Callable reports whether the scope carried a parameter list.
	Callable bool `json:"callable" yaml:"callable"`
	// File is the defining file when the scope names one.
	File string `json:"file,omitempty" yaml:"file,omitempty"`
}

// String renders the signature back to "name(params)".
func (s Signature) String() string {
	if !s.Callable {
		return s.Name
	}
	return s.Name + "(" + strings.Join(s.Params, ", ") + ")"
}

// ParseScope splits scope display text into name, parameters and file:
//
//	"vectorSort(Vector *list, int(*comparator)(const void *, const void *)): Vector.c"
//
// yields Name "vectorSort", two params and File "Vector.c". A scope that is
// just a file name ("Vector.c") yields only File.
func ParseScope(scope string) Signature {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return Signature{}
	}

	var sig Signature
	text := scope
	if i := strings.LastIndex(scope, scopeSeparator); i >= 0 {
		text = strings.TrimSpace(scope[:i])
		sig.File = strings.TrimSpace(scope[i+len(scopeSeparator):])
	} else if looksLikeFile(scope) {
		sig.File = scope
		return sig
	}

	open := strings.IndexByte(text, '(')
	if open < 0 {
		sig.Name = text
		return sig
	}
	sig.Name = strings.TrimSpace(text[:open])
	sig.Callable = true
	closeIdx := matchingParen(text, open)
	if closeIdx < 0 {
		closeIdx = len(text)
	}
	sig.Params = splitParams(text[open+1 : closeIdx])
	return sig
}

func looksLikeFile(s string) bool {
	if strings.ContainsAny(s, " ()") {
		return false
	}
	ext := path.Ext(s)
	return len(ext) > 1 && len(ext) <= 5
}

func matchingParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitParams splits on top-level commas so function-pointer parameters
// keep their inner argument lists.
func splitParams(s string) []string {
	params := []string{}
	if strings.TrimSpace(s) == "" {
		return params
	}
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '<':
			depth++
		case ')', ']', '>':
			depth--
		case ',':
			if depth == 0 {
				params = append(params, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(params, strings.TrimSpace(s[start:]))
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
