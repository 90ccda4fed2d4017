package domain

// SymbolDocument represents one documented location of a symbol.
// It is the primary data structure stored in the Bleve search index.
type SymbolDocument struct {
	// ID is a unique identifier combining source ID, fragment path and ref position.
	// Format: "local_srv_docs/search/all_14.js#vectoradd_534/0"
	ID string `json:"id"`

	// Source is the source identifier the fragment was read from.
	// Format: "github.com_org_repo" or "local_srv_docs_html"
	Source string `json:"source"`

	// Fragment is the search-data file relative to the source root.
	// Example: "html/search/all_14.js"
	Fragment string `json:"fragment"`

	// Key is the encoded symbol key without its numeric suffix.
	// Example: "vectoradd"
	Key string `json:"key"`

	// Label is the display name of the symbol.
	// Example: "vectorAdd"
	Label string `json:"label"`

	// Page is the documentation page the reference points to.
	Page string `json:"page"`

	// Anchor is the fragment identifier inside Page, empty for page-level refs.
	Anchor string `json:"anchor"`

	// Kind is the reference kind: declaration, definition, type, file or other.
	Kind string `json:"kind"`

	// Scope is the unescaped display scope, e.g. "vectorGet(Vector *list, int index): Vector.c".
	Scope string `json:"scope"`

	// Signature is the callable form parsed from Scope, empty when not callable.
	Signature string `json:"signature"`

	// File is the defining file parsed from Scope.
	File string `json:"file"`
}

// Bleve field name constants for consistent field references in queries and mappings.
const (
	SymbolFieldID        = "id"
	SymbolFieldSource    = "source"
	SymbolFieldFragment  = "fragment"
	SymbolFieldKey       = "key"
	SymbolFieldLabel     = "label"
	SymbolFieldPage      = "page"
	SymbolFieldAnchor    = "anchor"
	SymbolFieldKind      = "kind"
	SymbolFieldScope     = "scope"
	SymbolFieldSignature = "signature"
	SymbolFieldFile      = "file"

	// SymbolFieldLabelExact is the keyword-analyzed copy of Label.
	SymbolFieldLabelExact = "label_exact"
)
