package domain

import (
	"encoding/json"
	"testing"
)

func TestSymbolDocument_JSONRoundTrip(t *testing.T) {
	doc := SymbolDocument{
		ID:        "local_docs/search/all_14.js#vectorget_537/0",
		Source:    "local_docs",
		Fragment:  "search/all_14.js",
		Key:       "vectorget",
		Label:     "vectorGet",
		Page:      "../_vector_8h.html",
		Anchor:    "af2160a5766632a30aa16d9501efbdaca",
		Kind:      "declaration",
		Scope:     "vectorGet(Vector *list, int index): Vector.c",
		Signature: "vectorGet(Vector *list, int index)",
		File:      "Vector.c",
	}

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Failed to marshal SymbolDocument: %v", err)
	}

	var decoded SymbolDocument
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal SymbolDocument: %v", err)
	}

	if decoded != doc {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, doc)
	}
}

func TestSymbolDocument_JSONFieldNames(t *testing.T) {
	data, err := json.Marshal(SymbolDocument{Label: "vectorAdd", Kind: "definition"})
	if err != nil {
		t.Fatalf("Failed to marshal SymbolDocument: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Failed to unmarshal into map: %v", err)
	}

	fields := []string{
		SymbolFieldID, SymbolFieldSource, SymbolFieldFragment, SymbolFieldKey,
		SymbolFieldLabel, SymbolFieldPage, SymbolFieldAnchor, SymbolFieldKind,
		SymbolFieldScope, SymbolFieldSignature, SymbolFieldFile,
	}
	for _, f := range fields {
		if _, ok := m[f]; !ok {
			t.Errorf("JSON output missing field %q", f)
		}
	}
	if m[SymbolFieldLabel] != "vectorAdd" {
		t.Errorf("label = %v, want vectorAdd", m[SymbolFieldLabel])
	}
}
