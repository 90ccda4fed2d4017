package searchdata

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func loadSample(t *testing.T) *Table {
	t.Helper()
	table, err := ParseFile(filepath.Join("testdata", "all_14.js"))
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	return table
}

func TestParseFile_Sample(t *testing.T) {
	table := loadSample(t)

	if table.Len() != 21 {
		t.Errorf("Len() = %d, want 21", table.Len())
	}
	if err := table.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	got, ok := table.Get("vectoraddall_535")
	if !ok {
		t.Fatal("Get(vectoraddall_535) not found")
	}
	want := Entry{
		RawKey: "vectoraddall_535",
		Key:    "vectoraddall",
		ID:     "535",
		Label:  "vectorAddAll",
		Refs: []Ref{
			{
				Page:         "../_vector_8h.html",
				Anchor:       "a2549607e06af13c7d50d22b8ab7a6d18",
				TargetParent: true,
				Scope:        "vectorAddAll(Vector *list, void **array, int arrayLength): Vector.c",
			},
			{
				Page:         "../_vector_8c.html",
				Anchor:       "a2549607e06af13c7d50d22b8ab7a6d18",
				TargetParent: true,
				Scope:        "vectorAddAll(Vector *list, void **array, int arrayLength): Vector.c",
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFile_FileEntry(t *testing.T) {
	table := loadSample(t)

	got, ok := table.Get("vector_2ec_532")
	if !ok {
		t.Fatal("Get(vector_2ec_532) not found")
	}
	if got.Name() != "vector.c" {
		t.Errorf("Name() = %q, want %q", got.Name(), "vector.c")
	}
	if len(got.Refs) != 1 {
		t.Fatalf("len(Refs) = %d, want 1", len(got.Refs))
	}
	if got.Refs[0].Kind() != KindFile {
		t.Errorf("Kind() = %q, want %q", got.Refs[0].Kind(), KindFile)
	}
	if got.Refs[0].Scope != "" {
		t.Errorf("Scope = %q, want empty", got.Refs[0].Scope)
	}
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "nope.js"))
	if err == nil {
		t.Fatal("ParseFile() expected error for missing file")
	}
}

func TestParseString(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantLen int
	}{
		{name: "empty array", src: "var searchData=[];", wantLen: 0},
		{name: "no semicolon", src: "var searchData=[]", wantLen: 0},
		{name: "byte order mark", src: "\ufeffvar searchData=[];", wantLen: 0},
		{
			name:    "comments",
			src:     "// generated\nvar searchData = /* table */ [['a_1',['a',['a.html',1,'']]]];",
			wantLen: 1,
		},
		{
			name:    "trailing comma",
			src:     "var searchData=[['a_1',['a',['a.html',1,''],]],];",
			wantLen: 1,
		},
		{
			name:    "double quotes",
			src:     `var searchData=[["b_2",["b",["b.html#x",0,"s"]]]];`,
			wantLen: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := ParseString(tt.src)
			if err != nil {
				t.Fatalf("ParseString() error = %v", err)
			}
			if table.Len() != tt.wantLen {
				t.Errorf("Len() = %d, want %d", table.Len(), tt.wantLen)
			}
		})
	}
}

func TestParseString_Malformed(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{name: "empty input", src: ""},
		{name: "wrong variable", src: "var other=[];"},
		{name: "missing var", src: "searchData=[];"},
		{name: "missing equals", src: "var searchData [];"},
		{name: "not an array", src: "var searchData='x';"},
		{name: "unterminated string", src: "var searchData=[['a_1',['a"},
		{name: "unbalanced close", src: "var searchData=[]];"},
		{name: "unclosed array", src: "var searchData=[['a_1',['a',['a.html']]];"},
		{name: "empty slot", src: "var searchData=[['a_1',,['a',['a.html']]]];"},
		{name: "missing comma", src: "var searchData=[['a_1' ['a',['a.html']]]];"},
		{name: "trailing garbage", src: "var searchData=[]; x"},
		{name: "entry without body", src: "var searchData=[['a_1']];"},
		{name: "numeric key", src: "var searchData=[[1,['a',['a.html']]]];"},
		{name: "label not string", src: "var searchData=[['a_1',[1,['a.html']]]];"},
		{name: "ref not array", src: "var searchData=[['a_1',['a','a.html']]];"},
		{name: "empty ref", src: "var searchData=[['a_1',['a',[]]]];"},
		{name: "page not string", src: "var searchData=[['a_1',['a',[1]]]];"},
		{name: "unterminated comment", src: "var searchData=[]; /* x"},
		{name: "unknown character", src: "var searchData=[{}];"},
		{name: "bad hex escape", src: `var searchData=[['\u00zz',['a',['a.html']]]];`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.src)
			if err == nil {
				t.Fatalf("ParseString(%q) expected error", tt.src)
			}
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("error = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestParseString_Escapes(t *testing.T) {
	src := `var searchData=[['k_1',['a\'bA\x42\\',['p.html#x',1,'f(int):&#160;p.c&amp;']]]];`
	table, err := ParseString(src)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	e, ok := table.Get("k_1")
	if !ok {
		t.Fatal("Get(k_1) not found")
	}
	if e.Label != `a'bAB\` {
		t.Errorf("Label = %q, want %q", e.Label, `a'bAB\`)
	}
	if e.Refs[0].Scope != "f(int): p.c&" {
		t.Errorf("Scope = %q, want %q", e.Refs[0].Scope, "f(int): p.c&")
	}
}

func TestParseString_NestedRefGroups(t *testing.T) {
	src := "var searchData=[['k_1',['k',[['a.html#1',1,''],['b.html#2',0,'']]]]];"
	table, err := ParseString(src)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	e, _ := table.Get("k_1")
	want := []Ref{
		{Page: "a.html", Anchor: "1", TargetParent: true},
		{Page: "b.html", Anchor: "2"},
	}
	if diff := cmp.Diff(want, e.Refs); diff != "" {
		t.Errorf("Refs mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_DeepNesting(t *testing.T) {
	depth := 100000
	src := "var searchData=" + strings.Repeat("[", depth) + strings.Repeat("]", depth) + ";"
	// The nested arrays are not valid entries, but parsing must fail cleanly
	// rather than overflow.
	_, err := ParseString(src)
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("error = %v, want ErrMalformed", err)
	}
}

func TestParse_Reader(t *testing.T) {
	table, err := Parse(strings.NewReader("var searchData=[['x_9',['x',['x.html',1,'']]]];"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if table.Len() != 1 {
		t.Errorf("Len() = %d, want 1", table.Len())
	}
}
