package searchdata

import (
	"fmt"
	"html"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sha1n/mcp-symdex-server/internal/container/list"
	"github.com/sha1n/mcp-symdex-server/internal/container/stack"
)

// VarName is the JavaScript variable every fragment assigns.
const VarName = "searchData"

type nodeKind int

const (
	nodeArray nodeKind = iota
	nodeString
	nodeNumber
)

type node struct {
	kind     nodeKind
	text     string
	num      int
	offset   int
	children []*node
}

// Parse decodes a search fragment of the form
//
//	var searchData=[ ['key_N',['Label',['page#anchor',1,'scope'],...]], ... ];
//
// and returns the table it describes. The table is not validated; call
// Validate to enforce key uniqueness and non-empty references.
func Parse(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read search data: %w", err)
	}
	return ParseString(string(data))
}

// ParseString is Parse over an in-memory fragment.
func ParseString(src string) (*Table, error) {
	lx := newLexer(src)
	root, err := parseDeclaration(lx)
	if err != nil {
		return nil, err
	}
	entries, err := decodeEntries(root)
	if err != nil {
		return nil, err
	}
	return NewTable(entries), nil
}

// ParseFile parses the fragment stored at path.
func ParseFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open search data: %w", err)
	}
	defer func() { _ = f.Close() }()

	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// parseDeclaration consumes `var searchData = <array> ;` and returns the array.
func parseDeclaration(lx *lexer) (*node, error) {
	expect := func(kind tokenKind, text string) error {
		tok, err := lx.next()
		if err != nil {
			return err
		}
		if tok.kind != kind || (text != "" && tok.text != text) {
			want := kind.String()
			if text != "" {
				want = strconv.Quote(text)
			}
			return lx.errorf(tok.offset, "expected %s", want)
		}
		return nil
	}

	if err := expect(tokIdent, "var"); err != nil {
		return nil, err
	}
	if err := expect(tokIdent, VarName); err != nil {
		return nil, err
	}
	if err := expect(tokEquals, ""); err != nil {
		return nil, err
	}

	root, err := parseValue(lx)
	if err != nil {
		return nil, err
	}
	if root.kind != nodeArray {
		return nil, lx.errorf(root.offset, "expected array literal")
	}

	tok, err := lx.next()
	if err != nil {
		return nil, err
	}
	if tok.kind == tokSemicolon {
		if tok, err = lx.next(); err != nil {
			return nil, err
		}
	}
	if tok.kind != tokEOF {
		return nil, lx.errorf(tok.offset, "unexpected %s after declaration", tok.kind)
	}
	return root, nil
}

// parseValue reads one literal. Arrays are built iteratively: open arrays
// live on a stack so deeply nested input cannot exhaust the goroutine stack.
func parseValue(lx *lexer) (*node, error) {
	open := stack.New[*node]()
	// expectValue is true right after '[' or ',' where an element must follow.
	expectValue := true

	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}

		var leaf *node
		switch tok.kind {
		case tokLBracket:
			if !expectValue {
				return nil, lx.errorf(tok.offset, "missing ',' before '['")
			}
			open.Push(&node{kind: nodeArray, offset: tok.offset})
			continue
		case tokRBracket:
			top, err := open.Pop()
			if err != nil {
				return nil, lx.errorf(tok.offset, "unbalanced ']'")
			}
			// A trailing comma ([1,2,]) is valid JavaScript; an empty slot ([1,,2]) is not.
			expectValue = false
			leaf = top
		case tokComma:
			if open.IsEmpty() || expectValue {
				return nil, lx.errorf(tok.offset, "unexpected ','")
			}
			expectValue = true
			continue
		case tokString:
			leaf = &node{kind: nodeString, text: tok.text, offset: tok.offset}
		case tokNumber:
			n, err := strconv.Atoi(tok.text)
			if err != nil {
				return nil, lx.errorf(tok.offset, "invalid number %q", tok.text)
			}
			leaf = &node{kind: nodeNumber, num: n, text: tok.text, offset: tok.offset}
		case tokEOF:
			return nil, lx.errorf(tok.offset, "unexpected end of input")
		default:
			return nil, lx.errorf(tok.offset, "unexpected %s", tok.kind)
		}

		if leaf.kind != nodeArray && !expectValue {
			return nil, lx.errorf(tok.offset, "missing ','")
		}

		parent, err := open.Peek()
		if err != nil {
			// Closed the outermost value, or a bare scalar.
			return leaf, nil
		}
		parent.children = append(parent.children, leaf)
		expectValue = false
	}
}

// decodeEntries maps the generic literal tree onto entries.
func decodeEntries(root *node) ([]Entry, error) {
	entries := make([]Entry, 0, len(root.children))
	for _, item := range root.children {
		e, err := decodeEntry(item)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func decodeEntry(n *node) (Entry, error) {
	if n.kind != nodeArray || len(n.children) < 2 {
		return Entry{}, malformed(n, "entry must be [key, [label, refs...]]")
	}
	keyNode, body := n.children[0], n.children[1]
	if keyNode.kind != nodeString || keyNode.text == "" {
		return Entry{}, malformed(keyNode, "entry key must be a non-empty string")
	}
	if body.kind != nodeArray || len(body.children) == 0 || body.children[0].kind != nodeString {
		return Entry{}, malformed(body, "entry body must start with a label string")
	}

	key, id := SplitKey(keyNode.text)
	refs := list.NewLinked[Ref](nil)
	for _, child := range body.children[1:] {
		if err := collectRefs(child, refs); err != nil {
			return Entry{}, err
		}
	}

	return Entry{
		RawKey: keyNode.text,
		Key:    key,
		ID:     id,
		Label:  cleanText(body.children[0].text),
		Refs:   refs.ToArray(),
	}, nil
}

// collectRefs appends the references described by n. A reference is
// [page, flag?, scope?]; an array whose first element is itself an array
// groups nested references and is flattened.
func collectRefs(n *node, out *list.LinkedList[Ref]) error {
	if n.kind != nodeArray {
		return malformed(n, "reference must be an array")
	}
	if len(n.children) == 0 {
		return malformed(n, "reference must not be empty")
	}
	if n.children[0].kind == nodeArray {
		for _, child := range n.children {
			if err := collectRefs(child, out); err != nil {
				return err
			}
		}
		return nil
	}

	first := n.children[0]
	if first.kind != nodeString {
		return malformed(first, "reference page must be a string")
	}
	page, anchor, _ := strings.Cut(first.text, "#")
	ref := Ref{Page: page, Anchor: anchor}

	for _, extra := range n.children[1:] {
		switch extra.kind {
		case nodeNumber:
			ref.TargetParent = extra.num != 0
		case nodeString:
			ref.Scope = cleanText(extra.text)
		default:
			return malformed(extra, "unexpected nested array in reference")
		}
	}
	out.AddLast(ref)
	return nil
}

// cleanText unescapes HTML entities and turns non-breaking spaces into
// plain ones.
func cleanText(s string) string {
	return strings.ReplaceAll(html.UnescapeString(s), "\u00a0", " ")
}

func malformed(n *node, msg string) error {
	return fmt.Errorf("%w at offset %d: %s", ErrMalformed, n.offset, msg)
}
