package docindex

import (
	"path"
	"path/filepath"
	"strings"
)

// SearchDirName is the directory the generator writes search-data fragments to.
const SearchDirName = "search"

// DefaultExcludeDirs are directories never walked while looking for fragments.
var DefaultExcludeDirs = []string{".git", "node_modules", ".svn", ".hg"}

// DefaultExcludeFiles are search-directory scripts that are not fragments.
// A trailing ".*" matches any extension.
var DefaultExcludeFiles = []string{"search.js", "searchdata.js", "nomatches.*"}

// FragmentFilter selects search-data fragments within a documentation tree.
type FragmentFilter struct {
	excludeDirs  []string
	excludeFiles []string
	maxFileSize  int64
}

// NewFragmentFilter creates a filter with the default exclusions.
func NewFragmentFilter(maxFileSize int64) *FragmentFilter {
	return &FragmentFilter{
		excludeDirs:  DefaultExcludeDirs,
		excludeFiles: DefaultExcludeFiles,
		maxFileSize:  maxFileSize,
	}
}

// SkipDir reports whether a directory should not be descended into.
func (f *FragmentFilter) SkipDir(name string) bool {
	for _, d := range f.excludeDirs {
		if name == d {
			return true
		}
	}
	return false
}

// IsFragment reports whether relPath, relative to the source root, names a
// fragment: a .js file directly inside a search directory that is not one of
// the generator's helper scripts.
func (f *FragmentFilter) IsFragment(relPath string) bool {
	p := filepath.ToSlash(relPath)
	if path.Base(path.Dir(p)) != SearchDirName {
		return false
	}
	name := path.Base(p)
	if !strings.EqualFold(path.Ext(name), ".js") {
		return false
	}
	for _, pattern := range f.excludeFiles {
		if matchFileName(pattern, name) {
			return false
		}
	}
	for _, part := range strings.Split(path.Dir(p), "/") {
		if f.SkipDir(part) {
			return false
		}
	}
	return true
}

// Accept reports whether a fragment of the given size may be indexed.
func (f *FragmentFilter) Accept(relPath string, size int64) bool {
	return f.IsFragment(relPath) && (f.maxFileSize <= 0 || size <= f.maxFileSize)
}

// MaxFileSize returns the maximum fragment size for indexing.
func (f *FragmentFilter) MaxFileSize() int64 {
	return f.maxFileSize
}

func matchFileName(pattern, name string) bool {
	if stem, ok := strings.CutSuffix(pattern, ".*"); ok {
		return strings.TrimSuffix(name, path.Ext(name)) == stem
	}
	return pattern == name
}
