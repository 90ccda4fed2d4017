package docindex

import (
	"errors"
	"path/filepath"
	"regexp"
	"strings"
)

// SourceKind tells how a source is fetched.
type SourceKind string

// Source kinds
const (
	SourceLocal SourceKind = "local"
	SourceGit   SourceKind = "git"
)

// localPrefix marks IDs of local directory sources.
const localPrefix = "local_"

var (
	// ErrInvalidSSHURL indicates the URL is not a valid SSH URL
	ErrInvalidSSHURL = errors.New("invalid SSH URL format")

	// ErrInvalidSource indicates a location that is neither an SSH URL nor an absolute path
	ErrInvalidSource = errors.New("source must be an SSH git URL or an absolute directory")

	// Matches: git@github.com:org/docs.git or git@github.com:org/subgroup/docs.git
	sshScpPattern = regexp.MustCompile(`^git@([^:]+):(.+?)(?:\.git)?$`)

	// Matches: ssh://git@github.com/org/docs.git
	sshURLPattern = regexp.MustCompile(`^ssh://git@([^/]+)/(.+?)(?:\.git)?$`)
)

// Source is one configured documentation location.
type Source struct {
	// ID is the filesystem-safe identifier used for clone and index names.
	ID string
	// Location is the configured SSH URL or directory.
	Location string
	// Kind is how the source is fetched.
	Kind SourceKind
}

// ParseSource classifies a configured location.
//
// Examples:
//   - git@github.com:org/docs.git -> git, github.com_org_docs
//   - ssh://git@gitlab.com/group/sub/docs.git -> git, gitlab.com_group_sub_docs
//   - /srv/docs/html -> local, local_srv_docs_html
func ParseSource(location string) (Source, error) {
	location = strings.TrimSpace(location)
	if IsValidSSHURL(location) {
		return Source{ID: URLToSourceID(location), Location: location, Kind: SourceGit}, nil
	}
	if filepath.IsAbs(location) {
		clean := filepath.Clean(location)
		return Source{ID: localPathToSourceID(clean), Location: clean, Kind: SourceLocal}, nil
	}
	return Source{}, ErrInvalidSource
}

// ParseSSHURL parses an SSH git URL and returns the host, path, and repository name.
// Supports both SCP-style (git@host:path) and SSH URL style (ssh://git@host/path).
func ParseSSHURL(url string) (host, path, repo string, err error) {
	url = strings.TrimSpace(url)

	for _, pattern := range []*regexp.Regexp{sshScpPattern, sshURLPattern} {
		if matches := pattern.FindStringSubmatch(url); matches != nil {
			host = matches[1]
			path = matches[2]
			return host, path, lastSegment(path), nil
		}
	}
	return "", "", "", ErrInvalidSSHURL
}

// IsValidSSHURL checks if the given URL is a valid SSH git URL.
func IsValidSSHURL(url string) bool {
	_, _, _, err := ParseSSHURL(url)
	return err == nil
}

// URLToSourceID converts an SSH URL to a filesystem-safe source ID.
func URLToSourceID(url string) string {
	host, path, _, err := ParseSSHURL(url)
	if err != nil {
		return sanitizeForFilesystem(url)
	}
	return sanitizeForFilesystem(host + "/" + path)
}

// SourceIDToDisplay converts a source ID back to a display format, e.g.
// github.com_org_docs -> github.com/org/docs and
// local_srv_docs_html -> /srv/docs/html. Underscores inside path segments
// are not recoverable.
func SourceIDToDisplay(id string) string {
	if rest, ok := strings.CutPrefix(id, localPrefix); ok {
		return "/" + strings.ReplaceAll(rest, "_", "/")
	}
	host, rest, found := strings.Cut(id, "_")
	if !found {
		return id
	}
	return host + "/" + strings.ReplaceAll(rest, "_", "/")
}

func localPathToSourceID(path string) string {
	trimmed := strings.Trim(filepath.ToSlash(path), "/")
	if trimmed == "" {
		return localPrefix + "root"
	}
	return localPrefix + sanitizeForFilesystem(trimmed)
}

func lastSegment(path string) string {
	parts := strings.Split(path, "/")
	return parts[len(parts)-1]
}

// sanitizeForFilesystem converts a string to a filesystem-safe format.
func sanitizeForFilesystem(s string) string {
	s = strings.TrimPrefix(s, "ssh://git@")
	s = strings.TrimPrefix(s, "git@")
	s = strings.TrimSuffix(s, ".git")
	return strings.NewReplacer("/", "_", ":", "_", "@", "_", " ", "_").Replace(s)
}
