package types

import (
	"path"
	"regexp"
	"strings"
)

const (
	// DefaultAuthority is the resource authority used when a vos URI
	// carries no authority part.
	DefaultAuthority = "cadc.nrc.ca!vospace"

	// VOSScheme is the only scheme accepted for node URIs.
	VOSScheme = "vos"
)

// uriRE splits a URI into scheme, authority and path. The stdlib URL
// parser rejects the "!" and "~" characters the vospace authority uses,
// so the split is done here.
var uriRE = regexp.MustCompile(`^(?:([a-zA-Z]+):)?(?://([^/]*))?(/?.*)$`)

// nameRE is the set of characters a node name may contain.
var nameRE = regexp.MustCompile(`^[-\w()=+!,;:@&*$.~]*$`)

// NodeURI identifies a node within a VOSpace service.
type NodeURI struct {
	Authority string
	Path      string
}

// ParseURI breaks a raw vos URI into its parts. Relative names are
// resolved against root, which defaults to "vos:", and a missing
// authority falls back to authority, which defaults to DefaultAuthority.
func ParseURI(raw, root, authority string) (NodeURI, error) {
	if !IsVOSURI(raw) {
		if root == "" {
			root = VOSScheme + ":"
		}
		raw = root + raw
	}
	m := uriRE.FindStringSubmatch(raw)
	if m == nil || m[1] != VOSScheme {
		return NodeURI{}, Wrapf(ErrInvalidURI, "%q", raw)
	}
	u := NodeURI{Authority: m[2], Path: cleanPath(m[3])}
	if u.Authority == "" {
		u.Authority = authority
	}
	if u.Authority == "" {
		u.Authority = DefaultAuthority
	}
	if !nameRE.MatchString(u.Name()) {
		return NodeURI{}, Wrapf(ErrInvalidName, "%q", u.Name())
	}
	return u, nil
}

// IsVOSURI reports whether s names a remote node rather than a local file.
func IsVOSURI(s string) bool {
	return strings.HasPrefix(s, VOSScheme+":")
}

func cleanPath(p string) string {
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}

func (u NodeURI) String() string {
	if u.Path == "" {
		return VOSScheme + "://" + u.Authority
	}
	return VOSScheme + "://" + u.Authority + "/" + u.Path
}

// Name returns the last path element, or "" for the root node.
func (u NodeURI) Name() string {
	if u.Path == "" {
		return ""
	}
	return path.Base(u.Path)
}

// Dir returns the URI of the parent container.
func (u NodeURI) Dir() NodeURI {
	d := path.Dir(u.Path)
	if d == "." || d == "/" {
		d = ""
	}
	return NodeURI{Authority: u.Authority, Path: d}
}

// Join returns the URI of a child called name.
func (u NodeURI) Join(name string) NodeURI {
	return NodeURI{Authority: u.Authority, Path: cleanPath(u.Path + "/" + name)}
}

// IsRoot reports whether u names the top of the space.
func (u NodeURI) IsRoot() bool {
	return u.Path == ""
}
