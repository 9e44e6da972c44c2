// Package uri resolves relative schema references against a base URI.
//
// The resolution here is purely structural: no network access, no
// normalization beyond what the proxy rewrite needs. The base path's last
// segment is always the referencing document itself and is dropped before
// joining.
package uri

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidURI marks inputs that cannot be parsed as URIs.
var ErrInvalidURI = errors.New("invalid uri")

// Resolve resolves ref against base. Absolute refs pass through unchanged.
// Relative refs are joined segment-wise: the base document's own file name
// is removed, then each leading ".." in ref discards one more trailing base
// segment ("go up one directory"). The base's scheme and host are attached
// to the result.
func Resolve(base, ref string) (string, error) {
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidURI, ref)
	}
	if refURL.IsAbs() {
		return ref, nil
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidURI, base)
	}

	refSegs := strings.Split(ref, "/")
	path := strings.Split(baseURL.Path, "/")

	// Drop the base document's own segment, then one more per leading "..".
	if len(path) > 0 {
		path = path[:len(path)-1]
	}
	for len(refSegs) > 0 && refSegs[0] == ".." {
		refSegs = refSegs[1:]
		if len(path) > 0 {
			path = path[:len(path)-1]
		}
	}

	joined := strings.Join(append(path, refSegs...), "/")
	out, err := url.Parse(joined)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidURI, joined)
	}
	out.Scheme = baseURL.Scheme
	out.Host = baseURL.Host
	return out.String(), nil
}
