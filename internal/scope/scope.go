// Package scope implements the capability grammar attached to OAuth tokens.
//
// A scope string is three ordered sections: leading OpenID vocabulary
// tokens (plus the auth/offline_access flags), HTTP method tokens, and a
// trailing list of namespace declarations, each optionally narrowed to a
// model with the ns::Model form. Namespaces and models may be quoted with
// ' or " (no escaping) to embed whitespace.
//
// Parsing never fails hard: structural violations in the namespace section
// clear the namespace/model sets while keeping whatever the earlier
// sections already committed, and duplicate method tokens discard the whole
// method set. Callers that care can distinguish a recovered parse from a
// genuinely empty scope through Recovered.
package scope

import (
	"sort"
	"strings"
)

var openIDOrder = []string{"openid", "email", "profile", "address", "phone"}

var methodOrder = []string{"get", "post", "put", "delete"}

var openIDVocab = map[string]bool{
	"openid": true, "email": true, "profile": true, "address": true, "phone": true,
	"offline_access": true, "auth": true,
}

var methodVocab = map[string]bool{
	"get": true, "post": true, "put": true, "delete": true,
}

// Scope is the parsed form of a scope string. The zero value is an empty,
// invalid scope. Values are immutable once parsed; Merge returns a new one.
type Scope struct {
	auth          bool
	offlineAccess bool
	openid        map[string]bool
	methods       map[string]bool
	nss           map[string]bool
	dataTypes     map[string]map[string]bool
	recovered     bool
}

func newScope() *Scope {
	return &Scope{
		openid:    map[string]bool{},
		methods:   map[string]bool{},
		nss:       map[string]bool{},
		dataTypes: map[string]map[string]bool{},
	}
}

// Parse parses a scope string. It always returns a usable value: malformed
// sections degrade to empty sets rather than aborting (see package doc).
func Parse(s string) *Scope {
	sc := newScope()
	rest := s

	// Section 1: OpenID vocabulary, consumed greedily. auth and
	// offline_access are flags, not declarations.
	for {
		tok, tail, ok := leadingToken(rest)
		if !ok || !openIDVocab[tok] {
			break
		}
		switch tok {
		case "auth":
			sc.auth = true
		case "offline_access":
			sc.offlineAccess = true
		default:
			sc.openid[tok] = true
		}
		rest = tail
	}
	// email/profile/address/phone make no sense without openid itself;
	// such a combination invalidates the whole OpenID portion.
	if len(sc.openid) > 0 && !sc.openid["openid"] {
		sc.openid = map[string]bool{}
		sc.recovered = true
	}

	// Section 2: HTTP methods, consumed greedily. A repeated method
	// discards the entire set: duplicates signal a scope the client
	// assembled wrong, and half of it is worse than none.
	dup := false
	for {
		tok, tail, ok := leadingToken(rest)
		if !ok || !methodVocab[tok] {
			break
		}
		if sc.methods[tok] {
			dup = true
		}
		sc.methods[tok] = true
		rest = tail
	}
	if dup {
		sc.methods = map[string]bool{}
		sc.recovered = true
	}

	// Section 3: namespace declarations. Built into temporaries and only
	// committed when the whole tail parses cleanly.
	nss, dataTypes, err := parseNamespaces(rest)
	if err != nil {
		sc.recovered = true
		return sc
	}
	sc.nss = nss
	sc.dataTypes = dataTypes
	return sc
}

// leadingToken returns the next whitespace-delimited token and the
// remaining input. ok is false when the input is exhausted.
func leadingToken(s string) (tok, rest string, ok bool) {
	s = strings.TrimLeft(s, " \t\r\n")
	if s == "" {
		return "", "", false
	}
	end := strings.IndexAny(s, " \t\r\n")
	if end < 0 {
		return s, "", true
	}
	return s[:end], s[end:], true
}

// Valid reports whether the scope grants anything at all: an OpenID
// declaration, or at least one method over at least one target.
func (s *Scope) Valid() bool {
	return len(s.openid) > 0 || (len(s.methods) > 0 && (len(s.nss) > 0 || len(s.dataTypes) > 0))
}

// Recovered reports whether Parse hit a malformed section and degraded to
// an empty result for it instead of failing.
func (s *Scope) Recovered() bool { return s.recovered }

// Auth reports the auth flag.
func (s *Scope) Auth() bool { return s.auth }

// OfflineAccess reports the offline_access flag.
func (s *Scope) OfflineAccess() bool { return s.offlineAccess }

// OpenID reports whether the openid declaration itself was granted.
func (s *Scope) OpenID() bool { return s.openid["openid"] }

// Email reports whether the email claim set was granted.
func (s *Scope) Email() bool { return s.openid["email"] }

// Profile reports whether the profile claim set was granted.
func (s *Scope) Profile() bool { return s.openid["profile"] }

// OpenIDTokens returns the granted OpenID declarations in canonical order.
func (s *Scope) OpenIDTokens() []string {
	var out []string
	for _, t := range openIDOrder {
		if s.openid[t] {
			out = append(out, t)
		}
	}
	return out
}

// Methods returns the granted HTTP methods in canonical order.
func (s *Scope) Methods() []string {
	var out []string
	for _, m := range methodOrder {
		if s.methods[m] {
			out = append(out, m)
		}
	}
	return out
}

// HasMethod reports whether the given method was granted.
func (s *Scope) HasMethod(m string) bool { return s.methods[m] }

// Namespaces returns the bare namespace grants, sorted.
func (s *Scope) Namespaces() []string { return sortedKeys(s.nss) }

// DataTypes returns the per-namespace model grants, models sorted.
func (s *Scope) DataTypes() map[string][]string {
	out := make(map[string][]string, len(s.dataTypes))
	for ns, models := range s.dataTypes {
		out[ns] = sortedKeys(models)
	}
	return out
}

// String serializes the scope in canonical order: flags, OpenID tokens,
// methods, bare namespaces, ns::Model pairs. Parsing the output yields an
// equivalent scope; byte-identity with the original input is not promised.
func (s *Scope) String() string {
	var parts []string
	if s.auth {
		parts = append(parts, "auth")
	}
	if s.offlineAccess {
		parts = append(parts, "offline_access")
	}
	parts = append(parts, s.OpenIDTokens()...)
	parts = append(parts, s.Methods()...)
	for _, ns := range sortedKeys(s.nss) {
		parts = append(parts, quote(ns))
	}
	for _, ns := range sortedKeys(s.dataTypes) {
		for _, model := range sortedKeys(s.dataTypes[ns]) {
			parts = append(parts, quote(ns)+"::"+quote(model))
		}
	}
	return strings.Join(parts, " ")
}

// Merge returns a new scope granting the union of both inputs. Flags are
// OR'd, all sets unioned; neither input is modified.
func (s *Scope) Merge(other *Scope) *Scope {
	out := newScope()
	out.auth = s.auth || other.auth
	out.offlineAccess = s.offlineAccess || other.offlineAccess
	out.recovered = s.recovered || other.recovered
	for _, src := range []*Scope{s, other} {
		for t := range src.openid {
			out.openid[t] = true
		}
		for m := range src.methods {
			out.methods[m] = true
		}
		for ns := range src.nss {
			out.nss[ns] = true
		}
		for ns, models := range src.dataTypes {
			dst := out.dataTypes[ns]
			if dst == nil {
				dst = map[string]bool{}
				out.dataTypes[ns] = dst
			}
			for m := range models {
				dst[m] = true
			}
		}
	}
	return out
}

func quote(tok string) string {
	if !strings.ContainsAny(tok, " \t\r\n") {
		return tok
	}
	if !strings.Contains(tok, "'") {
		return "'" + tok + "'"
	}
	return `"` + tok + `"`
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
