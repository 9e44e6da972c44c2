package scope

import (
	"fmt"
	"sort"
	"strings"
)

// Descriptions returns human-readable consent strings covering exactly the
// granted capabilities, for display on authorization screens and audit
// trails.
func (s *Scope) Descriptions() []string {
	var out []string
	if s.openid["openid"] {
		out = append(out, "Authenticate with your account")
	}
	if s.openid["email"] {
		out = append(out, "View your email")
	}
	if s.openid["profile"] {
		out = append(out, "View your basic profile")
	}
	if s.openid["address"] {
		out = append(out, "View your address")
	}
	if s.openid["phone"] {
		out = append(out, "View your phone number")
	}
	if s.offlineAccess {
		out = append(out, "Access your data while you are not connected")
	}

	methods := humanJoin(s.Methods())
	if methods != "" {
		for _, ns := range sortedKeys(s.nss) {
			out = append(out, fmt.Sprintf("%s records from namespace '%s'", methods, ns))
		}
		var pairs []string
		for ns, models := range s.dataTypes {
			for m := range models {
				pairs = append(pairs, fmt.Sprintf("'%s::%s'", ns, m))
			}
		}
		sort.Strings(pairs)
		for _, p := range pairs {
			out = append(out, fmt.Sprintf("%s records of type %s", methods, p))
		}
	}
	return out
}

// humanJoin renders ["get","post","put"] as "get, post and put".
func humanJoin(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}
