package scope

import "errors"

// errMalformed aborts namespace parsing; Parse maps it to an empty,
// recovered namespace section.
var errMalformed = errors.New("malformed namespace declaration")

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

// parseNamespaces scans the trailing namespace section: a sequence of
// declarations, each a bare or quoted namespace token optionally followed
// (with no intervening whitespace) by "::" and a bare or quoted model
// token.
func parseNamespaces(s string) (map[string]bool, map[string]map[string]bool, error) {
	nss := map[string]bool{}
	dataTypes := map[string]map[string]bool{}

	i := 0
	for {
		for i < len(s) && isSpace(s[i]) {
			i++
		}
		if i >= len(s) {
			break
		}

		ns, next, err := scanPart(s, i)
		if err != nil {
			return nil, nil, err
		}
		i = next

		if i+1 < len(s) && s[i] == ':' && s[i+1] == ':' {
			i += 2
			model, next, err := scanPart(s, i)
			if err != nil {
				return nil, nil, err
			}
			i = next
			if i < len(s) && !isSpace(s[i]) {
				return nil, nil, errMalformed
			}
			models := dataTypes[ns]
			if models == nil {
				models = map[string]bool{}
				dataTypes[ns] = models
			}
			models[model] = true
			continue
		}

		if i < len(s) && !isSpace(s[i]) {
			return nil, nil, errMalformed
		}
		nss[ns] = true
	}
	return nss, dataTypes, nil
}

// scanPart reads one token starting at i: either a quoted string (matching
// ' or " delimiter, no escapes) or a bare run terminated by whitespace or
// a "::" separator. An empty token or an unterminated quote is a
// structural violation.
func scanPart(s string, i int) (string, int, error) {
	if i >= len(s) {
		return "", i, errMalformed
	}
	if q := s[i]; q == '\'' || q == '"' {
		j := i + 1
		for j < len(s) && s[j] != q {
			j++
		}
		if j >= len(s) {
			return "", i, errMalformed // unterminated quote
		}
		return s[i+1 : j], j + 1, nil
	}
	j := i
	for j < len(s) && !isSpace(s[j]) {
		if s[j] == ':' && j+1 < len(s) && s[j+1] == ':' {
			break
		}
		j++
	}
	if j == i {
		return "", i, errMalformed
	}
	return s[i:j], j, nil
}
