package oauth

import "strings"

// ExtractCode finds the authorization code in a request target such as
// "/?code=abc&state=xyz" or a full request line "GET /?code=abc HTTP/1.1".
//
// Parameters are split on '&' and matched case-sensitively on the key. The
// value is returned as-is: authorization codes are opaque URL-safe tokens,
// so no percent-decoding is applied. An empty code counts as not found.
func ExtractCode(target string) (string, bool) {
	q := strings.IndexByte(target, '?')
	if q < 0 {
		return "", false
	}

	query := target[q+1:]
	if end := strings.IndexByte(query, ' '); end >= 0 {
		query = query[:end]
	}
	if end := strings.IndexByte(query, '#'); end >= 0 {
		query = query[:end]
	}

	for _, param := range strings.Split(query, "&") {
		value, ok := strings.CutPrefix(param, "code=")
		if !ok {
			continue
		}
		return value, value != ""
	}
	return "", false
}
