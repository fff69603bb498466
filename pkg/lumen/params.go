package lumen

import (
	"net/url"
	"sort"
	"strings"
)

// EncodeValues renders url.Values as a canonical query string: keys sorted,
// values percent-encoded except for the comparison and list operators the API
// reads literally (> < ! | , : *). The output round-trips through
// url.ParseQuery, which tolerates those characters in values.
//
// url.Values.Encode is not used because it escapes the operator characters,
// which some servers then fail to interpret as comparisons.
func EncodeValues(values url.Values) string {
	if len(values) == 0 {
		return ""
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	var buf strings.Builder

	for _, key := range keys {
		for _, value := range values[key] {
			if buf.Len() > 0 {
				buf.WriteByte('&')
			}

			buf.WriteString(escapeParam(key))
			buf.WriteByte('=')
			buf.WriteString(escapeParam(value))
		}
	}

	return buf.String()
}

const upperhex = "0123456789ABCDEF"

// escapeParam percent-encodes a query component, keeping RFC 3986 unreserved
// characters and the API's operator characters literal. '+' is always
// encoded so that decoders never mistake it for an encoded space.
func escapeParam(s string) string {
	hexCount := 0

	for i := 0; i < len(s); i++ {
		if shouldEscape(s[i]) {
			hexCount++
		}
	}

	if hexCount == 0 {
		return s
	}

	var buf strings.Builder

	buf.Grow(len(s) + 2*hexCount)

	for i := 0; i < len(s); i++ {
		c := s[i]
		if shouldEscape(c) {
			buf.WriteByte('%')
			buf.WriteByte(upperhex[c>>4])
			buf.WriteByte(upperhex[c&15])
		} else {
			buf.WriteByte(c)
		}
	}

	return buf.String()
}

func shouldEscape(c byte) bool {
	if 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' {
		return false
	}

	switch c {
	case '-', '_', '.', '~':
		// RFC 3986 unreserved.
		return false
	case '>', '<', '!', '|', ',', ':', '*', '(', ')', '/':
		// Operator and separator characters the API expects literal.
		return false
	}

	return true
}
