package observability

import "unicode"

const maxFieldRunes = 256

// scrub drops control characters (newlines and tabs included on request
// fields) and caps the rune count so hostile input cannot distort log lines.
func scrub(value string, limit int) string {
	if limit <= 0 {
		limit = maxFieldRunes
	}
	out := make([]rune, 0, len(value))
	for _, r := range value {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			continue
		}
		out = append(out, r)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return string(out)
}

// SanitizeRoute bounds a route pattern before it reaches logs or span attributes.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return scrub(route, 180)
}

// SanitizeMethod bounds an HTTP method string.
func SanitizeMethod(method string) string {
	return scrub(method, 10)
}

// SanitizeUserID caps identifiers so logs never carry oversized principal values.
func SanitizeUserID(uid string) string {
	if uid == "" {
		return ""
	}
	return scrub(uid, 64)
}
