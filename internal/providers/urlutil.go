package providers

import "strings"

// splitURLSuffix separates a URL into its path-and-earlier portion and
// its query/fragment suffix (the leading '?' or '#' is retained in the
// suffix), so path manipulation never clobbers a caller-supplied query
// string.
func splitURLSuffix(u string) (path, suffix string) {
	if idx := strings.IndexAny(u, "?#"); idx != -1 {
		return u[:idx], u[idx:]
	}
	return u, ""
}

// anthropicFullPathSuffixes are the endpoint suffixes that indicate a
// base URL already terminates in a complete Anthropic/Chat path, making
// further endpoint concatenation redundant (idempotent BuildURL).
var anthropicFullPathSuffixes = []string{
	"/v1/messages",
	"/messages",
	"/v1/chat/completions",
	"/chat/completions",
}

func hasFullPathSuffix(path string) bool {
	lower := strings.ToLower(path)
	for _, suffix := range anthropicFullPathSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// joinPath concatenates base and endpoint after trimming exactly one
// boundary slash from each side.
func joinPath(base, endpoint string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(endpoint, "/")
}

// collapseSegmentDuplicate removes one duplicated path segment (e.g.
// "/v1/v1/" -> "/v1/") but only when it occurs on a segment boundary, so
// "/v1beta/v1/x" or "/v1/v1beta/x" are left untouched.
func collapseSegmentDuplicate(path, segment string) string {
	dup := "/" + segment + "/" + segment + "/"
	repl := "/" + segment + "/"

	for {
		idx := strings.Index(path, dup)
		if idx == -1 {
			break
		}
		path = path[:idx] + repl + path[idx+len(dup):]
	}

	// Also handle a duplicate that lands exactly at the end of the path
	// (no trailing slash), e.g. "/v1/v1".
	dupEnd := "/" + segment + "/" + segment
	if strings.HasSuffix(path, dupEnd) {
		path = strings.TrimSuffix(path, dupEnd) + "/" + segment
	}

	return path
}
