// Package jsonpath extracts a scalar from a decoded JSON document using a
// dotted path such as "results[0].alternatives[0].transcript".
package jsonpath

import (
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

type step struct {
	key  string
	idxs []int
}

// Path is a compiled dotted path.
type Path struct {
	raw   string
	steps []step
}

// Compile parses a dotted path. An empty path compiles to the zero Path,
// which never matches.
func Compile(path string) (Path, error) {
	if path == "" {
		return Path{}, nil
	}
	p := Path{raw: path}
	for _, part := range strings.Split(path, ".") {
		key, idxs, err := parseToken(part)
		if err != nil {
			return Path{}, fmt.Errorf("invalid text path %q: %w", path, err)
		}
		p.steps = append(p.steps, step{key: key, idxs: idxs})
	}
	return p, nil
}

func (p Path) String() string { return p.raw }

// Empty reports whether the path has no steps.
func (p Path) Empty() bool { return len(p.steps) == 0 }

// Lookup walks root and returns the scalar found at the path as a string.
func (p Path) Lookup(root interface{}) (string, bool) {
	if p.Empty() {
		return "", false
	}
	cur := root
	for _, s := range p.steps {
		if s.key != "" {
			m, ok := cur.(map[string]interface{})
			if !ok {
				return "", false
			}
			next, exists := m[s.key]
			if !exists {
				return "", false
			}
			cur = next
		}
		for _, idx := range s.idxs {
			arr, ok := cur.([]interface{})
			if !ok || idx < 0 || idx >= len(arr) {
				return "", false
			}
			cur = arr[idx]
		}
	}
	return scalar(cur)
}

// Extract decodes body and returns the text at the path. When the path is
// empty or does not match, the top-level "text" field is tried, then the
// first non-empty top-level string.
func (p Path) Extract(body []byte) string {
	var root interface{}
	if err := json.Unmarshal(body, &root); err != nil {
		return ""
	}
	if v, ok := p.Lookup(root); ok {
		return v
	}
	m, ok := root.(map[string]interface{})
	if !ok {
		return ""
	}
	if v, ok := scalar(m["text"]); ok {
		return v
	}
	for _, val := range m {
		if s, ok := val.(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func scalar(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case float64:
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10), true
		}
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(s), true
	default:
		return "", false
	}
}

// parseToken splits "foo[0][1]", "[0]" or "bar" into a key and indexes.
func parseToken(token string) (string, []int, error) {
	if token == "" {
		return "", nil, fmt.Errorf("empty segment")
	}
	br := strings.Index(token, "[")
	if br == -1 {
		return token, nil, nil
	}
	key := token[:br]
	rest := token[br:]
	var idxs []int
	for len(rest) > 0 {
		if !strings.HasPrefix(rest, "[") {
			return "", nil, fmt.Errorf("invalid index syntax in %s", token)
		}
		closePos := strings.Index(rest, "]")
		if closePos == -1 {
			return "", nil, fmt.Errorf("missing closing ] in %s", token)
		}
		numStr := rest[1:closePos]
		if numStr == "" {
			return "", nil, fmt.Errorf("empty index in %s", token)
		}
		n, err := strconv.Atoi(numStr)
		if err != nil {
			return "", nil, fmt.Errorf("invalid index '%s' in %s", numStr, token)
		}
		idxs = append(idxs, n)
		rest = rest[closePos+1:]
	}
	return key, idxs, nil
}
