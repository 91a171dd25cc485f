package chunk

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// flattenJSON renders a JSON document as "path: value" lines, one
// paragraph per top-level member. Keys are emitted in sorted order.
func flattenJSON(content string) (string, error) {
	dec := json.NewDecoder(strings.NewReader(content))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return "", fmt.Errorf("invalid JSON: trailing data after value")
	}

	var paragraphs []string
	switch t := v.(type) {
	case map[string]any:
		for _, k := range sortedKeys(t) {
			var b bytes.Buffer
			writeFlat(&b, k, t[k])
			paragraphs = append(paragraphs, strings.TrimRight(b.String(), "\n"))
		}
	case []any:
		for i, item := range t {
			var b bytes.Buffer
			writeFlat(&b, fmt.Sprintf("[%d]", i), item)
			paragraphs = append(paragraphs, strings.TrimRight(b.String(), "\n"))
		}
	default:
		var b bytes.Buffer
		writeFlat(&b, "", t)
		paragraphs = append(paragraphs, strings.TrimRight(b.String(), "\n"))
	}
	return strings.Join(paragraphs, paragraphSep), nil
}

func writeFlat(b *bytes.Buffer, path string, v any) {
	switch t := v.(type) {
	case map[string]any:
		if len(t) == 0 {
			writeLeaf(b, path, "{}")
			return
		}
		for _, k := range sortedKeys(t) {
			writeFlat(b, joinPath(path, k), t[k])
		}
	case []any:
		if len(t) == 0 {
			writeLeaf(b, path, "[]")
			return
		}
		for i, item := range t {
			writeFlat(b, fmt.Sprintf("%s[%d]", path, i), item)
		}
	case nil:
		writeLeaf(b, path, "null")
	case string:
		writeLeaf(b, path, t)
	default:
		writeLeaf(b, path, fmt.Sprint(t))
	}
}

func writeLeaf(b *bytes.Buffer, path, value string) {
	if path != "" {
		b.WriteString(path)
		b.WriteString(": ")
	}
	b.WriteString(value)
	b.WriteByte('\n')
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
