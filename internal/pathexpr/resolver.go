// Package pathexpr evaluates the restricted path-expression language used
// by skill step input mappings and conditions. Expressions are dollar-rooted
// and dot-separated, with an optional single bracketed integer index per
// segment, e.g. $.step1.output.items[0].name
package pathexpr

import (
	"strconv"
	"strings"
)

// Prefix marks a string value as a path expression rather than a literal.
const Prefix = "$."

// IsExpression reports whether s should be treated as a path expression.
func IsExpression(s string) bool {
	return strings.HasPrefix(s, Prefix)
}

// Resolve evaluates expr against ctx and returns the value at that path.
// The second return value is false when any segment fails to resolve
// (missing key, index out of range, non-indexable value). Resolution never
// panics; a miss is a normal outcome so step authors can reference optional
// upstream outputs without guarding every access.
func Resolve(expr string, ctx map[string]interface{}) (interface{}, bool) {
	if !IsExpression(expr) {
		return nil, false
	}

	var current interface{} = ctx
	for _, segment := range strings.Split(expr[len(Prefix):], ".") {
		if segment == "" {
			return nil, false
		}

		key, index, indexed, ok := splitSegment(segment)
		if !ok {
			return nil, false
		}

		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}

		if indexed {
			list, ok := current.([]interface{})
			if !ok {
				return nil, false
			}
			if index < 0 || index >= len(list) {
				return nil, false
			}
			current = list[index]
		}
	}

	return current, true
}

// RootSegment returns the first segment of expr (the context key it reads
// from), or "" if expr is not a path expression. The validator uses this to
// build the step dependency graph.
func RootSegment(expr string) string {
	if !IsExpression(expr) {
		return ""
	}
	root := expr[len(Prefix):]
	if i := strings.IndexByte(root, '.'); i >= 0 {
		root = root[:i]
	}
	if i := strings.IndexByte(root, '['); i >= 0 {
		root = root[:i]
	}
	return root
}

// splitSegment parses a single segment into its key and optional index.
// Valid forms are "key" and "key[3]".
func splitSegment(segment string) (key string, index int, indexed bool, ok bool) {
	open := strings.IndexByte(segment, '[')
	if open < 0 {
		return segment, 0, false, true
	}

	if !strings.HasSuffix(segment, "]") || open == 0 {
		return "", 0, false, false
	}

	idx, err := strconv.Atoi(segment[open+1 : len(segment)-1])
	if err != nil {
		return "", 0, false, false
	}

	return segment[:open], idx, true, true
}
