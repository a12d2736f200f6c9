// Package composite executes composite tools: a single exposed tool whose
// invocation fans out to several upstream calls concurrently, with argument
// templating and per-branch failure isolation.
package composite

import (
	"fmt"
	"regexp"
	"strings"
)

// maxTemplateDepth bounds recursion through nested argument structures.
const maxTemplateDepth = 100

// placeholderPattern matches {inputs.<field>} references in template strings.
var placeholderPattern = regexp.MustCompile(`\{inputs\.([A-Za-z0-9_]+)\}`)

// bracePattern matches any {...} group, used to reject malformed references
// such as {inputs.} or {input.x} at validation time.
var bracePattern = regexp.MustCompile(`\{[^{}]*\}`)

// validateTemplate checks every string in the argument template for
// malformed placeholder syntax. Only {inputs.<field>} references are legal
// inside braces.
func validateTemplate(value any, depth int) error {
	if depth > maxTemplateDepth {
		return fmt.Errorf("argument template nested deeper than %d levels", maxTemplateDepth)
	}

	switch v := value.(type) {
	case string:
		for _, group := range bracePattern.FindAllString(v, -1) {
			if !placeholderPattern.MatchString(group) {
				return fmt.Errorf("malformed placeholder %q, expected {inputs.<field>}", group)
			}
		}
	case map[string]any:
		for key, val := range v {
			if err := validateTemplate(val, depth+1); err != nil {
				return fmt.Errorf("key %q: %w", key, err)
			}
		}
	case []any:
		for i, val := range v {
			if err := validateTemplate(val, depth+1); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
	}

	return nil
}

// expandArgs substitutes {inputs.<field>} placeholders throughout an
// argument template. A string that is exactly one placeholder takes the
// input value with its structure intact; placeholders embedded in longer
// strings are stringified. Referencing an input field the caller did not
// supply is an error, reported per branch by the executor.
func expandArgs(args map[string]any, inputs map[string]any) (map[string]any, error) {
	if args == nil {
		return nil, nil
	}

	out := make(map[string]any, len(args))
	for key, value := range args {
		expanded, err := expandValue(value, inputs, 0)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", key, err)
		}
		out[key] = expanded
	}
	return out, nil
}

func expandValue(value any, inputs map[string]any, depth int) (any, error) {
	if depth > maxTemplateDepth {
		return nil, fmt.Errorf("argument template nested deeper than %d levels", maxTemplateDepth)
	}

	switch v := value.(type) {
	case string:
		return expandString(v, inputs)

	case map[string]any:
		expanded := make(map[string]any, len(v))
		for key, val := range v {
			ev, err := expandValue(val, inputs, depth+1)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", key, err)
			}
			expanded[key] = ev
		}
		return expanded, nil

	case []any:
		expanded := make([]any, len(v))
		for i, val := range v {
			ev, err := expandValue(val, inputs, depth+1)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			expanded[i] = ev
		}
		return expanded, nil

	default:
		// Numbers, booleans and nil pass through unchanged.
		return value, nil
	}
}

func expandString(s string, inputs map[string]any) (any, error) {
	// A string that is exactly one placeholder keeps the input's structure.
	if m := placeholderPattern.FindStringSubmatch(s); m != nil && m[0] == s {
		val, ok := inputs[m[1]]
		if !ok {
			return nil, fmt.Errorf("input field %q was not provided", m[1])
		}
		return val, nil
	}

	var missing string
	expanded := placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		field := placeholderPattern.FindStringSubmatch(match)[1]
		val, ok := inputs[field]
		if !ok {
			if missing == "" {
				missing = field
			}
			return match
		}
		return stringify(val)
	})
	if missing != "" {
		return nil, fmt.Errorf("input field %q was not provided", missing)
	}
	return expanded, nil
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return strings.TrimSpace(fmt.Sprintf("%v", v))
}
