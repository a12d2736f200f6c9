package mapper

import (
	"github.com/toolview/toolview/pkg/config"
)

// TransformSchema applies parameter overrides to an upstream input schema,
// producing the schema the view exposes. Hidden parameters are removed,
// renamed parameters appear under their exposed name, and description or
// default overrides are spliced into the property definition. The input
// schema is never mutated; a nil schema stays nil.
func TransformSchema(schema map[string]any, params map[string]*config.ParameterOverride) map[string]any {
	if schema == nil {
		return nil
	}
	if len(params) == 0 {
		return schema
	}

	out := make(map[string]any, len(schema))
	for k, v := range schema {
		out[k] = v
	}

	props, _ := schema["properties"].(map[string]any)
	outProps := make(map[string]any, len(props))
	for k, v := range props {
		outProps[k] = v
	}

	required := requiredNames(schema)

	for name, po := range params {
		if po == nil {
			continue
		}
		prop, exists := outProps[name]
		if !exists {
			continue
		}

		if po.Hide {
			delete(outProps, name)
			required = removeName(required, name)
			continue
		}

		propMap := copyProp(prop)
		if po.Description != "" {
			propMap["description"] = po.Description
		}
		if po.Default != nil {
			propMap["default"] = po.Default
			required = removeName(required, name)
		}

		if po.Name != "" {
			delete(outProps, name)
			outProps[po.Name] = propMap
			required = renameIn(required, name, po.Name)
		} else {
			outProps[name] = propMap
		}
	}

	out["properties"] = outProps
	if required != nil {
		out["required"] = toAnySlice(required)
	} else {
		delete(out, "required")
	}

	return out
}

// TransformArgs maps caller-supplied arguments back to the shape the
// upstream tool expects: renamed parameters revert to their original names,
// hidden parameters get their configured default injected, and omitted
// parameters with defaults are filled in. The input map is never mutated.
func TransformArgs(args map[string]any, params map[string]*config.ParameterOverride) map[string]any {
	if len(params) == 0 {
		return args
	}

	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}

	for name, po := range params {
		if po == nil {
			continue
		}

		if po.Name != "" {
			if v, ok := out[po.Name]; ok {
				delete(out, po.Name)
				out[name] = v
			}
		}

		if po.Default != nil {
			if _, present := out[name]; !present {
				out[name] = po.Default
			}
		}
	}

	return out
}

func copyProp(prop any) map[string]any {
	m, ok := prop.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// requiredNames extracts the required list, tolerating both []any (from
// JSON/YAML parsing) and []string (from programmatic construction).
func requiredNames(schema map[string]any) []string {
	switch req := schema["required"].(type) {
	case []string:
		out := make([]string, len(req))
		copy(out, req)
		return out
	case []any:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func removeName(names []string, name string) []string {
	out := names[:0:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}

func renameIn(names []string, from, to string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		if n == from {
			out[i] = to
		} else {
			out[i] = n
		}
	}
	return out
}

func toAnySlice(names []string) []any {
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = n
	}
	return out
}
