package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolview/toolview/pkg/config"
)

func sampleSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"owner": map[string]any{"type": "string", "description": "Repository owner"},
			"repo":  map[string]any{"type": "string"},
			"query": map[string]any{"type": "string"},
		},
		"required": []any{"owner", "repo", "query"},
	}
}

func TestTransformSchema_NilSchemaStaysNil(t *testing.T) {
	t.Parallel()

	params := map[string]*config.ParameterOverride{"owner": {Hide: true}}
	assert.Nil(t, TransformSchema(nil, params))
}

func TestTransformSchema_NoParamsReturnsInput(t *testing.T) {
	t.Parallel()

	schema := sampleSchema()
	out := TransformSchema(schema, nil)
	assert.Equal(t, schema, out)
}

func TestTransformSchema_HideRemovesParameter(t *testing.T) {
	t.Parallel()

	params := map[string]*config.ParameterOverride{
		"owner": {Hide: true, Default: "octocat"},
	}
	out := TransformSchema(sampleSchema(), params)

	props := out["properties"].(map[string]any)
	assert.NotContains(t, props, "owner")
	assert.Contains(t, props, "repo")

	required := out["required"].([]any)
	assert.NotContains(t, required, "owner")
	assert.Contains(t, required, "repo")
}

func TestTransformSchema_RenameMovesParameter(t *testing.T) {
	t.Parallel()

	params := map[string]*config.ParameterOverride{
		"repo": {Name: "repository", Description: "Target repository"},
	}
	out := TransformSchema(sampleSchema(), params)

	props := out["properties"].(map[string]any)
	assert.NotContains(t, props, "repo")
	require.Contains(t, props, "repository")

	prop := props["repository"].(map[string]any)
	assert.Equal(t, "Target repository", prop["description"])

	required := out["required"].([]any)
	assert.Contains(t, required, "repository")
	assert.NotContains(t, required, "repo")
}

func TestTransformSchema_DefaultMakesOptional(t *testing.T) {
	t.Parallel()

	params := map[string]*config.ParameterOverride{
		"query": {Default: "*"},
	}
	out := TransformSchema(sampleSchema(), params)

	props := out["properties"].(map[string]any)
	prop := props["query"].(map[string]any)
	assert.Equal(t, "*", prop["default"])

	required := out["required"].([]any)
	assert.NotContains(t, required, "query")
}

func TestTransformSchema_InputNotMutated(t *testing.T) {
	t.Parallel()

	schema := sampleSchema()
	params := map[string]*config.ParameterOverride{
		"owner": {Hide: true},
		"repo":  {Name: "repository"},
	}
	TransformSchema(schema, params)

	props := schema["properties"].(map[string]any)
	assert.Contains(t, props, "owner")
	assert.Contains(t, props, "repo")
	assert.Len(t, schema["required"], 3)
}

func TestTransformArgs_RenameMapsBack(t *testing.T) {
	t.Parallel()

	params := map[string]*config.ParameterOverride{
		"repo": {Name: "repository"},
	}
	out := TransformArgs(map[string]any{"repository": "toolview", "query": "x"}, params)

	assert.Equal(t, "toolview", out["repo"])
	assert.NotContains(t, out, "repository")
	assert.Equal(t, "x", out["query"])
}

func TestTransformArgs_HiddenDefaultInjected(t *testing.T) {
	t.Parallel()

	params := map[string]*config.ParameterOverride{
		"owner": {Hide: true, Default: "octocat"},
	}
	out := TransformArgs(map[string]any{"query": "x"}, params)

	assert.Equal(t, "octocat", out["owner"])
	assert.Equal(t, "x", out["query"])
}

func TestTransformArgs_CallerValueBeatsDefault(t *testing.T) {
	t.Parallel()

	params := map[string]*config.ParameterOverride{
		"query": {Default: "*"},
	}
	out := TransformArgs(map[string]any{"query": "specific"}, params)

	assert.Equal(t, "specific", out["query"])
}

func TestTransformArgs_NoParamsReturnsInput(t *testing.T) {
	t.Parallel()

	args := map[string]any{"a": 1}
	assert.Equal(t, args, TransformArgs(args, nil))
}
