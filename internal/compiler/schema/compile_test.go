package schema

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/needs-tools/needschema/internal/compiler/errors"
	"github.com/needs-tools/needschema/internal/metamodel"
)

// decode round-trips a document through JSON so assertions see exactly what
// a validator would see.
func decode(t *testing.T, doc *Document) map[string]any {
	t.Helper()
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func compile(t *testing.T, nodes ...metamodel.Node) (*Result, map[string]any) {
	t.Helper()
	res, err := Compile(metamodel.New(nodes))
	require.NoError(t, err)
	return res, decode(t, res.Document)
}

func path(t *testing.T, v any, keys ...string) any {
	t.Helper()
	for _, k := range keys {
		m, ok := v.(map[string]any)
		require.True(t, ok, "expected object at %q", k)
		v, ok = m[k]
		require.True(t, ok, "missing key %q", k)
	}
	return v
}

func schemas(t *testing.T, out map[string]any) []map[string]any {
	t.Helper()
	list, ok := out["schemas"].([]any)
	require.True(t, ok)
	res := make([]map[string]any, len(list))
	for i, e := range list {
		res[i] = e.(map[string]any)
	}
	return res
}

func TestCompile_EmptyTable(t *testing.T) {
	res, err := Compile(metamodel.New(nil))
	require.NoError(t, err)
	assert.Empty(t, res.Diagnostics)

	data, err := json.Marshal(res.Document)
	require.NoError(t, err)
	assert.JSONEq(t, `{"$defs": {}, "schemas": []}`, string(data))

	res, err = Compile(nil)
	require.NoError(t, err)
	assert.Empty(t, res.Document.Schemas)
}

func TestCompile_EndToEnd(t *testing.T) {
	res, out := compile(t,
		&metamodel.EntityType{NodeID: "REQ_1", Directive: "req"},
		&metamodel.EntityType{NodeID: "IMPL_1", Directive: "impl"},
		&metamodel.LinkKind{NodeID: "LINK_1", Option: "implements"},
		&metamodel.Association{NodeID: "ASSOC_1", Parent: "REQ_1", Link: []string{"LINK_1"}, Targets: []string{"IMPL_1"}},
	)
	assert.Empty(t, res.Diagnostics)

	entries := schemas(t, out)
	require.Len(t, entries, 2)

	req := entries[0]
	assert.Equal(t, "REQ_1", req["id"])
	assert.Equal(t, "#/$defs/select_req", path(t, req, "select", "$ref"))
	enum := path(t, req, "validate", "network", "implements", "contains", "local", "properties", "type", "enum")
	assert.Equal(t, []any{"impl"}, enum)
	assert.Equal(t, float64(0), path(t, req, "validate", "network", "implements", "minContains"))

	local := path(t, req, "validate", "local").(map[string]any)
	assert.Equal(t, false, local["unevaluatedProperties"])
	assert.Equal(t, []any{map[string]any{"$ref": "#/$defs/REQ_1"}}, local["allOf"])

	// the structural definition carries the link option and the aggregate list
	props := path(t, out, "$defs", "REQ_1", "properties").(map[string]any)
	arrayOfStrings := map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
	assert.Equal(t, arrayOfStrings, props["implements"])
	assert.Equal(t, arrayOfStrings, props["links"])

	impl := entries[1]
	assert.Equal(t, "IMPL_1", impl["id"])
	_, hasNetwork := impl["validate"].(map[string]any)["network"]
	assert.False(t, hasNetwork)
}

func TestCompile_TypeSelectorIgnoresAttributes(t *testing.T) {
	_, out := compile(t,
		&metamodel.Attribute{NodeID: "ATTR_STATUS", Name: "status"},
		&metamodel.EntityType{NodeID: "TYPE_REQ", Directive: "req", Shape: metamodel.Shape{Mandatory: []string{"ATTR_STATUS"}}},
	)

	assert.Equal(t,
		map[string]any{"properties": map[string]any{"type": map[string]any{"const": "req"}}},
		path(t, out, "$defs", "select_req"))
}

func TestCompile_MandatoryAndOptional(t *testing.T) {
	_, out := compile(t,
		&metamodel.Attribute{NodeID: "ATTR_A", Name: "a"},
		&metamodel.Attribute{NodeID: "ATTR_B", Name: "b", Fragment: map[string]any{"type": "integer"}},
		&metamodel.Attribute{NodeID: "ATTR_C", Name: "c"},
		&metamodel.EntityType{NodeID: "TYPE_T", Directive: "t", Shape: metamodel.Shape{
			Mandatory: []string{"ATTR_A", "ATTR_B"},
			Optional:  []string{"ATTR_C"},
		}},
	)

	def := path(t, out, "$defs", "TYPE_T").(map[string]any)
	assert.ElementsMatch(t, []any{"a", "b"}, def["required"])

	props := def["properties"].(map[string]any)
	assert.Len(t, props, 3)
	assert.Equal(t, map[string]any{"$ref": "#/$defs/ATTR_A"}, props["a"])
	assert.Equal(t, map[string]any{"$ref": "#/$defs/ATTR_C"}, props["c"])

	// attribute fragments
	assert.Equal(t,
		map[string]any{"properties": map[string]any{"a": map[string]any{"type": "string"}}},
		path(t, out, "$defs", "ATTR_A"))
	assert.Equal(t,
		map[string]any{"properties": map[string]any{"b": map[string]any{"type": "integer"}}},
		path(t, out, "$defs", "ATTR_B"))
}

func TestCompile_StructureWithoutLinksHasNoLinksProperty(t *testing.T) {
	_, out := compile(t,
		&metamodel.EntityType{NodeID: "TYPE_T", Directive: "t"},
	)

	def := path(t, out, "$defs", "TYPE_T").(map[string]any)
	assert.Empty(t, def["properties"])
	assert.Equal(t, []any{}, def["required"])
}

func TestCompile_TypeGroup(t *testing.T) {
	_, out := compile(t,
		&metamodel.Attribute{NodeID: "ATTR_OWNER", Name: "owner"},
		&metamodel.EntityType{NodeID: "TYPE_ONE", Directive: "one", Groups: []string{"GROUP_ALL"}},
		&metamodel.EntityType{NodeID: "TYPE_TWO", Directive: "two"},
		&metamodel.TypeGroup{NodeID: "GROUP_ALL", GroupsBack: []string{"TYPE_ONE", "TYPE_TWO"}, Shape: metamodel.Shape{
			Mandatory: []string{"ATTR_OWNER"},
		}},
	)

	anyOf := path(t, out, "$defs", "select_GROUP_ALL", "anyOf").([]any)
	assert.Equal(t, []any{
		map[string]any{"$ref": "#/$defs/select_one"},
		map[string]any{"$ref": "#/$defs/select_two"},
	}, anyOf)

	assert.Equal(t, []any{"owner"}, path(t, out, "$defs", "GROUP_ALL", "required"))

	entries := schemas(t, out)
	require.Len(t, entries, 2)
	assert.Equal(t, []any{
		map[string]any{"$ref": "#/$defs/TYPE_ONE"},
		map[string]any{"$ref": "#/$defs/GROUP_ALL"},
	}, path(t, entries[0], "validate", "local", "allOf"))
	// TYPE_TWO joins the group through the group's back-reference only
	assert.Equal(t, []any{
		map[string]any{"$ref": "#/$defs/TYPE_TWO"},
		map[string]any{"$ref": "#/$defs/GROUP_ALL"},
	}, path(t, entries[1], "validate", "local", "allOf"))
}

func TestCompile_EmptyTypeGroupIsReported(t *testing.T) {
	res, out := compile(t,
		&metamodel.EntityType{NodeID: "TYPE_ONE", Directive: "one"},
		&metamodel.TypeGroup{NodeID: "GROUP_NONE"},
		&metamodel.TypeGroup{NodeID: "GROUP_GONE", GroupsBack: []string{"TYPE_GONE"}},
		&metamodel.TypeGroup{NodeID: "GROUP_SOME", GroupsBack: []string{"TYPE_ONE"}},
	)

	assert.Equal(t, []any{}, path(t, out, "$defs", "select_GROUP_NONE", "anyOf"))

	empty := res.Diagnostics.ByCode(errors.ErrEmptyTypeGroup)
	require.Len(t, empty, 2)
	assert.Equal(t, "GROUP_NONE", empty[0].Origin.Node)
	assert.Equal(t, "GROUP_GONE", empty[1].Origin.Node)
	assert.Equal(t, errors.SeverityWarning, empty[0].Severity)

	_, err := Compile(metamodel.New([]metamodel.Node{&metamodel.TypeGroup{NodeID: "GROUP_NONE"}}),
		WithPolicy(errors.PolicyStrict))
	var list errors.ErrorList
	require.ErrorAs(t, err, &list)
	assert.Len(t, list.ByCode(errors.ErrEmptyTypeGroup), 1)
}

func TestCompile_DefinitionsDoNotShareAttributeFragments(t *testing.T) {
	attr := &metamodel.Attribute{NodeID: "ATTR_SAFETY", Name: "safety", Fragment: map[string]any{"enum": []any{"QM"}}}
	res, _ := compile(t, attr)

	prop := res.Document.Defs["ATTR_SAFETY"]["properties"].(Fragment)["safety"].(map[string]any)
	prop["enum"].([]any)[0] = "ASIL_D"
	prop["type"] = "string"

	assert.Equal(t, map[string]any{"enum": []any{"QM"}}, attr.Fragment)
}

func TestCompile_GroupTargetsExpandToMembers(t *testing.T) {
	_, out := compile(t,
		&metamodel.EntityType{NodeID: "TYPE_TEST", Directive: "test"},
		&metamodel.EntityType{NodeID: "TYPE_SPEC", Directive: "spec"},
		&metamodel.EntityType{NodeID: "TYPE_IMPL", Directive: "impl"},
		&metamodel.TypeGroup{NodeID: "GROUP_WORK", GroupsBack: []string{"TYPE_SPEC", "TYPE_IMPL"}},
		&metamodel.LinkKind{NodeID: "LINK_VERIFIES", Option: "verifies"},
		&metamodel.Association{NodeID: "ASSOC_VER", Parent: "TYPE_TEST", Link: []string{"LINK_VERIFIES"},
			Targets: []string{"GROUP_WORK", "TYPE_SPEC"}},
	)

	entry := schemas(t, out)[0]
	enum := path(t, entry, "validate", "network", "verifies", "contains", "local", "properties", "type", "enum")
	assert.Equal(t, []any{"spec", "impl"}, enum)
}

func TestCompile_LinkOptionCollision(t *testing.T) {
	res, out := compile(t,
		&metamodel.EntityType{NodeID: "TYPE_REQ", Directive: "req", Shape: metamodel.Shape{
			ParentNeedsBack: []string{"ASSOC_ONE", "ASSOC_TWO"},
		}},
		&metamodel.EntityType{NodeID: "TYPE_SPEC", Directive: "spec"},
		&metamodel.EntityType{NodeID: "TYPE_TEST", Directive: "test"},
		&metamodel.LinkKind{NodeID: "LINK_REFS", Option: "refs"},
		&metamodel.LinkKind{NodeID: "LINK_REFS_2", Option: "refs"},
		&metamodel.Association{NodeID: "ASSOC_ONE", Link: []string{"LINK_REFS"}, Targets: []string{"TYPE_SPEC"}},
		&metamodel.Association{NodeID: "ASSOC_TWO", Link: []string{"LINK_REFS_2"}, Targets: []string{"TYPE_TEST"}},
	)

	entries := schemas(t, out)
	require.Len(t, entries, 4)

	primary := entries[0]
	assert.Equal(t, "TYPE_REQ", primary["id"])
	assert.Equal(t, []any{"spec"},
		path(t, primary, "validate", "network", "refs", "contains", "local", "properties", "type", "enum"))

	extra := entries[1]
	assert.Equal(t, "TYPE_REQ_refs", extra["id"])
	assert.Equal(t, primary["select"], extra["select"])
	validate := extra["validate"].(map[string]any)
	_, hasLocal := validate["local"]
	assert.False(t, hasLocal)
	assert.Equal(t, []any{"test"},
		path(t, validate, "network", "refs", "contains", "local", "properties", "type", "enum"))

	withRefs := 0
	for _, e := range entries {
		if net, ok := e["validate"].(map[string]any)["network"].(map[string]any); ok {
			if _, ok := net["refs"]; ok {
				withRefs++
			}
		}
	}
	assert.Equal(t, 2, withRefs)

	assert.Len(t, res.Diagnostics.ByCode(errors.ErrLinkOptionCollision), 1)
}

func TestCompile_RepeatedCollisionsGetDistinctIDs(t *testing.T) {
	res, _ := compile(t,
		&metamodel.EntityType{NodeID: "TYPE_REQ", Directive: "req"},
		&metamodel.EntityType{NodeID: "TYPE_SPEC", Directive: "spec"},
		&metamodel.LinkKind{NodeID: "LINK_REFS", Option: "refs"},
		&metamodel.Association{NodeID: "ASSOC_ONE", Parent: "TYPE_REQ", Link: []string{"LINK_REFS"}, Targets: []string{"TYPE_SPEC"}},
		&metamodel.Association{NodeID: "ASSOC_TWO", Parent: "TYPE_REQ", Link: []string{"LINK_REFS"}, Targets: []string{"TYPE_SPEC"}},
		&metamodel.Association{NodeID: "ASSOC_TRI", Parent: "TYPE_REQ", Link: []string{"LINK_REFS"}, Targets: []string{"TYPE_SPEC"}},
	)

	ids := make([]string, 0)
	for _, e := range res.Document.Schemas {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"TYPE_REQ", "TYPE_REQ_refs", "TYPE_REQ_2_refs", "TYPE_SPEC"}, ids)

	overflow, ok := res.Document.Entry("TYPE_REQ_2_refs")
	require.True(t, ok)
	assert.Nil(t, overflow.Validate.Local)
	assert.Len(t, overflow.Validate.Network, 1)
}

func TestCompile_OverflowIDSkipsExistingIDs(t *testing.T) {
	res, _ := compile(t,
		&metamodel.EntityType{NodeID: "TYPE_REQ", Directive: "req"},
		&metamodel.EntityType{NodeID: "TYPE_REQ_refs", Directive: "reqrefs"},
		&metamodel.EntityType{NodeID: "TYPE_SPEC", Directive: "spec"},
		&metamodel.LinkKind{NodeID: "LINK_REFS", Option: "refs"},
		&metamodel.Association{NodeID: "ASSOC_ONE", Parent: "TYPE_REQ", Link: []string{"LINK_REFS"}, Targets: []string{"TYPE_SPEC"}},
		&metamodel.Association{NodeID: "ASSOC_TWO", Parent: "TYPE_REQ", Link: []string{"LINK_REFS"}, Targets: []string{"TYPE_SPEC"}},
	)

	ids := make([]string, 0)
	for _, e := range res.Document.Schemas {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"TYPE_REQ", "TYPE_REQ_2_refs", "TYPE_REQ_refs", "TYPE_SPEC"}, ids)

	// the real type keeps its own entry
	entry, ok := res.Document.Entry("TYPE_REQ_refs")
	require.True(t, ok)
	assert.NotNil(t, entry.Validate.Local)

	collisions := res.Diagnostics.ByCode(errors.ErrLinkOptionCollision)
	require.Len(t, collisions, 1)
	assert.Contains(t, collisions[0].Message, "TYPE_REQ_2_refs")
}

func TestCompile_OverflowEntryIsIndependent(t *testing.T) {
	res, _ := compile(t,
		&metamodel.EntityType{NodeID: "TYPE_REQ", Directive: "req"},
		&metamodel.EntityType{NodeID: "TYPE_SPEC", Directive: "spec"},
		&metamodel.LinkKind{NodeID: "LINK_REFS", Option: "refs"},
		&metamodel.Association{NodeID: "ASSOC_ONE", Parent: "TYPE_REQ", Link: []string{"LINK_REFS"}, Targets: []string{"TYPE_SPEC"}},
		&metamodel.Association{NodeID: "ASSOC_TWO", Parent: "TYPE_REQ", Link: []string{"LINK_REFS"}, Targets: []string{"TYPE_SPEC"}},
	)

	primary, _ := res.Document.Entry("TYPE_REQ")
	extra, _ := res.Document.Entry("TYPE_REQ_refs")
	extra.Validate.Network["refs"] = NetworkRule{MinContains: 7}

	assert.Equal(t, 0, primary.Validate.Network["refs"].MinContains)
	assert.NotNil(t, primary.Validate.Local)
}

func TestCompile_MalformedAssociations(t *testing.T) {
	res, out := compile(t,
		&metamodel.EntityType{NodeID: "TYPE_REQ", Directive: "req"},
		&metamodel.LinkKind{NodeID: "LINK_A", Option: "covers"},
		&metamodel.LinkKind{NodeID: "LINK_B", Option: "checks"},
		&metamodel.Association{NodeID: "ASSOC_TWO", Parent: "TYPE_REQ", Link: []string{"LINK_A", "LINK_B"}, Targets: []string{"TYPE_REQ"}},
		&metamodel.Association{NodeID: "ASSOC_NONE", Parent: "TYPE_REQ", Targets: []string{"TYPE_REQ"}},
		&metamodel.Association{NodeID: "ASSOC_LOST", Parent: "TYPE_REQ", Link: []string{"LINK_GONE"}, Targets: []string{"TYPE_REQ"}},
	)

	entry := schemas(t, out)[0]
	_, hasNetwork := entry["validate"].(map[string]any)["network"]
	assert.False(t, hasNetwork)
	assert.Empty(t, path(t, out, "$defs", "TYPE_REQ", "properties"))

	assert.Len(t, res.Diagnostics.ByCode(errors.ErrMalformedAssociationLink), 2)
	assert.Len(t, res.Diagnostics.ByCode(errors.ErrDanglingReference), 1)
	for _, d := range res.Diagnostics {
		assert.NotEqual(t, errors.SeverityError, d.Severity)
	}
}

func TestCompile_AssociationWithoutTargets(t *testing.T) {
	res, out := compile(t,
		&metamodel.EntityType{NodeID: "TYPE_REQ", Directive: "req"},
		&metamodel.LinkKind{NodeID: "LINK_A", Option: "covers"},
		&metamodel.Association{NodeID: "ASSOC_A", Parent: "TYPE_REQ", Link: []string{"LINK_A"}, Targets: []string{"TYPE_GONE"}},
	)

	// the link still shapes the record, but there is no network rule
	props := path(t, out, "$defs", "TYPE_REQ", "properties").(map[string]any)
	assert.Contains(t, props, "covers")
	assert.Contains(t, props, "links")
	_, hasNetwork := schemas(t, out)[0]["validate"].(map[string]any)["network"]
	assert.False(t, hasNetwork)

	assert.Len(t, res.Diagnostics.ByCode(errors.ErrAssociationWithoutTargets), 1)
	assert.Len(t, res.Diagnostics.ByCode(errors.ErrDanglingReference), 1)
}

func TestCompile_DanglingReferencesAreDropped(t *testing.T) {
	res, out := compile(t,
		&metamodel.Attribute{NodeID: "ATTR_A", Name: "a"},
		&metamodel.LinkKind{NodeID: "LINK_A", Option: "covers"},
		&metamodel.EntityType{NodeID: "TYPE_T", Directive: "t", Groups: []string{"GROUP_GONE", "LINK_A"}, Shape: metamodel.Shape{
			Mandatory:       []string{"ATTR_A", "ATTR_GONE"},
			Optional:        []string{"LINK_A"},
			ParentNeedsBack: []string{"ASSOC_GONE"},
		}},
	)

	def := path(t, out, "$defs", "TYPE_T").(map[string]any)
	assert.Equal(t, []any{"a"}, def["required"])
	assert.Len(t, def["properties"], 1)

	allOf := path(t, schemas(t, out)[0], "validate", "local", "allOf").([]any)
	assert.Len(t, allOf, 1)

	dangling := res.Diagnostics.ByCode(errors.ErrDanglingReference)
	require.Len(t, dangling, 3)
	assert.Equal(t, errors.Origin{Node: "TYPE_T", Field: "mandatory", Reference: "ATTR_GONE"}, dangling[0].Origin)
	assert.Len(t, res.Diagnostics.ByCode(errors.ErrWrongKindReference), 2)
}

func TestCompile_StrictPolicy(t *testing.T) {
	table := metamodel.New([]metamodel.Node{
		&metamodel.EntityType{NodeID: "TYPE_T", Directive: "t", Shape: metamodel.Shape{Mandatory: []string{"ATTR_GONE"}}},
	})

	res, err := Compile(table, WithPolicy(errors.PolicyStrict))
	require.Error(t, err)
	require.NotNil(t, res)
	assert.NotNil(t, res.Document)

	var list errors.ErrorList
	require.ErrorAs(t, err, &list)
	assert.Len(t, list, 1)
	assert.Equal(t, errors.SeverityError, list[0].Severity)

	res, err = Compile(table)
	require.NoError(t, err)
	assert.Equal(t, errors.SeverityWarning, res.Diagnostics[0].Severity)
}

func TestCompile_DefinitionOverwrite(t *testing.T) {
	res, out := compile(t,
		&metamodel.EntityType{NodeID: "TYPE_ONE", Directive: "shared"},
		&metamodel.EntityType{NodeID: "TYPE_TWO", Directive: "shared"},
	)

	assert.Equal(t, "shared", path(t, out, "$defs", "select_shared", "properties", "type", "const"))
	assert.Len(t, res.Diagnostics.ByCode(errors.ErrDefinitionOverwritten), 1)
}

func TestCompile_UnknownNodesAreInert(t *testing.T) {
	res, out := compile(t,
		&metamodel.Unknown{NodeID: "DIAGRAM_1", Raw: "diagram"},
	)

	assert.Empty(t, res.Diagnostics)
	assert.Empty(t, out["$defs"])
	assert.Empty(t, out["schemas"])
}

func TestCompile_Idempotent(t *testing.T) {
	nodes := []metamodel.Node{
		&metamodel.Attribute{NodeID: "ATTR_Z", Name: "z"},
		&metamodel.Attribute{NodeID: "ATTR_A", Name: "a", Fragment: map[string]any{"enum": []any{"x", "y"}, "type": "string"}},
		&metamodel.EntityType{NodeID: "TYPE_REQ", Directive: "req", Groups: []string{"GROUP_G"}, Shape: metamodel.Shape{
			Mandatory: []string{"ATTR_Z", "ATTR_A"},
		}},
		&metamodel.EntityType{NodeID: "TYPE_SPEC", Directive: "spec"},
		&metamodel.TypeGroup{NodeID: "GROUP_G", GroupsBack: []string{"TYPE_SPEC"}},
		&metamodel.LinkKind{NodeID: "LINK_A", Option: "covers"},
		&metamodel.LinkKind{NodeID: "LINK_B", Option: "checks"},
		&metamodel.Association{NodeID: "ASSOC_A", Parent: "TYPE_REQ", Link: []string{"LINK_A"}, Targets: []string{"GROUP_G"}},
		&metamodel.Association{NodeID: "ASSOC_B", Parent: "TYPE_REQ", Link: []string{"LINK_B"}, Targets: []string{"TYPE_SPEC"}},
	}

	first, err := Compile(metamodel.New(nodes))
	require.NoError(t, err)
	second, err := Compile(metamodel.New(nodes))
	require.NoError(t, err)

	a, err := Serialize(first.Document)
	require.NoError(t, err)
	b, err := Serialize(second.Document)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a, b))
}

func TestCompile_LogsSummary(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	_, err := Compile(metamodel.New([]metamodel.Node{
		&metamodel.EntityType{NodeID: "TYPE_T", Directive: "t"},
	}), WithLogger(zap.New(core)))
	require.NoError(t, err)

	summary := logs.FilterMessage("compiled metamodel").All()
	require.Len(t, summary, 1)
	fields := summary[0].ContextMap()
	assert.Equal(t, int64(1), fields["schemas"])
	assert.Equal(t, "lenient", fields["policy"])
	assert.NotEmpty(t, fields["run"])
}
