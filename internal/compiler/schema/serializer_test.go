package schema

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/needs-tools/needschema/internal/metamodel"
)

func sampleDocument(t *testing.T) *Document {
	t.Helper()
	res, err := Compile(metamodel.New([]metamodel.Node{
		&metamodel.Attribute{NodeID: "ATTR_STATUS", Name: "status"},
		&metamodel.EntityType{NodeID: "TYPE_REQ", Directive: "req", Shape: metamodel.Shape{
			Mandatory: []string{"ATTR_STATUS"},
		}},
	}))
	require.NoError(t, err)
	return res.Document
}

func TestSerialize(t *testing.T) {
	doc := sampleDocument(t)

	data, err := Serialize(doc)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n  \"$defs\": {"))
	assert.Contains(t, string(data), `"id": "TYPE_REQ"`)

	compact, err := SerializeCompact(doc)
	require.NoError(t, err)
	assert.NotContains(t, string(compact), "\n")
	assert.JSONEq(t, string(data), string(compact))

	_, err = Serialize(nil)
	assert.Error(t, err)
	_, err = SerializeCompact(nil)
	assert.Error(t, err)
}

func TestEncode(t *testing.T) {
	doc := sampleDocument(t)

	indented, err := Encode(doc, Format{})
	require.NoError(t, err)
	assert.True(t, bytes.HasSuffix(indented, []byte("}\n")))

	compact, err := Encode(doc, Format{Compact: true})
	require.NoError(t, err)
	assert.False(t, bytes.HasSuffix(compact, []byte("\n")))

	zipped, err := Encode(doc, Format{Gzip: true})
	require.NoError(t, err)
	plain, err := Decompress(zipped)
	require.NoError(t, err)
	assert.Equal(t, indented, plain)
}

func TestCompressEdgeCases(t *testing.T) {
	_, err := Compress(nil)
	assert.Error(t, err)
	_, err = Decompress(nil)
	assert.Error(t, err)

	out, err := Compress([]byte{})
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = Decompress([]byte("not gzip"))
	assert.Error(t, err)
}

func TestWriteToFile(t *testing.T) {
	doc := sampleDocument(t)
	out := filepath.Join(t.TempDir(), "nested", "dir", "schema.json")

	require.NoError(t, WriteToFile(doc, out, Format{}))

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	expected, err := Encode(doc, Format{})
	require.NoError(t, err)
	assert.Equal(t, expected, written)

	assert.Error(t, WriteToFile(nil, out, Format{}))
	assert.Error(t, WriteToFile(doc, "", Format{}))
}
