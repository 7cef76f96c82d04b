package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSupportedFieldType(t *testing.T) {
	for _, ft := range []string{"string", "string_long", "text", "text_long", "text_with_summary", "text_textarea_with_summary"} {
		assert.True(t, IsSupportedFieldType(ft), ft)
	}
	for _, ft := range []string{"image", "entityreference", "list_text", ""} {
		assert.False(t, IsSupportedFieldType(ft), ft)
	}
}

func TestRef_Validate(t *testing.T) {
	require.NoError(t, NewRef("node", 1, "page").Validate())
	assert.Error(t, NewRef("", 1, "page").Validate())
	assert.Error(t, NewRef("node", 0, "page").Validate())
}

func TestRef_TrimsInput(t *testing.T) {
	ref := NewRef(" node ", 5, " article ")
	assert.Equal(t, "node", ref.EntityType())
	assert.Equal(t, "article", ref.Bundle())
	assert.Equal(t, "node/5 (article)", ref.String())
}

func TestItem_FieldsAreCopied(t *testing.T) {
	field := NewField("body", "text_with_summary", []string{"one", "two"})
	item := NewItem(NewRef("node", 1, "article"), []Field{field})

	fields := item.Fields()
	fields[0] = NewField("other", "text", nil)

	require.Len(t, item.Fields(), 1)
	assert.Equal(t, "body", item.Fields()[0].Name())
	assert.Equal(t, []string{"one", "two"}, item.Fields()[0].Values())
	assert.True(t, item.Fields()[0].Supported())
}
