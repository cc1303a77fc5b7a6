package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult_Validate(t *testing.T) {
	tests := []struct {
		name    string
		result  Result
		wantErr bool
	}{
		{"empty canonical shape", EmptyResult(), false},
		{
			"materials with records",
			Result{"materials": []any{map[string]any{"name": "Bi2Te3"}}},
			false,
		},
		{"missing materials key", Result{"other": 1}, true},
		{"materials is a string", Result{"materials": "Bi2Te3"}, true},
		{"materials is an object", Result{"materials": map[string]any{}}, true},
		{"materials is null", Result{"materials": nil}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.result.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResult_MaterialNames(t *testing.T) {
	r := Result{"materials": []any{
		map[string]any{"name": "Bi2Te3", "zt_values": []any{}},
		map[string]any{"name": " PbTe "},
		map[string]any{"name": "Bi2Te3"}, // duplicate
		map[string]any{"name": ""},
		map[string]any{"zt_values": []any{}}, // no name
		"not an object",
	}}

	assert.Equal(t, []string{"Bi2Te3", "PbTe"}, r.MaterialNames())
}

func TestResult_MaterialNames_Empty(t *testing.T) {
	assert.Nil(t, EmptyResult().MaterialNames())
	assert.Nil(t, Result{"materials": "garbage"}.MaterialNames())
}

func TestResult_HasMaterials(t *testing.T) {
	assert.False(t, EmptyResult().HasMaterials())
	assert.False(t, Result{}.HasMaterials())
	assert.True(t, Result{"materials": []any{map[string]any{"name": "SnSe"}}}.HasMaterials())
}

func TestDocumentUnit_TotalTableRows(t *testing.T) {
	u := &DocumentUnit{
		Tables: []TableFragment{
			{RowCount: 3},
			{RowCount: 5},
		},
	}
	require.Equal(t, 8, u.TotalTableRows())

	empty := &DocumentUnit{}
	assert.Zero(t, empty.TotalTableRows())
}
