package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type printerState struct {
	Size    string `json:"size"`
	Dpmm    int    `json:"dpmm"`
	Active  bool   `json:"active"`
	Comment string
}

type printerPatch struct {
	Size    *string `json:"size,omitempty"`
	Dpmm    *int    `json:"dpmm,omitempty"`
	Active  *bool   `json:"active,omitempty"`
	Comment *string
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func boolPtr(b bool) *bool    { return &b }

func TestDiff(t *testing.T) {
	stored := printerState{Size: "4x6", Dpmm: 8, Active: true}

	tests := []struct {
		name    string
		patch   printerPatch
		changed map[string]interface{}
	}{
		{
			name:    "empty patch",
			patch:   printerPatch{},
			changed: map[string]interface{}{},
		},
		{
			name:    "same values",
			patch:   printerPatch{Size: strPtr("4x6"), Dpmm: intPtr(8), Active: boolPtr(true)},
			changed: map[string]interface{}{},
		},
		{
			name:    "one field differs",
			patch:   printerPatch{Size: strPtr("2x1"), Dpmm: intPtr(8)},
			changed: map[string]interface{}{"size": "2x1"},
		},
		{
			name:    "zero values count",
			patch:   printerPatch{Dpmm: intPtr(0), Active: boolPtr(false)},
			changed: map[string]interface{}{"dpmm": 0, "active": false},
		},
		{
			name:    "untagged field uses its name",
			patch:   printerPatch{Comment: strPtr("moved")},
			changed: map[string]interface{}{"Comment": "moved"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changes, err := Diff(stored, tt.patch)
			require.NoError(t, err)
			assert.Equal(t, len(tt.changed) == 0, changes.Empty())
			assert.Equal(t, tt.changed, changes.Values())
		})
	}
}

func TestDiff_RecordsOldValues(t *testing.T) {
	changes, err := Diff(&printerState{Size: "4x6"}, &printerPatch{Size: strPtr("2x1")})
	require.NoError(t, err)
	require.Len(t, changes, 1)

	assert.Equal(t, FieldChange{Field: "Size", Key: "size", Old: "4x6", New: "2x1"}, changes[0])
	assert.Equal(t, []string{"Size"}, changes.Fields())
}

func TestDiff_RejectsMismatchedShapes(t *testing.T) {
	_, err := Diff("4x6", printerPatch{})
	assert.ErrorContains(t, err, "expected structs")

	_, err = Diff(printerState{}, struct{ Size string }{Size: "4x6"})
	assert.ErrorContains(t, err, "not a pointer")

	_, err = Diff(printerState{}, struct{ Color *string }{Color: strPtr("red")})
	assert.ErrorContains(t, err, "has no field Color")

	_, err = Diff(printerState{}, struct{ Dpmm *string }{Dpmm: strPtr("8")})
	assert.ErrorContains(t, err, "field Dpmm")
}

func TestApply(t *testing.T) {
	stored := printerState{Size: "4x6", Dpmm: 8, Active: true}

	changes, err := Diff(stored, printerPatch{Size: strPtr("2x1"), Active: boolPtr(false)})
	require.NoError(t, err)
	require.NoError(t, Apply(&stored, changes))

	assert.Equal(t, printerState{Size: "2x1", Dpmm: 8, Active: false}, stored)

	assert.Error(t, Apply(stored, changes), "non-pointer target")
	assert.Error(t, Apply(&stored, ChangeSet{{Field: "Missing", New: 1}}))
}
