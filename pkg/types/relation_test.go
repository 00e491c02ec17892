// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelationType_IsA(t *testing.T) {
	tests := []struct {
		name  string
		t     RelationType
		other RelationType
		want  bool
	}{
		{"self", Inheritance, Inheritance, true},
		{"parent", Inheritance, Historical, true},
		{"category", Calque, Origin, true},
		{"root", Prefix, Related, true},
		{"sibling is not origin", Cognate, Origin, false},
		{"supertype is not subtype", Origin, Inheritance, false},
		{"affix chain", Suffix, Morphological, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.t.IsA(tt.other))
		})
	}
}

func TestRelationType_Category(t *testing.T) {
	assert.Equal(t, Origin, Borrowing.Category())
	assert.Equal(t, Sibling, Doublet.Category())
	assert.Equal(t, Related, Related.Category())
	assert.True(t, Eponym.Directed())
	assert.False(t, Cognate.Directed())
}

func TestRelationType_Depth(t *testing.T) {
	assert.Equal(t, 0, Related.Depth())
	assert.Equal(t, 1, Origin.Depth())
	assert.Equal(t, 3, Inheritance.Depth())
	assert.Equal(t, 4, Prefix.Depth())
}

func TestRelationType_Outranks(t *testing.T) {
	assert.True(t, Inheritance.Outranks(Origin))
	assert.True(t, Origin.Outranks(Related))
	// Same depth: ORIGIN category beats SIBLING.
	assert.True(t, Historical.Outranks(Cognate))
	assert.False(t, Cognate.Outranks(Historical))
}

func TestParseRelationType(t *testing.T) {
	tests := []struct {
		in   string
		want RelationType
	}{
		{"INHERITANCE", Inheritance},
		{"learned borrowing", LearnedBorrowing},
		{"semi-learned borrowing", SemiLearnedBorrowing},
		{"back-formation", BackForm},
		{"inherited", Inheritance},
		{"phono-semantic matching", PhonoSemantic},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRelationType(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseRelationType("frobnication")
	assert.Error(t, err)
}

func TestRelationTypes_AllValid(t *testing.T) {
	all := RelationTypes()
	assert.Len(t, all, len(relationParent)+1)
	for _, rt := range all {
		assert.True(t, rt.IsA(Related), rt)
	}
}
