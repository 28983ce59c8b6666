package perception

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildTree_DropsNoiseRolesAndLiftsChildren(t *testing.T) {
	raw := []rawNode{
		{ID: "1", Role: "RootWebArea", ChildIDs: []string{"2"}},
		{ID: "2", Role: "generic", ParentID: "1", ChildIDs: []string{"3"}},
		{ID: "3", Role: "button", Name: "Submit", ParentID: "2", Bounds: &Bounds{X: 1, Y: 1, W: 10, H: 10}},
	}

	tree := BuildTree(raw)

	for _, n := range tree.Nodes {
		require.NotEqual(t, "generic", n.Role)
	}

	var button *AxNode
	for i := range tree.Nodes {
		if tree.Nodes[i].ID == "3" {
			button = &tree.Nodes[i]
		}
	}
	require.NotNil(t, button)
	require.Equal(t, "1", button.ParentID, "noise-role parent must be lifted to nearest kept ancestor")
}

func TestBuildTree_EveryParentIDRefersToEmittedOrRoot(t *testing.T) {
	raw := []rawNode{
		{ID: "1", Role: "RootWebArea", ChildIDs: []string{"2", "3"}},
		{ID: "2", Role: "generic", ParentID: "1", ChildIDs: []string{"4"}},
		{ID: "3", Role: "link", Name: "Home", ParentID: "1"},
		{ID: "4", Role: "textbox", ParentID: "2"},
	}

	tree := BuildTree(raw)
	emitted := make(map[string]bool)
	for _, n := range tree.Nodes {
		emitted[n.ID] = true
	}
	for _, n := range tree.Nodes {
		if n.ParentID == "" {
			continue
		}
		require.True(t, emitted[n.ParentID], "parent_id %q must refer to an emitted node", n.ParentID)
	}
}

func TestFindROI_UnionBoundingBox(t *testing.T) {
	tree := AxTree{Nodes: []AxNode{
		{ID: "1", Role: "button", Name: "Submit form", Bounds: &Bounds{X: 10, Y: 10, W: 20, H: 10}},
		{ID: "2", Role: "button", Name: "Submit other", Bounds: &Bounds{X: 50, Y: 40, W: 20, H: 10}},
		{ID: "3", Role: "link", Name: "Submit", Bounds: &Bounds{X: 0, Y: 0, W: 5, H: 5}},
	}}

	b, ok := tree.FindROI("button", "submit")
	require.True(t, ok)
	require.Equal(t, Bounds{X: 10, Y: 10, W: 60, H: 40}, b)
}

func TestFindROI_NoMatchReturnsFalse(t *testing.T) {
	tree := AxTree{Nodes: []AxNode{{ID: "1", Role: "link", Bounds: &Bounds{}}}}
	_, ok := tree.FindROI("button", "")
	require.False(t, ok)
}

func TestClickableCount(t *testing.T) {
	tree := AxTree{Nodes: []AxNode{
		{Role: "button"}, {Role: "link"}, {Role: "generic"}, {Role: "StaticText"},
	}}
	require.Equal(t, 2, tree.ClickableCount())
}
