// Package perception extracts the accessibility tree via the debugger
// channel, filters structural noise, and exposes semantic lookup and
// region-of-interest computation.
package perception

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Bounds is an axis-aligned box in page pixels.
type Bounds struct {
	X, Y, W, H float64
}

// AxNode is one semantic element.
type AxNode struct {
	ID       string
	Role     string
	Name     string
	Value    string
	ParentID string
	Bounds   *Bounds
	States   []string
}

// AxTree is an ordered, immutable sequence of AxNodes from one extraction.
type AxTree struct {
	Nodes []AxNode
}

// noiseRoles are dropped during extraction; their children are lifted to
// the nearest non-noise ancestor.
var noiseRoles = map[string]struct{}{
	"generic":      {},
	"LayoutTable":  {},
	"presentation": {},
}

// rawNode is the adapter-layer shape fed into the pure tree-building
// algorithm, isolating the CDP-specific field names to fetchRawNodes.
type rawNode struct {
	ID       string
	Role     string
	Name     string
	Value    string
	ParentID string
	ChildIDs []string
	Bounds   *Bounds
	States   []string
}

// Snapshot extracts the full accessibility tree from page.
func Snapshot(page *rod.Page) (AxTree, error) {
	raw, err := fetchRawNodes(page)
	if err != nil {
		return AxTree{}, err
	}
	return BuildTree(raw), nil
}

// fetchRawNodes invokes the debugger's full AX tree method and the box
// model for each node's backend DOM id, adapting CDP's node shape into
// rawNode.
func fetchRawNodes(page *rod.Page) ([]rawNode, error) {
	result, err := proto.AccessibilityGetFullAXTree{}.Call(page)
	if err != nil {
		return nil, err
	}

	nodes := make([]rawNode, 0, len(result.Nodes))
	for _, n := range result.Nodes {
		rn := rawNode{
			ID: string(n.NodeID),
		}
		if n.Role != nil {
			rn.Role = n.Role.Value.Str()
		}
		if n.Name != nil {
			rn.Name = n.Name.Value.Str()
		}
		if n.Value != nil {
			rn.Value = n.Value.Value.Str()
		}
		if n.ParentID != "" {
			rn.ParentID = string(n.ParentID)
		}
		for _, c := range n.ChildIDs {
			rn.ChildIDs = append(rn.ChildIDs, string(c))
		}
		for _, p := range n.Properties {
			rn.States = append(rn.States, string(p.Name))
		}

		if n.BackendDOMNodeID != 0 {
			if box, boxErr := (proto.DOMGetBoxModel{BackendNodeID: n.BackendDOMNodeID}).Call(page); boxErr == nil && box != nil && len(box.Model.Content) >= 8 {
				quad := box.Model.Content
				minX, minY := quad[0], quad[1]
				maxX, maxY := quad[0], quad[1]
				for i := 0; i < len(quad); i += 2 {
					if quad[i] < minX {
						minX = quad[i]
					}
					if quad[i] > maxX {
						maxX = quad[i]
					}
					if quad[i+1] < minY {
						minY = quad[i+1]
					}
					if quad[i+1] > maxY {
						maxY = quad[i+1]
					}
				}
				rn.Bounds = &Bounds{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
			}
		}

		nodes = append(nodes, rn)
	}
	return nodes, nil
}

// BuildTree runs the documented extraction algorithm over
// raw nodes: walk roots (parent absent or unknown) depth-first, drop noise
// roles but continue into their children with parent_id rewritten to the
// nearest kept ancestor, preserving stable ordering. Pure function, no CDP
// dependency, so it is directly unit-testable.
func BuildTree(raw []rawNode) AxTree {
	byID := make(map[string]rawNode, len(raw))
	childrenOf := make(map[string][]string)
	for _, n := range raw {
		byID[n.ID] = n
	}
	for _, n := range raw {
		if n.ParentID != "" {
			childrenOf[n.ParentID] = append(childrenOf[n.ParentID], n.ID)
		}
	}

	var roots []string
	for _, n := range raw {
		if n.ParentID == "" {
			roots = append(roots, n.ID)
			continue
		}
		if _, known := byID[n.ParentID]; !known {
			roots = append(roots, n.ID)
		}
	}

	var out []AxNode
	var walk func(id, keptParent string)
	walk = func(id, keptParent string) {
		n, ok := byID[id]
		if !ok {
			return
		}
		if isNoise(n.Role) {
			for _, childID := range n.ChildIDs {
				walk(childID, keptParent)
			}
			return
		}
		out = append(out, AxNode{
			ID:       n.ID,
			Role:     n.Role,
			Name:     n.Name,
			Value:    n.Value,
			ParentID: keptParent,
			Bounds:   n.Bounds,
			States:   n.States,
		})
		for _, childID := range n.ChildIDs {
			walk(childID, n.ID)
		}
	}

	for _, root := range roots {
		walk(root, "")
	}

	return AxTree{Nodes: out}
}

func isNoise(role string) bool {
	_, ok := noiseRoles[role]
	return ok
}

// FindROI collects nodes matching rolePattern (substring, case-insensitive)
// and, if namePattern is non-empty, also matching namePattern (substring,
// case-insensitive). Returns the union bounding box, or ok=false if no
// node matched.
func (t AxTree) FindROI(rolePattern, namePattern string) (Bounds, bool) {
	rolePattern = strings.ToLower(rolePattern)
	namePattern = strings.ToLower(namePattern)

	var minX, minY, maxX, maxY float64
	found := false

	for _, n := range t.Nodes {
		if n.Bounds == nil {
			continue
		}
		if !strings.Contains(strings.ToLower(n.Role), rolePattern) {
			continue
		}
		if namePattern != "" && !strings.Contains(strings.ToLower(n.Name), namePattern) {
			continue
		}
		if !found {
			minX, minY = n.Bounds.X, n.Bounds.Y
			maxX, maxY = n.Bounds.X+n.Bounds.W, n.Bounds.Y+n.Bounds.H
			found = true
			continue
		}
		if n.Bounds.X < minX {
			minX = n.Bounds.X
		}
		if n.Bounds.Y < minY {
			minY = n.Bounds.Y
		}
		if n.Bounds.X+n.Bounds.W > maxX {
			maxX = n.Bounds.X + n.Bounds.W
		}
		if n.Bounds.Y+n.Bounds.H > maxY {
			maxY = n.Bounds.Y + n.Bounds.H
		}
	}

	if !found {
		return Bounds{}, false
	}
	return Bounds{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}, true
}

// ClickableCount returns the number of AxNodes whose role identifies a
// clickable element, feeding motor's Hick's-Law think delay.
func (t AxTree) ClickableCount() int {
	clickableRoles := map[string]struct{}{
		"button": {}, "link": {}, "textbox": {}, "checkbox": {},
		"radio": {}, "menuitem": {}, "tab": {}, "option": {},
	}
	n := 0
	for _, node := range t.Nodes {
		if _, ok := clickableRoles[strings.ToLower(node.Role)]; ok {
			n++
		}
	}
	return n
}
