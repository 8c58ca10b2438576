package model

import (
	"github.com/chazu/brushwork/pkg/geom"
	"github.com/deadsy/sdfx/sdf"
	"github.com/golang/glog"
)

// UpdateLinkedGroupsError is returned when the children of a group cannot be
// replicated to its linked groups. Two errors are equal if their messages
// are equal.
type UpdateLinkedGroupsError struct {
	Message string
}

func (e UpdateLinkedGroupsError) Error() string {
	return e.Message
}

// GroupReplacement pairs a linked group with the node that should take its
// place in the tree.
type GroupReplacement struct {
	Target      *GroupNode
	Replacement *GroupNode
}

// UpdateLinkedGroups builds, for every other connected member of g's link
// set, a replacement group whose children are copies of g's children mapped
// into that member's frame. The tree is not modified; callers splice the
// replacements themselves. The replacements are connected to the link set
// on return.
//
// Either all replacements are returned or none: on error every node built so
// far is released and the link set is left as it was.
//
// Panics if g is not connected to its link set.
func (g *GroupNode) UpdateLinkedGroups(worldBounds sdf.Box3) ([]GroupReplacement, error) {
	if !g.ConnectedToLinkSet() {
		panic("model: updating linked groups from a disconnected group")
	}

	inverse, ok := geom.Invert(g.group.Transformation())
	if !ok {
		return nil, UpdateLinkedGroupsError{Message: "Group transformation is not invertible"}
	}

	members := g.LinkedGroups()
	result := make([]GroupReplacement, 0, len(members))
	for _, member := range members {
		if member == g {
			continue
		}
		relative := member.group.Transformation().Mul(inverse)

		children, err := cloneAndTransformChildren(g, worldBounds, relative)
		if err != nil {
			discardReplacements(result)
			return nil, err
		}

		clone := member.Clone(worldBounds).(*GroupNode)
		g.AddToLinkSet(clone)
		clone.AddChildren(children)
		preserveEntityProperties(clone, member)

		glog.V(3).Infof("linked group %q: replacement built with %d children", member.Name(), len(children))
		result = append(result, GroupReplacement{Target: member, Replacement: clone})
	}

	glog.V(2).Infof("group %q: %d linked groups updated", g.Name(), len(result))
	return result, nil
}

// cloneAndTransformChildren returns deep copies of node's children with m
// applied to every group, entity and brush. The first failure aborts the
// traversal.
func cloneAndTransformChildren(node Node, worldBounds sdf.Box3, m sdf.M44) ([]Node, error) {
	result := make([]Node, 0, node.ChildCount())
	for _, child := range node.Children() {
		clone, err := transformedClone(child, worldBounds, m)
		if err != nil {
			discardNodes(result)
			return nil, err
		}
		if !geom.Contains(worldBounds, clone.LogicalBounds()) {
			discardNodes(append(result, clone))
			return nil, UpdateLinkedGroupsError{Message: "Linked node exceeds world bounds"}
		}

		children, err := cloneAndTransformChildren(child, worldBounds, m)
		if err != nil {
			discardNodes(append(result, clone))
			return nil, err
		}
		clone.AddChildren(children)
		result = append(result, clone)
	}
	return result, nil
}

// transformedClone returns a childless copy of node with m applied.
func transformedClone(node Node, worldBounds sdf.Box3, m sdf.M44) (Node, error) {
	switch n := node.(type) {
	case *WorldNode:
		return nil, UpdateLinkedGroupsError{Message: "Visited world node while updating linked groups"}
	case *LayerNode:
		return nil, UpdateLinkedGroupsError{Message: "Visited layer node while updating linked groups"}
	case *GroupNode:
		group := n.Group()
		group.Transform(m)
		return NewGroupNode(group), nil
	case *EntityNode:
		entity := n.Entity()
		entity.Transform(m)
		return NewEntityNode(entity), nil
	case *BrushNode:
		brush := n.Brush()
		if err := brush.Transform(worldBounds, m, true); err != nil {
			return nil, brushUpdateError(err)
		}
		return NewBrushNode(brush), nil
	}
	panic("model: unhandled node kind")
}

func brushUpdateError(err error) error {
	if be, ok := err.(BrushError); ok {
		return UpdateLinkedGroupsError{Message: be.String()}
	}
	return UpdateLinkedGroupsError{Message: err.Error()}
}

// discardNodes releases the link sets of every group in nodes' subtrees.
func discardNodes(nodes []Node) {
	for _, n := range nodes {
		Walk(n, func(n Node) bool {
			if g, ok := n.(*GroupNode); ok {
				g.Dispose()
			}
			return true
		})
	}
}

func discardReplacements(replacements []GroupReplacement) {
	for _, r := range replacements {
		discardNodes([]Node{r.Replacement})
	}
}
