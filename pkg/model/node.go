package model

import (
	"fmt"

	"github.com/deadsy/sdfx/sdf"
)

// NodeKind enumerates the node variants of the scene graph.
type NodeKind int

const (
	KindWorld NodeKind = iota
	KindLayer
	KindGroup
	KindEntity
	KindBrush
)

func (k NodeKind) String() string {
	switch k {
	case KindWorld:
		return "world"
	case KindLayer:
		return "layer"
	case KindGroup:
		return "group"
	case KindEntity:
		return "entity"
	case KindBrush:
		return "brush"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

// Node is an element of the scene graph. The set of implementations is
// closed: *WorldNode, *LayerNode, *GroupNode, *EntityNode and *BrushNode.
// Code that needs per-variant behavior uses an exhaustive type switch.
type Node interface {
	Name() string
	Kind() NodeKind

	Parent() Node
	Children() []Node
	ChildCount() int
	IndexOf(child Node) int

	AddChild(child Node)
	AddChildren(children []Node)
	InsertChild(index int, child Node)
	RemoveChild(child Node)

	// LogicalBounds is the box used for selection and containment tests.
	LogicalBounds() sdf.Box3
	// PhysicalBounds is the box enclosing all of the node's geometry.
	PhysicalBounds() sdf.Box3

	CanAddChild(child Node) bool
	CanRemoveChild(child Node) bool
	// RemoveIfEmpty reports whether the node should be pruned by its owner
	// once its last child is removed.
	RemoveIfEmpty() bool

	// Clone returns a copy of the node without its children.
	Clone(worldBounds sdf.Box3) Node

	base() *nodeBase

	childWasAdded(child Node)
	childWasRemoved(child Node)
	// nodePhysicalBoundsDidChange is called on a node whose own bounds have
	// changed. The default implementation notifies the parent.
	nodePhysicalBoundsDidChange()
	childPhysicalBoundsDidChange()
}

// nodeBase holds the parent and child links shared by all node kinds.
type nodeBase struct {
	self     Node
	parent   Node
	children []Node
}

func (b *nodeBase) init(self Node) {
	b.self = self
}

func (b *nodeBase) base() *nodeBase {
	return b
}

// Parent returns the node's parent, or nil for a detached node.
func (b *nodeBase) Parent() Node {
	return b.parent
}

// Children returns the child list. The returned slice must not be modified.
func (b *nodeBase) Children() []Node {
	return b.children
}

// ChildCount returns the number of direct children.
func (b *nodeBase) ChildCount() int {
	return len(b.children)
}

// IndexOf returns the position of child among the node's children, or -1.
func (b *nodeBase) IndexOf(child Node) int {
	for i, c := range b.children {
		if c == child {
			return i
		}
	}
	return -1
}

// AddChild appends child. If child already has a parent it is removed from
// that parent first. Panics if child is nil, is an ancestor of this node or
// is not accepted by this node.
func (b *nodeBase) AddChild(child Node) {
	b.InsertChild(len(b.children), child)
}

// AddChildren appends each of children in order.
func (b *nodeBase) AddChildren(children []Node) {
	for _, c := range children {
		b.AddChild(c)
	}
}

// InsertChild inserts child at index with the same checks as AddChild.
func (b *nodeBase) InsertChild(index int, child Node) {
	if child == nil {
		panic("model: cannot add nil child")
	}
	if isAncestor(child, b.self) {
		panic("model: adding child would create a cycle")
	}
	if !b.self.CanAddChild(child) {
		panic(fmt.Sprintf("model: %s cannot contain %s", b.self.Kind(), child.Kind()))
	}
	if p := child.Parent(); p != nil {
		p.RemoveChild(child)
		if p == b.self && index > len(b.children) {
			index = len(b.children)
		}
	}
	if index < 0 || index > len(b.children) {
		panic("model: child index out of range")
	}
	b.children = append(b.children, nil)
	copy(b.children[index+1:], b.children[index:])
	b.children[index] = child
	child.base().parent = b.self
	b.self.childWasAdded(child)
}

// RemoveChild detaches child. Panics if child's parent is not this node.
func (b *nodeBase) RemoveChild(child Node) {
	i := b.IndexOf(child)
	if i < 0 {
		panic("model: child's parent is not this node")
	}
	copy(b.children[i:], b.children[i+1:])
	b.children[len(b.children)-1] = nil
	b.children = b.children[:len(b.children)-1]
	child.base().parent = nil
	b.self.childWasRemoved(child)
}

func (b *nodeBase) childWasAdded(Node)   {}
func (b *nodeBase) childWasRemoved(Node) {}

func (b *nodeBase) nodePhysicalBoundsDidChange() {
	if b.parent != nil {
		b.parent.childPhysicalBoundsDidChange()
	}
}

func (b *nodeBase) childPhysicalBoundsDidChange() {}

// isAncestor reports whether candidate is node or one of its ancestors.
func isAncestor(candidate, node Node) bool {
	for p := node; p != nil; p = p.Parent() {
		if p == candidate {
			return true
		}
	}
	return false
}

// childrenBounds folds the bounds of nodes. An empty list yields the
// degenerate box at the origin.
func childrenBounds(nodes []Node, bounds func(Node) sdf.Box3) sdf.Box3 {
	if len(nodes) == 0 {
		return sdf.Box3{}
	}
	result := bounds(nodes[0])
	for _, n := range nodes[1:] {
		result = result.Extend(bounds(n))
	}
	return result
}

func logicalBoundsOf(n Node) sdf.Box3  { return n.LogicalBounds() }
func physicalBoundsOf(n Node) sdf.Box3 { return n.PhysicalBounds() }

// CloneRecursively returns a deep copy of node and its descendants. Group
// clones start in their own link sets.
func CloneRecursively(node Node, worldBounds sdf.Box3) Node {
	clone := node.Clone(worldBounds)
	for _, child := range node.Children() {
		clone.AddChild(CloneRecursively(child, worldBounds))
	}
	return clone
}

// TransformNode applies m to node and its subtree. Brushes that would leave
// worldBounds fail the call. Each node that changes is reported to changed,
// if not nil, with a function restoring its previous value.
func TransformNode(node Node, worldBounds sdf.Box3, m sdf.M44, lockTextures bool, changed func(restore func())) error {
	if changed == nil {
		changed = func(func()) {}
	}
	switch n := node.(type) {
	case *WorldNode, *LayerNode:
	case *GroupNode:
		group := n.Group()
		group.Transform(m)
		old := n.SetGroup(group)
		changed(func() { n.SetGroup(old) })
	case *EntityNode:
		entity := n.Entity()
		entity.Transform(m)
		old := n.SetEntity(entity)
		changed(func() { n.SetEntity(old) })
	case *BrushNode:
		brush := n.Brush()
		if err := brush.Transform(worldBounds, m, lockTextures); err != nil {
			return err
		}
		old := n.SetBrush(brush)
		changed(func() { n.SetBrush(old) })
	}
	for _, c := range node.Children() {
		if err := TransformNode(c, worldBounds, m, lockTextures, changed); err != nil {
			return err
		}
	}
	return nil
}

// Walk visits node and its descendants in pre-order. Returning false from fn
// skips the children of the visited node.
func Walk(node Node, fn func(Node) bool) {
	if !fn(node) {
		return
	}
	for _, child := range node.Children() {
		Walk(child, fn)
	}
}

// ContainingGroup returns the closest GroupNode ancestor of node, or nil.
func ContainingGroup(node Node) *GroupNode {
	for p := node.Parent(); p != nil; p = p.Parent() {
		if g, ok := p.(*GroupNode); ok {
			return g
		}
	}
	return nil
}

// ContainingLayer returns the closest LayerNode ancestor of node, or nil.
func ContainingLayer(node Node) *LayerNode {
	for p := node.Parent(); p != nil; p = p.Parent() {
		if l, ok := p.(*LayerNode); ok {
			return l
		}
	}
	return nil
}
