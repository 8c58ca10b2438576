package model

import (
	"github.com/deadsy/sdfx/sdf"
)

// DefaultLayerName is the name of the layer every world starts with.
const DefaultLayerName = "Default Layer"

// WorldNode is the root of a scene graph. Its children are layers; the
// first layer is the default layer.
type WorldNode struct {
	nodeBase

	defaultLayer     *LayerNode
	nextPersistentID IDType
}

// NewWorldNode returns a world containing an empty default layer.
func NewWorldNode() *WorldNode {
	w := &WorldNode{nextPersistentID: 1}
	w.init(w)
	w.AddChild(NewLayerNode(DefaultLayerName))
	return w
}

func (w *WorldNode) Name() string   { return "world" }
func (w *WorldNode) Kind() NodeKind { return KindWorld }

// DefaultLayer returns the layer new nodes go to by default.
func (w *WorldNode) DefaultLayer() *LayerNode {
	return w.defaultLayer
}

// Layers returns all layers in order.
func (w *WorldNode) Layers() []*LayerNode {
	layers := make([]*LayerNode, 0, len(w.children))
	for _, c := range w.children {
		layers = append(layers, c.(*LayerNode))
	}
	return layers
}

// AssignPersistentIDs gives every layer and group in node's subtree that has
// no persistent ID the next free one. IDs already present are kept, and the
// counter moves past them so later IDs never collide. The returned function
// takes the new IDs back and restores the counter.
func (w *WorldNode) AssignPersistentIDs(node Node) (undo func()) {
	next := w.nextPersistentID
	var assigned []persistentIDHolder
	Walk(node, func(n Node) bool {
		var h persistentIDHolder
		switch n := n.(type) {
		case *GroupNode:
			h = n
		case *LayerNode:
			h = n
		case *WorldNode, *EntityNode, *BrushNode:
			return true
		}
		if w.assign(h) {
			assigned = append(assigned, h)
		}
		return true
	})
	return func() {
		for _, h := range assigned {
			h.ClearPersistentID()
		}
		w.nextPersistentID = next
	}
}

type persistentIDHolder interface {
	PersistentID() (IDType, bool)
	SetPersistentID(IDType)
	ClearPersistentID()
}

// assign reports whether n received a new ID.
func (w *WorldNode) assign(n persistentIDHolder) bool {
	if id, ok := n.PersistentID(); ok {
		if id >= w.nextPersistentID {
			w.nextPersistentID = id + 1
		}
		return false
	}
	n.SetPersistentID(w.nextPersistentID)
	w.nextPersistentID++
	return true
}

func (w *WorldNode) LogicalBounds() sdf.Box3 {
	return childrenBounds(w.children, logicalBoundsOf)
}

func (w *WorldNode) PhysicalBounds() sdf.Box3 {
	return childrenBounds(w.children, physicalBoundsOf)
}

// Clone returns a world without layers. The first layer added to the clone
// becomes its default layer.
func (w *WorldNode) Clone(sdf.Box3) Node {
	clone := &WorldNode{nextPersistentID: 1}
	clone.init(clone)
	return clone
}

func (w *WorldNode) childWasAdded(child Node) {
	if w.defaultLayer == nil {
		w.defaultLayer = child.(*LayerNode)
	}
}

func (w *WorldNode) CanAddChild(child Node) bool {
	switch child.(type) {
	case *LayerNode:
		return true
	case *WorldNode, *GroupNode, *EntityNode, *BrushNode:
		return false
	}
	return false
}

// CanRemoveChild refuses to remove the default layer.
func (w *WorldNode) CanRemoveChild(child Node) bool {
	return child != Node(w.defaultLayer)
}

func (w *WorldNode) RemoveIfEmpty() bool { return false }
