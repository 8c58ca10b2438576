package model

import (
	"github.com/deadsy/sdfx/sdf"
)

// LayerNode is a named top-level container under the world.
type LayerNode struct {
	nodeBase

	name            string
	persistentID    IDType
	hasPersistentID bool
}

// NewLayerNode returns an empty layer.
func NewLayerNode(name string) *LayerNode {
	l := &LayerNode{name: name}
	l.init(l)
	return l
}

func (l *LayerNode) Name() string   { return l.name }
func (l *LayerNode) Kind() NodeKind { return KindLayer }

// PersistentID returns the ID used to serialize the layer, if one is set.
func (l *LayerNode) PersistentID() (IDType, bool) {
	return l.persistentID, l.hasPersistentID
}

// SetPersistentID sets the serialization ID.
func (l *LayerNode) SetPersistentID(id IDType) {
	l.persistentID = id
	l.hasPersistentID = true
}

func (l *LayerNode) ClearPersistentID() {
	l.persistentID, l.hasPersistentID = 0, false
}

func (l *LayerNode) LogicalBounds() sdf.Box3 {
	return childrenBounds(l.children, logicalBoundsOf)
}

func (l *LayerNode) PhysicalBounds() sdf.Box3 {
	return childrenBounds(l.children, physicalBoundsOf)
}

func (l *LayerNode) Clone(sdf.Box3) Node {
	return NewLayerNode(l.name)
}

func (l *LayerNode) CanAddChild(child Node) bool {
	switch child.(type) {
	case *GroupNode, *EntityNode, *BrushNode:
		return true
	case *WorldNode, *LayerNode:
		return false
	}
	return false
}

func (l *LayerNode) CanRemoveChild(Node) bool { return true }
func (l *LayerNode) RemoveIfEmpty() bool      { return false }
