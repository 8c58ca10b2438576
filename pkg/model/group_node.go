package model

import (
	"github.com/deadsy/sdfx/sdf"
)

// IDType is the persistent identifier assigned to groups and layers by map
// readers and by the world when a node is added.
type IDType uint64

// EditState tracks whether a group is opened for editing.
type EditState int

const (
	EditClosed EditState = iota
	EditOpen
	EditDescendantOpen
)

func (s EditState) String() string {
	switch s {
	case EditClosed:
		return "closed"
	case EditOpen:
		return "open"
	case EditDescendantOpen:
		return "descendant-open"
	default:
		return "unknown"
	}
}

// GroupNode groups other nodes so that they can be edited as one. Multiple
// groups can form a link set: changes to the children of one member are
// replicated, transformed, to every other member.
//
// Every group is in a link set, even an unlinked one, in which case it is the
// only member. A member is either connected or disconnected. A disconnected
// member keeps its link set but is not updated when other members change;
// the typical example is a group removed from the map but retained so that
// it can be added back later.
type GroupNode struct {
	nodeBase

	group     Group
	linkSet   LinkSetID
	editState EditState

	logicalBounds  sdf.Box3
	physicalBounds sdf.Box3
	boundsValid    bool

	persistentID    IDType
	hasPersistentID bool
}

// NewGroupNode returns a closed group node connected to a new link set of
// its own.
func NewGroupNode(group Group) *GroupNode {
	g := &GroupNode{
		group:     group,
		linkSet:   linkSets.allocate(),
		editState: EditClosed,
	}
	g.init(g)
	g.ConnectToLinkSet()
	return g
}

// Group returns the wrapped group value.
func (g *GroupNode) Group() Group {
	return g.group
}

// SetGroup replaces the wrapped group and returns the previous one.
func (g *GroupNode) SetGroup(group Group) Group {
	old := g.group
	g.group = group
	return old
}

func (g *GroupNode) Name() string   { return g.group.Name() }
func (g *GroupNode) Kind() NodeKind { return KindGroup }

// Opened reports whether the group is open for editing.
func (g *GroupNode) Opened() bool { return g.editState == EditOpen }

// HasOpenedDescendant reports whether a group nested in this one is open.
func (g *GroupNode) HasOpenedDescendant() bool { return g.editState == EditDescendantOpen }

// Closed reports whether the group is neither open nor contains an open group.
func (g *GroupNode) Closed() bool { return g.editState == EditClosed }

// EditState returns the current edit state.
func (g *GroupNode) EditState() EditState { return g.editState }

// Open opens a closed group and marks its ancestor groups as having an open
// descendant. Panics if the group is not closed.
func (g *GroupNode) Open() {
	if g.editState != EditClosed {
		panic("model: open requires a closed group")
	}
	g.editState = EditOpen
	g.setAncestorEditState(EditDescendantOpen)
}

// Close closes an open group and closes its ancestor groups. Panics if the
// group is not open.
func (g *GroupNode) Close() {
	if g.editState != EditOpen {
		panic("model: close requires an open group")
	}
	g.editState = EditClosed
	g.setAncestorEditState(EditClosed)
}

func (g *GroupNode) setAncestorEditState(state EditState) {
	for p := g.Parent(); p != nil; p = p.Parent() {
		switch p := p.(type) {
		case *GroupNode:
			p.editState = state
		case *WorldNode, *LayerNode, *EntityNode, *BrushNode:
		}
	}
}

// PersistentID returns the ID used to serialize the group, if one is set.
func (g *GroupNode) PersistentID() (IDType, bool) {
	return g.persistentID, g.hasPersistentID
}

// SetPersistentID sets the serialization ID.
func (g *GroupNode) SetPersistentID(id IDType) {
	g.persistentID = id
	g.hasPersistentID = true
}

func (g *GroupNode) ClearPersistentID() {
	g.persistentID, g.hasPersistentID = 0, false
}

// LinkSetID returns the handle of the group's link set.
func (g *GroupNode) LinkSetID() LinkSetID {
	return g.linkSet
}

// LinkID returns the identifier generated for the group's link set when it
// was allocated. All groups in one link set report the same value.
func (g *GroupNode) LinkID() string {
	if g.Disposed() {
		return ""
	}
	return linkSets.linkID(g.linkSet)
}

// LinkedGroups returns the connected members of the link set. A disconnected
// group is not part of the result.
func (g *GroupNode) LinkedGroups() []*GroupNode {
	if g.Disposed() {
		return nil
	}
	return linkSets.members(g.linkSet)
}

// InSameLinkSet reports whether a and b share a link set, connected or not.
func InSameLinkSet(a, b *GroupNode) bool {
	return !a.Disposed() && a.linkSet == b.linkSet
}

// AddToLinkSet moves other into this group's link set. other is disconnected
// from its own link set, joins this one and is connected. Nothing happens if
// other already belongs to this group's link set.
func (g *GroupNode) AddToLinkSet(other *GroupNode) {
	if InSameLinkSet(g, other) {
		return
	}
	linkSets.move(other, g.linkSet)
}

// ConnectedToLinkSet reports whether the group is a connected member.
func (g *GroupNode) ConnectedToLinkSet() bool {
	if g.Disposed() {
		return false
	}
	return linkSets.contains(g.linkSet, g)
}

// ConnectToLinkSet connects the group to its link set. Does nothing if it is
// already connected.
func (g *GroupNode) ConnectToLinkSet() {
	linkSets.connect(g.linkSet, g)
}

// DisconnectFromLinkSet disconnects the group from its link set. The group
// keeps its link set and can reconnect later.
func (g *GroupNode) DisconnectFromLinkSet() {
	linkSets.disconnect(g.linkSet, g)
}

// disposedLinkSet is the handle of a disposed group. No arena record has it.
var disposedLinkSet = LinkSetID{index: ^uint32(0)}

// Dispose disconnects the group and releases its link set handle. A disposed
// group reports no link set and must not be added to a world again. Disposing
// twice does nothing.
func (g *GroupNode) Dispose() {
	if g.Disposed() {
		return
	}
	linkSets.disconnect(g.linkSet, g)
	linkSets.release(g.linkSet)
	g.linkSet = disposedLinkSet
}

// Disposed reports whether Dispose has been called.
func (g *GroupNode) Disposed() bool {
	return g.linkSet == disposedLinkSet
}

// LogicalBounds returns the union of the children's logical bounds.
func (g *GroupNode) LogicalBounds() sdf.Box3 {
	if !g.boundsValid {
		g.validateBounds()
	}
	return g.logicalBounds
}

// PhysicalBounds returns the union of the children's physical bounds.
func (g *GroupNode) PhysicalBounds() sdf.Box3 {
	if !g.boundsValid {
		g.validateBounds()
	}
	return g.physicalBounds
}

func (g *GroupNode) invalidateBounds() {
	g.boundsValid = false
}

func (g *GroupNode) validateBounds() {
	g.logicalBounds = childrenBounds(g.children, logicalBoundsOf)
	g.physicalBounds = childrenBounds(g.children, physicalBoundsOf)
	g.boundsValid = true
}

// Clone returns a closed group with the same group value in a new link set.
func (g *GroupNode) Clone(sdf.Box3) Node {
	return NewGroupNode(g.group)
}

func (g *GroupNode) CanAddChild(child Node) bool {
	switch child.(type) {
	case *GroupNode, *EntityNode, *BrushNode:
		return true
	case *WorldNode, *LayerNode:
		return false
	}
	return false
}

func (g *GroupNode) CanRemoveChild(Node) bool { return true }
func (g *GroupNode) RemoveIfEmpty() bool      { return true }

func (g *GroupNode) childWasAdded(Node) {
	g.nodePhysicalBoundsDidChange()
}

func (g *GroupNode) childWasRemoved(Node) {
	g.nodePhysicalBoundsDidChange()
}

func (g *GroupNode) nodePhysicalBoundsDidChange() {
	g.invalidateBounds()
	g.nodeBase.nodePhysicalBoundsDidChange()
}

// childPhysicalBoundsDidChange recomputes the bounds and notifies the parent
// only if they actually changed.
func (g *GroupNode) childPhysicalBoundsDidChange() {
	old := g.PhysicalBounds()
	g.invalidateBounds()
	if g.PhysicalBounds() != old {
		g.nodePhysicalBoundsDidChange()
	}
}
