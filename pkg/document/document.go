// Package document applies editing commands to a world and keeps linked
// groups in sync.
//
// Every command either succeeds completely or leaves the world as it found
// it. Changes to the children of a linked group are replicated to the other
// members of its link set as part of the same command.
package document

import (
	"errors"
	"fmt"

	"github.com/chazu/brushwork/pkg/geom"
	"github.com/chazu/brushwork/pkg/model"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/golang/glog"
	"github.com/samber/lo"
)

var (
	ErrNoParent        = errors.New("node is not part of the world")
	ErrNoOpenGroup     = errors.New("no group is open")
	ErrMixedParents    = errors.New("nodes do not share a parent")
	ErrConflictingLink = errors.New("cannot update multiple members of the same link set")
)

// Document owns a world and the editing state around it.
type Document struct {
	world        *model.WorldNode
	worldBounds  sdf.Box3
	lockTextures bool
	openGroups   []*model.GroupNode
}

// New returns a document with an empty world.
func New(worldBounds sdf.Box3) *Document {
	return &Document{
		world:        model.NewWorldNode(),
		worldBounds:  worldBounds,
		lockTextures: true,
	}
}

// NewWithWorld returns a document editing an existing world. Persistent IDs
// are assigned and every group in the world is connected to its link set.
func NewWithWorld(world *model.WorldNode, worldBounds sdf.Box3) *Document {
	d := &Document{world: world, worldBounds: worldBounds, lockTextures: true}
	world.AssignPersistentIDs(world)
	connectGroups(world)
	return d
}

func (d *Document) World() *model.WorldNode { return d.world }
func (d *Document) WorldBounds() sdf.Box3   { return d.worldBounds }

// SetLockTextures controls whether brush transforms keep textures aligned.
func (d *Document) SetLockTextures(lock bool) {
	d.lockTextures = lock
}

// AddNodes appends nodes to parent. Groups in the added subtrees are
// connected to their link sets and receive persistent IDs.
func (d *Document) AddNodes(parent model.Node, nodes ...model.Node) error {
	if !d.contains(parent) {
		return ErrNoParent
	}
	for _, n := range nodes {
		if !parent.CanAddChild(n) {
			return fmt.Errorf("%s cannot contain %s", parent.Kind(), n.Kind())
		}
	}

	var j journal
	for _, n := range nodes {
		oldParent := n.Parent()
		oldIndex := -1
		if oldParent != nil {
			oldIndex = oldParent.IndexOf(n)
		}
		parent.AddChild(n)
		connectGroups(n)
		j.record(func() {
			parent.RemoveChild(n)
			if oldParent != nil {
				oldParent.InsertChild(oldIndex, n)
			} else {
				disconnectGroups(n)
			}
		})
		j.record(d.world.AssignPersistentIDs(n))
	}

	if err := d.propagate(&j, groupOf(parent)); err != nil {
		j.rollback()
		return err
	}
	j.commit()
	glog.V(2).Infof("added %d nodes to %s", len(nodes), parent.Name())
	return nil
}

// RemoveNodes detaches nodes from the world. Groups in the removed subtrees
// are disconnected from their link sets but keep them, so the nodes can be
// added again later. A group left without children is removed as well.
func (d *Document) RemoveNodes(nodes ...model.Node) error {
	for _, n := range nodes {
		p := n.Parent()
		if p == nil || !d.contains(n) {
			return ErrNoParent
		}
		if !p.CanRemoveChild(n) {
			return fmt.Errorf("cannot remove %s %q from %s", n.Kind(), n.Name(), p.Kind())
		}
	}

	var j journal
	var changed []*model.GroupNode
	for _, n := range nodes {
		if !d.contains(n) {
			// already removed along with an ancestor
			continue
		}
		anchor := d.remove(&j, n)
		if g := groupOf(anchor); g != nil {
			changed = append(changed, g)
		}
	}

	if err := d.propagate(&j, changed...); err != nil {
		j.rollback()
		return err
	}
	j.commit()
	glog.V(2).Infof("removed %d nodes", len(nodes))
	return nil
}

// remove detaches n and prunes ancestors that should not stay empty. It
// returns the closest ancestor that is still attached.
func (d *Document) remove(j *journal, n model.Node) model.Node {
	for {
		parent := n.Parent()
		index := parent.IndexOf(n)
		parent.RemoveChild(n)
		disconnectGroups(n)

		removed := n
		j.record(func() {
			parent.InsertChild(index, removed)
			connectGroups(removed)
		})

		if parent.ChildCount() > 0 || !parent.RemoveIfEmpty() || parent.Parent() == nil {
			return parent
		}
		n = parent
	}
}

// GroupNodes wraps nodes in a new group that takes the place of the first
// of them. All nodes must have the same parent.
func (d *Document) GroupNodes(name string, nodes ...model.Node) (*model.GroupNode, error) {
	if len(nodes) == 0 {
		return nil, errors.New("no nodes to group")
	}
	parent := nodes[0].Parent()
	if parent == nil || !d.contains(parent) {
		return nil, ErrNoParent
	}
	for _, n := range nodes[1:] {
		if n.Parent() != parent {
			return nil, ErrMixedParents
		}
	}

	group := model.NewGroupNode(model.NewGroup(name))
	if !parent.CanAddChild(group) {
		group.Dispose()
		return nil, fmt.Errorf("%s cannot contain a group", parent.Kind())
	}

	var j journal
	index := lo.Min(lo.Map(nodes, func(n model.Node, _ int) int { return parent.IndexOf(n) }))
	parent.InsertChild(index, group)
	j.record(func() {
		parent.RemoveChild(group)
		group.Dispose()
	})
	for _, n := range nodes {
		oldIndex := parent.IndexOf(n)
		group.AddChild(n)
		j.record(func() { parent.InsertChild(oldIndex, n) })
	}
	j.record(d.world.AssignPersistentIDs(group))

	if err := d.propagate(&j, groupOf(parent)); err != nil {
		j.rollback()
		return nil, err
	}
	j.commit()
	glog.V(2).Infof("grouped %d nodes into %q", len(nodes), name)
	return group, nil
}

// CreateLinkedGroup adds a copy of g next to it and links the copy to g.
func (d *Document) CreateLinkedGroup(g *model.GroupNode) (*model.GroupNode, error) {
	parent := g.Parent()
	if parent == nil || !d.contains(g) {
		return nil, ErrNoParent
	}

	clone := model.CloneRecursively(g, d.worldBounds).(*model.GroupNode)
	g.AddToLinkSet(clone)
	parent.InsertChild(parent.IndexOf(g)+1, clone)
	d.world.AssignPersistentIDs(clone)

	glog.V(2).Infof("linked copy of %q created in %s", g.Name(), g.LinkID())
	return clone, nil
}

// OpenGroup makes g the current group. A previously current group is closed
// first and reopened when g is closed again.
func (d *Document) OpenGroup(g *model.GroupNode) error {
	if !d.contains(g) {
		return ErrNoParent
	}
	if current := d.CurrentGroup(); current != nil {
		current.Close()
	}
	g.Open()
	d.openGroups = append(d.openGroups, g)
	return nil
}

// CloseGroup replicates the current group's contents to its linked groups
// and closes it. If replication fails the group stays open.
func (d *Document) CloseGroup() error {
	g := d.CurrentGroup()
	if g == nil {
		return ErrNoOpenGroup
	}

	var j journal
	if err := d.propagate(&j, g); err != nil {
		j.rollback()
		return err
	}
	j.commit()

	d.openGroups = d.openGroups[:len(d.openGroups)-1]
	g.Close()
	if previous := d.CurrentGroup(); previous != nil {
		previous.Open()
	}
	return nil
}

// CurrentGroup returns the innermost open group, or nil.
func (d *Document) CurrentGroup() *model.GroupNode {
	if len(d.openGroups) == 0 {
		return nil
	}
	return d.openGroups[len(d.openGroups)-1]
}

// TransformNodes applies m to nodes and their subtrees.
func (d *Document) TransformNodes(m sdf.M44, nodes ...model.Node) error {
	var j journal
	for _, n := range nodes {
		if err := model.TransformNode(n, d.worldBounds, m, d.lockTextures, j.record); err != nil {
			j.rollback()
			return fmt.Errorf("transforming %s %q: %w", n.Kind(), n.Name(), err)
		}
	}

	changed := lo.FilterMap(nodes, func(n model.Node, _ int) (*model.GroupNode, bool) {
		g := model.ContainingGroup(n)
		return g, g != nil
	})
	if err := d.propagate(&j, changed...); err != nil {
		j.rollback()
		return err
	}
	j.commit()
	return nil
}

// TranslateNodes moves nodes by delta.
func (d *Document) TranslateNodes(delta v3.Vec, nodes ...model.Node) error {
	return d.TransformNodes(geom.Translation(delta.X, delta.Y, delta.Z), nodes...)
}

// UpdateLinkedGroups replaces every other connected member of g's link set
// with a copy of g's children mapped into that member's frame.
func (d *Document) UpdateLinkedGroups(g *model.GroupNode) error {
	var j journal
	if err := d.updateLinkedGroups(&j, g); err != nil {
		j.rollback()
		return err
	}
	j.commit()
	return nil
}

func (d *Document) updateLinkedGroups(j *journal, g *model.GroupNode) error {
	replacements, err := g.UpdateLinkedGroups(d.worldBounds)
	if err != nil {
		return fmt.Errorf("updating linked groups of %q: %w", g.Name(), err)
	}
	for _, r := range replacements {
		d.splice(j, r)
	}
	glog.V(2).Infof("group %q: replaced %d linked groups", g.Name(), len(replacements))
	return nil
}

// splice puts r.Replacement where r.Target is. The target is disconnected
// and disposed once the command commits.
func (d *Document) splice(j *journal, r model.GroupReplacement) {
	target, replacement := r.Target, r.Replacement
	parent := target.Parent()
	if parent == nil {
		glog.V(2).Infof("linked group %q is not in the world, skipping", target.Name())
		disposeGroups(replacement)
		return
	}

	index := parent.IndexOf(target)
	parent.RemoveChild(target)
	parent.InsertChild(index, replacement)
	disconnectGroups(target)
	if id, ok := target.PersistentID(); ok {
		replacement.SetPersistentID(id)
	}
	undoIDs := d.world.AssignPersistentIDs(replacement)

	j.record(func() {
		undoIDs()
		parent.RemoveChild(replacement)
		parent.InsertChild(index, target)
		connectGroups(target)
		disposeGroups(replacement)
	})
	j.retire(target)
}

// propagate updates the linked groups of every changed group that has any.
func (d *Document) propagate(j *journal, changed ...*model.GroupNode) error {
	changed = lo.Uniq(lo.Filter(changed, func(g *model.GroupNode, _ int) bool {
		return g != nil && g.ConnectedToLinkSet() && len(g.LinkedGroups()) > 1
	}))
	for i, a := range changed {
		for _, b := range changed[i+1:] {
			if model.InSameLinkSet(a, b) {
				return ErrConflictingLink
			}
		}
	}
	for _, g := range changed {
		if !d.contains(g) {
			continue
		}
		if err := d.updateLinkedGroups(j, g); err != nil {
			return err
		}
	}
	return nil
}

// contains reports whether n is attached to the document's world.
func (d *Document) contains(n model.Node) bool {
	for p := n; p != nil; p = p.Parent() {
		if p == model.Node(d.world) {
			return true
		}
	}
	return false
}

// groupOf returns n if it is a group, otherwise its containing group.
func groupOf(n model.Node) *model.GroupNode {
	if g, ok := n.(*model.GroupNode); ok {
		return g
	}
	return model.ContainingGroup(n)
}

func connectGroups(n model.Node) {
	eachGroup(n, (*model.GroupNode).ConnectToLinkSet)
}

func disconnectGroups(n model.Node) {
	eachGroup(n, (*model.GroupNode).DisconnectFromLinkSet)
}

func disposeGroups(n model.Node) {
	eachGroup(n, (*model.GroupNode).Dispose)
}

func eachGroup(n model.Node, fn func(*model.GroupNode)) {
	model.Walk(n, func(n model.Node) bool {
		if g, ok := n.(*model.GroupNode); ok {
			fn(g)
		}
		return true
	})
}

// journal records how to revert the steps of a command, and the groups the
// command took out of the world for good.
type journal struct {
	undo    []func()
	retired []*model.GroupNode
}

func (j *journal) record(f func()) {
	j.undo = append(j.undo, f)
}

// retire marks a group subtree for disposal when the command commits.
func (j *journal) retire(g *model.GroupNode) {
	j.retired = append(j.retired, g)
}

// commit disposes the retired groups. Nothing can be rolled back afterwards.
func (j *journal) commit() {
	for _, g := range j.retired {
		disposeGroups(g)
	}
	j.undo, j.retired = nil, nil
}

func (j *journal) rollback() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo, j.retired = nil, nil
}
