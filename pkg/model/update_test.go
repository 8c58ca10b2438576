package model

import (
	"testing"

	"github.com/chazu/brushwork/pkg/geom"
	"github.com/deadsy/sdfx/sdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupTransform(t *testing.T) {
	g := NewGroupNode(NewGroup("name"))
	require.Equal(t, geom.Identity(), g.Group().Transformation())

	entityNode := NewEntityNode(NewEntity())
	g.AddChild(entityNode)

	transform(t, g, geom.Translation(32, 0, 0))
	assert.Equal(t, geom.Translation(32, 0, 0), g.Group().Transformation())

	transform(t, g, geom.Rotation(0, 0, 90))
	assert.Equal(t, geom.Rotation(0, 0, 90).Mul(geom.Translation(32, 0, 0)), g.Group().Transformation())

	test := NewEntityNode(NewEntity())
	transform(t, test, g.Group().Transformation())
	assert.True(t, entityNode.Entity().Origin().Equals(test.Entity().Origin(), 1e-9))
}

func TestUpdateLinkedGroupsOfSingleton(t *testing.T) {
	g := NewGroupNode(NewGroup("name"))
	g.AddChild(NewEntityNode(NewEntity()))
	transform(t, g, geom.Translation(1, 0, 0))

	result, err := g.UpdateLinkedGroups(testWorldBounds)
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestUpdateLinkedGroups(t *testing.T) {
	g := NewGroupNode(NewGroup("name"))
	entityNode := NewEntityNode(NewEntity())
	g.AddChild(entityNode)

	transform(t, g, geom.Translation(1, 0, 0))
	require.Equal(t, geom.Translation(1, 0, 0), g.Group().Transformation())
	require.Equal(t, vec(1, 0, 0), entityNode.Entity().Origin())

	clone := linkedClone(t, g)
	require.Equal(t, geom.Translation(1, 0, 0), clone.Group().Transformation())

	transform(t, clone, geom.Translation(0, 2, 0))
	require.Equal(t, geom.Translation(1, 2, 0), clone.Group().Transformation())
	require.Equal(t, vec(1, 2, 0), clone.Children()[0].(*EntityNode).Entity().Origin())

	transform(t, entityNode, geom.Translation(0, 0, 3))
	require.Equal(t, vec(1, 0, 3), entityNode.Entity().Origin())

	result, err := g.UpdateLinkedGroups(testWorldBounds)
	require.NoError(t, err)
	require.Len(t, result, 1)

	r := result[0]
	assert.Same(t, clone, r.Target)
	assert.True(t, InSameLinkSet(r.Replacement, g))
	assert.True(t, r.Replacement.ConnectedToLinkSet())
	assert.Equal(t, clone.Group(), r.Replacement.Group())
	require.Equal(t, 1, r.Replacement.ChildCount())

	newEntity, ok := r.Replacement.Children()[0].(*EntityNode)
	require.True(t, ok)
	assert.True(t, vec(1, 2, 3).Equals(newEntity.Entity().Origin(), 1e-9))

	// the target itself is left alone
	assert.Equal(t, vec(1, 2, 0), clone.Children()[0].(*EntityNode).Entity().Origin())
}

func TestUpdateLinkedGroupsReplacementIsDistinct(t *testing.T) {
	g := NewGroupNode(NewGroup("name"))
	g.AddChild(NewEntityNode(NewEntity()))
	clone := linkedClone(t, g)

	result, err := g.UpdateLinkedGroups(testWorldBounds)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.NotSame(t, result[0].Target, result[0].Replacement)
	assert.NotSame(t, clone.Children()[0], result[0].Replacement.Children()[0])
	assert.NotSame(t, g.Children()[0], result[0].Replacement.Children()[0])
}

func TestUpdateNestedLinkedGroup(t *testing.T) {
	setup := func(t *testing.T) (outer, inner, innerClone *GroupNode, innerEntity *EntityNode) {
		outer = NewGroupNode(NewGroup("outer"))
		inner = NewGroupNode(NewGroup("inner"))
		outer.AddChild(inner)
		innerEntity = NewEntityNode(NewEntity())
		inner.AddChild(innerEntity)

		innerClone = linkedClone(t, inner)
		require.Equal(t, geom.Identity(), innerClone.Group().Transformation())

		transform(t, innerClone, geom.Translation(0, 2, 0))
		require.Equal(t, geom.Translation(0, 2, 0), innerClone.Group().Transformation())
		return outer, inner, innerClone, innerEntity
	}

	t.Run("transforming the outer group", func(t *testing.T) {
		outer, inner, innerClone, innerEntity := setup(t)
		transform(t, outer, geom.Translation(1, 0, 0))
		require.Equal(t, geom.Translation(1, 0, 0), inner.Group().Transformation())
		require.Equal(t, vec(1, 0, 0), innerEntity.Entity().Origin())
		require.Equal(t, geom.Translation(0, 2, 0), innerClone.Group().Transformation())

		result, err := outer.UpdateLinkedGroups(testWorldBounds)
		require.NoError(t, err)
		assert.Empty(t, result)
	})

	t.Run("transforming the inner group", func(t *testing.T) {
		outer, inner, innerClone, innerEntity := setup(t)
		transform(t, inner, geom.Translation(1, 0, 0))
		require.Equal(t, geom.Identity(), outer.Group().Transformation())
		require.Equal(t, vec(1, 0, 0), innerEntity.Entity().Origin())

		result, err := inner.UpdateLinkedGroups(testWorldBounds)
		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.Same(t, innerClone, result[0].Target)
		assert.Equal(t, innerClone.Group(), result[0].Replacement.Group())
		require.Equal(t, 1, result[0].Replacement.ChildCount())

		e := result[0].Replacement.Children()[0].(*EntityNode)
		assert.True(t, vec(0, 2, 0).Equals(e.Entity().Origin(), 1e-9))
	})

	t.Run("transforming the inner group's entity", func(t *testing.T) {
		_, inner, innerClone, innerEntity := setup(t)
		transform(t, innerEntity, geom.Translation(1, 0, 0))
		require.Equal(t, geom.Identity(), inner.Group().Transformation())

		result, err := inner.UpdateLinkedGroups(testWorldBounds)
		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.Same(t, innerClone, result[0].Target)

		e := result[0].Replacement.Children()[0].(*EntityNode)
		assert.True(t, vec(1, 2, 0).Equals(e.Entity().Origin(), 1e-9))
	})
}

func TestUpdateLinkedGroupsRecursively(t *testing.T) {
	outer := NewGroupNode(NewGroup("outer"))
	inner := NewGroupNode(NewGroup("inner"))
	outer.AddChild(inner)
	innerEntity := NewEntityNode(NewEntity())
	inner.AddChild(innerEntity)

	outerClone := linkedClone(t, outer)
	require.Equal(t, 1, outerClone.ChildCount())
	innerClone := outerClone.Children()[0].(*GroupNode)
	require.Equal(t, 1, innerClone.ChildCount())

	result, err := outer.UpdateLinkedGroups(testWorldBounds)
	require.NoError(t, err)
	require.Len(t, result, 1)

	r := result[0]
	require.Same(t, outerClone, r.Target)
	require.Equal(t, outerClone.Group(), r.Replacement.Group())
	require.Equal(t, 1, r.Replacement.ChildCount())

	newInner, ok := r.Replacement.Children()[0].(*GroupNode)
	require.True(t, ok)
	assert.Equal(t, inner.Group(), newInner.Group())
	require.Equal(t, 1, newInner.ChildCount())

	// nested groups in a replacement start in their own link sets
	assert.False(t, InSameLinkSet(newInner, inner))
	assert.False(t, InSameLinkSet(newInner, innerClone))

	newEntity, ok := newInner.Children()[0].(*EntityNode)
	require.True(t, ok)
	assert.True(t, newEntity.Entity().Equal(innerEntity.Entity()))
}

func TestUpdateLinkedGroupsExceedsWorldBounds(t *testing.T) {
	g := NewGroupNode(NewGroup("name"))
	entityNode := NewEntityNode(NewEntity())
	g.AddChild(entityNode)

	clone := linkedClone(t, g)
	transform(t, clone, geom.Translation(geom.DefaultWorldSize-8, 0, 0))
	require.Equal(t, sdf.Box3{
		Min: vec(geom.DefaultWorldSize-16, -8, -8),
		Max: vec(geom.DefaultWorldSize, 8, 8),
	}, clone.Children()[0].LogicalBounds())

	// touching the boundary is allowed
	result, err := g.UpdateLinkedGroups(testWorldBounds)
	require.NoError(t, err)
	require.Len(t, result, 1)
	discardReplacements(result)

	transform(t, entityNode, geom.Translation(1, 0, 0))
	require.Equal(t, vec(1, 0, 0), entityNode.Entity().Origin())

	result, err = g.UpdateLinkedGroups(testWorldBounds)
	assert.Nil(t, result)
	assert.Equal(t, UpdateLinkedGroupsError{Message: "Linked node exceeds world bounds"}, err)
}

func TestUpdateLinkedGroupsDiscardsEarlierReplacements(t *testing.T) {
	g := NewGroupNode(NewGroup("name"))
	inner := NewGroupNode(NewGroup("inner"))
	entityNode := NewEntityNode(NewEntity())
	inner.AddChild(entityNode)
	g.AddChild(inner)

	a := linkedClone(t, g)
	b := linkedClone(t, g)
	transform(t, b, geom.Translation(geom.DefaultWorldSize-8, 0, 0))
	transform(t, entityNode, geom.Translation(1, 0, 0))
	live := LiveLinkSets()

	result, err := g.UpdateLinkedGroups(testWorldBounds)
	assert.Nil(t, result)
	assert.Equal(t, UpdateLinkedGroupsError{Message: "Linked node exceeds world bounds"}, err)
	assert.Equal(t, []*GroupNode{g, a, b}, g.LinkedGroups())
	assert.Equal(t, live, LiveLinkSets())
}

func TestUpdateLinkedGroupsNonInvertible(t *testing.T) {
	g := NewGroupNode(NewGroup("name"))
	g.AddChild(NewEntityNode(NewEntity()))
	clone := linkedClone(t, g)
	before := clone.Children()[0]

	group := g.Group()
	group.Transform(geom.Scaling(1, 0, 1))
	g.SetGroup(group)

	result, err := g.UpdateLinkedGroups(testWorldBounds)
	assert.Nil(t, result)
	assert.Equal(t, UpdateLinkedGroupsError{Message: "Group transformation is not invertible"}, err)
	assert.Equal(t, []*GroupNode{g, clone}, g.LinkedGroups())
	assert.Same(t, before, clone.Children()[0])
}

func TestUpdateLinkedGroupsRejectsLayerChild(t *testing.T) {
	g := NewGroupNode(NewGroup("name"))
	g.AddChild(NewEntityNode(NewEntity()))
	forceChild(g, NewLayerNode("nested"))

	a := NewGroupNode(NewGroup("a"))
	b := NewGroupNode(NewGroup("b"))
	g.AddToLinkSet(a)
	g.AddToLinkSet(b)
	live := LiveLinkSets()

	result, err := g.UpdateLinkedGroups(testWorldBounds)
	assert.Nil(t, result)
	assert.Equal(t, UpdateLinkedGroupsError{Message: "Visited layer node while updating linked groups"}, err)

	// nothing built along the way survives
	assert.Equal(t, []*GroupNode{g, a, b}, g.LinkedGroups())
	assert.Equal(t, live, LiveLinkSets())
	assert.Zero(t, a.ChildCount())
	assert.Zero(t, b.ChildCount())
}

func TestUpdateLinkedGroupsRejectsWorldChild(t *testing.T) {
	g := NewGroupNode(NewGroup("name"))
	inner := NewGroupNode(NewGroup("inner"))
	g.AddChild(inner)
	linkedClone(t, g)
	forceChild(inner, NewWorldNode())
	live := LiveLinkSets()

	_, err := g.UpdateLinkedGroups(testWorldBounds)
	assert.Equal(t, UpdateLinkedGroupsError{Message: "Visited world node while updating linked groups"}, err)
	assert.Equal(t, live, LiveLinkSets())
}

func TestUpdateLinkedGroupsFoldsBrushError(t *testing.T) {
	g := NewGroupNode(NewGroup("name"))
	g.AddChild(cuboid(t, vec(0, 0, 0), vec(16, 16, 16)))
	clone := linkedClone(t, g)

	group := clone.Group()
	group.Transform(geom.Scaling(1, 0, 1))
	clone.SetGroup(group)

	_, err := g.UpdateLinkedGroups(testWorldBounds)
	assert.Equal(t, UpdateLinkedGroupsError{Message: BrushEmpty.String()}, err)
	assert.EqualError(t, err, "Brush is empty")
}

func TestUpdateLinkedGroupsSkipsDisconnectedMember(t *testing.T) {
	g := NewGroupNode(NewGroup("name"))
	g.AddChild(NewEntityNode(NewEntity()))
	a := linkedClone(t, g)
	b := linkedClone(t, g)
	b.DisconnectFromLinkSet()

	result, err := g.UpdateLinkedGroups(testWorldBounds)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Same(t, a, result[0].Target)
}

func TestUpdateLinkedGroupsFromDisconnectedGroupPanics(t *testing.T) {
	g := NewGroupNode(NewGroup("name"))
	g.DisconnectFromLinkSet()
	assert.Panics(t, func() { _, _ = g.UpdateLinkedGroups(testWorldBounds) })
}

func TestUpdateLinkedGroupsMemberOrder(t *testing.T) {
	g := NewGroupNode(NewGroup("name"))
	g.AddChild(NewEntityNode(NewEntity()))
	a := linkedClone(t, g)
	b := linkedClone(t, g)
	c := linkedClone(t, g)

	result, err := b.UpdateLinkedGroups(testWorldBounds)
	require.NoError(t, err)
	require.Len(t, result, 3)
	assert.Same(t, g, result[0].Target)
	assert.Same(t, a, result[1].Target)
	assert.Same(t, c, result[2].Target)
}

func TestUpdateLinkedGroupsRoundTrip(t *testing.T) {
	g := NewGroupNode(NewGroup("name"))
	entityNode := NewEntityNode(NewEntity())
	entityNode.SetEntity(func() Entity {
		e := entityNode.Entity()
		e.SetOrigin(vec(4, 5, 6))
		return e
	}())
	g.AddChild(entityNode)
	g.AddChild(cuboid(t, vec(-16, -16, -16), vec(16, 16, 16)))

	clone := linkedClone(t, g)
	transform(t, clone, geom.Translation(128, 0, 0))
	original := clone.Children()[1].LogicalBounds()

	m := geom.Rotation(0, 0, 45).Mul(geom.Translation(3, 7, 0))
	inverse, ok := geom.Invert(m)
	require.True(t, ok)

	transform(t, entityNode, m)
	transform(t, g.Children()[1], m)
	transform(t, entityNode, inverse)
	transform(t, g.Children()[1], inverse)

	result, err := g.UpdateLinkedGroups(testWorldBounds)
	require.NoError(t, err)
	require.Len(t, result, 1)

	replacement := result[0].Replacement
	e := replacement.Children()[0].(*EntityNode)
	assert.True(t, vec(132, 5, 6).Equals(e.Entity().Origin(), 1e-6))
	assert.True(t, original.Equals(replacement.Children()[1].LogicalBounds(), 1e-6))
}
