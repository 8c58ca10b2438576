package model

import (
	"testing"

	"github.com/chazu/brushwork/pkg/geom"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/require"
)

var testWorldBounds = geom.WorldBounds(geom.DefaultWorldSize)

// transform applies m to node and its subtree without texture lock.
func transform(t *testing.T, node Node, m sdf.M44) {
	t.Helper()
	require.NoError(t, TransformNode(node, testWorldBounds, m, false, nil))
}

func cuboid(t *testing.T, min, max v3.Vec) *BrushNode {
	t.Helper()
	b, err := NewCuboid(sdf.Box3{Min: min, Max: max}, "base")
	require.NoError(t, err)
	return NewBrushNode(b)
}

// forceChild attaches child to parent without the acceptance check, to
// build trees the public API refuses.
func forceChild(parent, child Node) {
	parent.base().children = append(parent.base().children, child)
	child.base().parent = parent
}

func linkedClone(t *testing.T, g *GroupNode) *GroupNode {
	t.Helper()
	clone, ok := CloneRecursively(g, testWorldBounds).(*GroupNode)
	require.True(t, ok)
	g.AddToLinkSet(clone)
	return clone
}

func vec(x, y, z float64) v3.Vec {
	return v3.Vec{X: x, Y: y, Z: z}
}
