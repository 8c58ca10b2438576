package model

import (
	"slices"

	"github.com/chazu/brushwork/pkg/geom"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// brushEpsilon is the smallest extent a brush may have on any axis.
const brushEpsilon = 1e-6

// BrushError describes why a brush could not be built or transformed.
type BrushError int

const (
	BrushEmpty BrushError = iota
	BrushIncomplete
	BrushInvalid
)

func (e BrushError) String() string {
	switch e {
	case BrushEmpty:
		return "Brush is empty"
	case BrushIncomplete:
		return "Brush is incomplete"
	case BrushInvalid:
		return "Brush is invalid"
	default:
		return "Unknown brush error"
	}
}

func (e BrushError) Error() string { return e.String() }

// BrushFace is one polygon of a brush. Indices refer to the brush's vertex
// list in counter-clockwise order seen from outside.
type BrushFace struct {
	Indices []int
	Texture string
	UAxis   v3.Vec
	VAxis   v3.Vec
}

func (f BrushFace) clone() BrushFace {
	f.Indices = slices.Clone(f.Indices)
	return f
}

// Brush is a convex solid given by its vertices and faces.
type Brush struct {
	vertices []v3.Vec
	faces    []BrushFace
}

// cuboidFaces lists the faces of a box built from its corners in the order
// of NewCuboid, with the texture axes used for each face.
var cuboidFaces = []struct {
	indices      []int
	uAxis, vAxis v3.Vec
}{
	{[]int{0, 2, 3, 1}, v3.Vec{X: 1}, v3.Vec{Y: -1}}, // bottom
	{[]int{4, 5, 7, 6}, v3.Vec{X: 1}, v3.Vec{Y: -1}}, // top
	{[]int{0, 1, 5, 4}, v3.Vec{X: 1}, v3.Vec{Z: -1}}, // front
	{[]int{2, 6, 7, 3}, v3.Vec{X: 1}, v3.Vec{Z: -1}}, // back
	{[]int{0, 4, 6, 2}, v3.Vec{Y: 1}, v3.Vec{Z: -1}}, // left
	{[]int{1, 3, 7, 5}, v3.Vec{Y: 1}, v3.Vec{Z: -1}}, // right
}

// NewCuboid returns an axis-aligned box brush with every face using texture.
func NewCuboid(box sdf.Box3, texture string) (Brush, error) {
	size := box.Size()
	if size.X < brushEpsilon || size.Y < brushEpsilon || size.Z < brushEpsilon {
		return Brush{}, BrushEmpty
	}
	if !geom.IsFinite(box.Min) || !geom.IsFinite(box.Max) {
		return Brush{}, BrushInvalid
	}
	b := Brush{vertices: []v3.Vec{
		{X: box.Min.X, Y: box.Min.Y, Z: box.Min.Z},
		{X: box.Max.X, Y: box.Min.Y, Z: box.Min.Z},
		{X: box.Min.X, Y: box.Max.Y, Z: box.Min.Z},
		{X: box.Max.X, Y: box.Max.Y, Z: box.Min.Z},
		{X: box.Min.X, Y: box.Min.Y, Z: box.Max.Z},
		{X: box.Max.X, Y: box.Min.Y, Z: box.Max.Z},
		{X: box.Min.X, Y: box.Max.Y, Z: box.Max.Z},
		{X: box.Max.X, Y: box.Max.Y, Z: box.Max.Z},
	}}
	for _, f := range cuboidFaces {
		b.faces = append(b.faces, BrushFace{
			Indices: slices.Clone(f.indices),
			Texture: texture,
			UAxis:   f.uAxis,
			VAxis:   f.vAxis,
		})
	}
	return b, nil
}

// Vertices returns a copy of the brush's vertices.
func (b Brush) Vertices() []v3.Vec {
	return slices.Clone(b.vertices)
}

// Faces returns a copy of the brush's faces.
func (b Brush) Faces() []BrushFace {
	faces := make([]BrushFace, len(b.faces))
	for i, f := range b.faces {
		faces[i] = f.clone()
	}
	return faces
}

// Bounds returns the bounding box of the vertices.
func (b Brush) Bounds() sdf.Box3 {
	return vertexBounds(b.vertices)
}

// Clone returns a deep copy of b.
func (b Brush) Clone() Brush {
	return Brush{vertices: b.Vertices(), faces: b.Faces()}
}

// Transform maps the brush by m. The brush is left unchanged when an error is
// returned. A brush that collapses on some axis or ends up entirely outside
// worldBounds is empty; one with a non-finite vertex is invalid. With
// lockTextures the face texture axes follow the transformation.
func (b *Brush) Transform(worldBounds sdf.Box3, m sdf.M44, lockTextures bool) error {
	vertices := make([]v3.Vec, len(b.vertices))
	for i, v := range b.vertices {
		vertices[i] = m.MulPosition(v)
		if !geom.IsFinite(vertices[i]) {
			return BrushInvalid
		}
	}
	if len(vertices) == 0 {
		return BrushIncomplete
	}

	bounds := vertexBounds(vertices)
	size := bounds.Size()
	if size.X < brushEpsilon || size.Y < brushEpsilon || size.Z < brushEpsilon {
		return BrushEmpty
	}
	if !geom.Intersects(worldBounds, bounds) {
		return BrushEmpty
	}

	// a mirroring transform flips the winding of every face
	mirrored := m.Determinant() < 0
	faces := b.Faces()
	for i := range faces {
		if mirrored {
			slices.Reverse(faces[i].Indices)
		}
		if lockTextures {
			faces[i].UAxis = transformAxis(m, faces[i].UAxis)
			faces[i].VAxis = transformAxis(m, faces[i].VAxis)
		}
	}

	b.vertices = vertices
	b.faces = faces
	return nil
}

// vertexBounds returns the bounding box of vertices, or the degenerate box at
// the origin if there are none.
func vertexBounds(vertices []v3.Vec) sdf.Box3 {
	if len(vertices) == 0 {
		return sdf.Box3{}
	}
	set := v3.VecSet(vertices)
	return sdf.Box3{Min: set.Min(), Max: set.Max()}
}

func transformAxis(m sdf.M44, axis v3.Vec) v3.Vec {
	d := geom.TransformDirection(m, axis)
	if d.Length() > brushEpsilon {
		return d.Normalize()
	}
	return axis
}

// BrushNode wraps a Brush. Brushes are leaves.
type BrushNode struct {
	nodeBase

	brush Brush
}

// NewBrushNode returns a node wrapping brush.
func NewBrushNode(brush Brush) *BrushNode {
	n := &BrushNode{brush: brush}
	n.init(n)
	return n
}

// Brush returns a copy of the wrapped brush.
func (n *BrushNode) Brush() Brush {
	return n.brush.Clone()
}

// SetBrush replaces the wrapped brush and returns the previous one.
func (n *BrushNode) SetBrush(brush Brush) Brush {
	oldBounds := n.PhysicalBounds()
	old := n.brush
	n.brush = brush
	if n.PhysicalBounds() != oldBounds {
		n.nodePhysicalBoundsDidChange()
	}
	return old
}

func (n *BrushNode) Name() string   { return "brush" }
func (n *BrushNode) Kind() NodeKind { return KindBrush }

func (n *BrushNode) LogicalBounds() sdf.Box3  { return n.brush.Bounds() }
func (n *BrushNode) PhysicalBounds() sdf.Box3 { return n.brush.Bounds() }

func (n *BrushNode) Clone(sdf.Box3) Node {
	return NewBrushNode(n.brush.Clone())
}

func (n *BrushNode) CanAddChild(Node) bool    { return false }
func (n *BrushNode) CanRemoveChild(Node) bool { return false }
func (n *BrushNode) RemoveIfEmpty() bool      { return false }
