package model

import (
	"github.com/chazu/brushwork/pkg/geom"
	"github.com/deadsy/sdfx/sdf"
)

// Group is the value wrapped by a GroupNode: a name and the transformation
// accumulated by every transform applied to the group since its creation.
type Group struct {
	name           string
	transformation sdf.M44
}

// NewGroup returns a group with the identity transformation.
func NewGroup(name string) Group {
	return Group{name: name, transformation: geom.Identity()}
}

// Name returns the group's display name.
func (g Group) Name() string {
	return g.name
}

// SetName returns a copy of g with the given name.
func (g Group) SetName(name string) Group {
	g.name = name
	return g
}

// Transformation returns the accumulated transformation.
func (g Group) Transformation() sdf.M44 {
	return g.transformation
}

// Transform composes m onto the accumulated transformation, so that the
// result maps the group's original frame through every transform so far.
func (g *Group) Transform(m sdf.M44) {
	g.transformation = m.Mul(g.transformation)
}
