package model

import (
	"slices"
	"strings"

	"github.com/chazu/brushwork/pkg/geom"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/samber/lo"
)

// PointEntityHalfSize is the half-extent of the box used as the bounds of an
// entity that contains no brushes.
const PointEntityHalfSize = 8.0

// Well-known property keys.
const (
	PropClassname = "classname"
	PropOrigin    = "origin"
)

// EntityProperty is a single key/value pair of an entity.
type EntityProperty struct {
	Key   string
	Value string
}

// Entity is the value wrapped by an EntityNode: ordered properties, an
// origin and the list of property keys that linked group updates must not
// overwrite.
type Entity struct {
	properties          []EntityProperty
	preservedProperties []string
	origin              v3.Vec
}

// NewEntity returns an entity with the given properties at the origin.
func NewEntity(props ...EntityProperty) Entity {
	return Entity{properties: slices.Clone(props)}
}

// Properties returns a copy of the entity's properties.
func (e Entity) Properties() []EntityProperty {
	return slices.Clone(e.properties)
}

// SetProperties replaces all properties.
func (e *Entity) SetProperties(props []EntityProperty) {
	e.properties = slices.Clone(props)
}

// Property returns the value of key.
func (e Entity) Property(key string) (string, bool) {
	p, ok := lo.Find(e.properties, func(p EntityProperty) bool { return p.Key == key })
	return p.Value, ok
}

// SetProperty adds key or replaces its value.
func (e *Entity) SetProperty(key, value string) {
	for i := range e.properties {
		if e.properties[i].Key == key {
			e.properties = slices.Clone(e.properties)
			e.properties[i].Value = value
			return
		}
	}
	e.properties = append(slices.Clone(e.properties), EntityProperty{Key: key, Value: value})
}

// RemoveProperty deletes key if present.
func (e *Entity) RemoveProperty(key string) {
	e.properties = lo.Reject(e.properties, func(p EntityProperty, _ int) bool { return p.Key == key })
}

// Classname returns the value of the classname property.
func (e Entity) Classname() string {
	v, _ := e.Property(PropClassname)
	return v
}

// PreservedProperties returns the keys kept when linked groups are updated.
func (e Entity) PreservedProperties() []string {
	return slices.Clone(e.preservedProperties)
}

// SetPreservedProperties replaces the preserved key list.
func (e *Entity) SetPreservedProperties(keys []string) {
	e.preservedProperties = slices.Clone(keys)
}

// Origin returns the entity's position.
func (e Entity) Origin() v3.Vec {
	return e.origin
}

// SetOrigin moves the entity to origin.
func (e *Entity) SetOrigin(origin v3.Vec) {
	e.origin = origin
}

// Transform maps the entity's origin by m.
func (e *Entity) Transform(m sdf.M44) {
	e.origin = m.MulPosition(e.origin)
}

// Equal reports whether e and other have the same properties, preserved
// keys and origin.
func (e Entity) Equal(other Entity) bool {
	return slices.Equal(e.properties, other.properties) &&
		slices.Equal(e.preservedProperties, other.preservedProperties) &&
		e.origin == other.origin
}

// isPreserved reports whether key is covered by one of the preserved keys.
// A preserved key also covers its numbered variants, so "target" covers
// "target1" and "target2".
func isPreserved(key string, preserved []string) bool {
	for _, p := range preserved {
		if key == p {
			return true
		}
		if rest, ok := strings.CutPrefix(key, p); ok && rest != "" && isDigits(rest) {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// mergePreservedProperties returns the entity to place in a linked group
// replacing target. Keys preserved by either entity keep target's value (or
// stay absent); all other keys are taken from source.
func mergePreservedProperties(source, target Entity) Entity {
	preserved := lo.Union(source.preservedProperties, target.preservedProperties)

	result := source
	result.properties = nil
	for _, p := range source.properties {
		if !isPreserved(p.Key, preserved) {
			result.properties = append(result.properties, p)
		}
	}
	for _, p := range target.properties {
		if isPreserved(p.Key, preserved) {
			result.properties = append(result.properties, p)
		}
	}
	result.preservedProperties = slices.Clone(target.preservedProperties)
	return result
}

// EntityNode wraps an Entity. A point entity has no children; a brush
// entity contains brushes.
type EntityNode struct {
	nodeBase

	entity Entity
}

// NewEntityNode returns a node wrapping entity.
func NewEntityNode(entity Entity) *EntityNode {
	n := &EntityNode{entity: entity}
	n.init(n)
	return n
}

// Entity returns the wrapped entity.
func (n *EntityNode) Entity() Entity {
	return n.entity
}

// SetEntity replaces the wrapped entity and returns the previous one.
func (n *EntityNode) SetEntity(entity Entity) Entity {
	oldBounds := n.PhysicalBounds()
	old := n.entity
	n.entity = entity
	if n.PhysicalBounds() != oldBounds {
		n.nodePhysicalBoundsDidChange()
	}
	return old
}

func (n *EntityNode) Name() string {
	if c := n.entity.Classname(); c != "" {
		return c
	}
	return "entity"
}

func (n *EntityNode) Kind() NodeKind { return KindEntity }

// LogicalBounds is the union of the brushes for a brush entity and a fixed
// size cube around the origin for a point entity.
func (n *EntityNode) LogicalBounds() sdf.Box3 {
	if len(n.children) == 0 {
		return geom.CubeAround(n.entity.origin, PointEntityHalfSize)
	}
	return childrenBounds(n.children, logicalBoundsOf)
}

func (n *EntityNode) PhysicalBounds() sdf.Box3 {
	if len(n.children) == 0 {
		return geom.CubeAround(n.entity.origin, PointEntityHalfSize)
	}
	return childrenBounds(n.children, physicalBoundsOf)
}

func (n *EntityNode) Clone(sdf.Box3) Node {
	return NewEntityNode(n.entity)
}

func (n *EntityNode) CanAddChild(child Node) bool {
	switch child.(type) {
	case *BrushNode:
		return true
	case *WorldNode, *LayerNode, *GroupNode, *EntityNode:
		return false
	}
	return false
}

func (n *EntityNode) CanRemoveChild(Node) bool { return true }
func (n *EntityNode) RemoveIfEmpty() bool      { return false }

func (n *EntityNode) childWasAdded(Node)           { n.nodePhysicalBoundsDidChange() }
func (n *EntityNode) childWasRemoved(Node)         { n.nodePhysicalBoundsDidChange() }
func (n *EntityNode) childPhysicalBoundsDidChange() { n.nodePhysicalBoundsDidChange() }
