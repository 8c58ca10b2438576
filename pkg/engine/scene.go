package engine

import (
	"fmt"

	"github.com/chazu/brushwork/pkg/model"
)

// Scene is the result of evaluating a level script: a world plus an index
// of the named groups created by the script.
type Scene struct {
	World *model.WorldNode

	groups  map[string]*model.GroupNode
	names   []string
	created []model.Node
}

func newScene() *Scene {
	return &Scene{
		World:  model.NewWorldNode(),
		groups: make(map[string]*model.GroupNode),
	}
}

// Group returns the group registered under name, or nil.
func (s *Scene) Group(name string) *model.GroupNode {
	return s.groups[name]
}

// GroupNames returns the registered group names in creation order.
func (s *Scene) GroupNames() []string {
	return append([]string(nil), s.names...)
}

// NodeCount returns the number of groups, entities and brushes in the world.
func (s *Scene) NodeCount() int {
	count := 0
	model.Walk(s.World, func(n model.Node) bool {
		switch n.(type) {
		case *model.GroupNode, *model.EntityNode, *model.BrushNode:
			count++
		case *model.WorldNode, *model.LayerNode:
		}
		return true
	})
	return count
}

func (s *Scene) register(name string, g *model.GroupNode) error {
	if _, ok := s.groups[name]; ok {
		return fmt.Errorf("duplicate group name %q", name)
	}
	s.groups[name] = g
	s.names = append(s.names, name)
	return nil
}

func (s *Scene) track(n model.Node) {
	s.created = append(s.created, n)
}

// placeOrphans moves every created node that never received a parent into
// the default layer, in creation order.
func (s *Scene) placeOrphans() {
	for _, n := range s.created {
		if n.Parent() == nil {
			s.World.DefaultLayer().AddChild(n)
		}
	}
	s.created = nil
}

// discard releases the link sets held by the scene's groups.
func (s *Scene) discard() {
	seen := make(map[*model.GroupNode]bool)
	release := func(n model.Node) bool {
		if g, ok := n.(*model.GroupNode); ok && !seen[g] {
			seen[g] = true
			g.Dispose()
		}
		return true
	}
	for _, n := range s.created {
		model.Walk(n, release)
	}
	model.Walk(s.World, release)
	s.created = nil
}
