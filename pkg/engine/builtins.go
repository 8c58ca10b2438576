package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/brushwork/pkg/geom"
	"github.com/chazu/brushwork/pkg/model"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites level script source before passing it to
// zygomys:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal), so
//     keywords never collide with user variables of the same name.
//
//  2. Kebab-case to underscore: link-duplicate -> link_duplicate, because
//     zygomys reads a hyphen inside an identifier as subtraction.
//
//  3. Line comments: ; and ;; become //, the zygomys comment syntax.
//
// String literals are left untouched.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		switch {
		case b[i] == '"':
			j := skipQuoted(b, i, '"', true)
			result = append(result, b[i:j]...)
			i = j
		case b[i] == '`':
			j := skipQuoted(b, i, '`', false)
			result = append(result, b[i:j]...)
			i = j
		case b[i] == ';':
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
		case b[i] == ':' && i+1 < len(b) && b[i+1] == '=':
			result = append(result, b[i], b[i+1])
			i += 2
		case b[i] == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			result = append(result, '"')
			result = append(result, kwPrefix...)
			result = append(result, b[i+1:j]...)
			result = append(result, '"')
			i = j
		case b[i] == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			result = append(result, '_')
			i++
		default:
			result = append(result, b[i])
			i++
		}
	}
	return string(result)
}

// skipQuoted returns the index just past the literal opened at b[start].
func skipQuoted(b []byte, start int, quote byte, escapes bool) int {
	i := start + 1
	for i < len(b) && b[i] != quote {
		if escapes && b[i] == '\\' && i+1 < len(b) {
			i++
		}
		i++
	}
	if i < len(b) {
		i++
	}
	return i
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a vector.
type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpNode wraps a scene node so it can be passed between builtins.
type sexpNode struct {
	node model.Node
}

func (n *sexpNode) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s %q)", n.node.Kind(), n.node.Name())
}
func (n *sexpNode) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	return strings.CutPrefix(str.S, kwPrefix)
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

func toNode(s zygo.Sexp) (model.Node, error) {
	if n, ok := s.(*sexpNode); ok {
		return n.node, nil
	}
	return nil, fmt.Errorf("expected node, got %T (%s)", s, s.SexpString(nil))
}

func toGroup(s zygo.Sexp) (*model.GroupNode, error) {
	n, err := toNode(s)
	if err != nil {
		return nil, err
	}
	g, ok := n.(*model.GroupNode)
	if !ok {
		return nil, fmt.Errorf("expected group, got %s", n.Kind())
	}
	return g, nil
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

func toStrings(s zygo.Sexp) ([]string, error) {
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, err
	}
	result := make([]string, 0, len(items))
	for _, item := range items {
		str, err := toString(item)
		if err != nil {
			return nil, err
		}
		result = append(result, str)
	}
	return result, nil
}

// addChildren attaches nodes to parent, refusing kinds parent cannot hold
// and nodes that already have a parent.
func addChildren(parent model.Node, args []zygo.Sexp) error {
	for i, arg := range args {
		child, err := toNode(arg)
		if err != nil {
			return fmt.Errorf("child %d: %w", i+1, err)
		}
		if !parent.CanAddChild(child) {
			return fmt.Errorf("child %d: %s cannot contain %s", i+1, parent.Kind(), child.Kind())
		}
		if child.Parent() != nil {
			return fmt.Errorf("child %d: %s %q already has a parent", i+1, child.Kind(), child.Name())
		}
		parent.AddChild(child)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the level script builtins into a zygomys
// environment. The builtins populate scene during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation
// so that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, scene *Scene, worldBounds sdf.Box3, lockTextures bool) {
	transform := func(n model.Node, m sdf.M44) error {
		return model.TransformNode(n, worldBounds, m, lockTextures, nil)
	}

	node := func(n model.Node) *sexpNode {
		scene.track(n)
		return &sexpNode{node: n}
	}

	builtins := map[string]zygo.ZlispUserFunction{
		// (vec3 1 2 3)
		"vec3": func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 3 {
				return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
			}
			var c [3]float64
			for i, arg := range args {
				f, err := toFloat64(arg)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
				}
				c[i] = f
			}
			return &sexpVec3{vec: v3.Vec{X: c[0], Y: c[1], Z: c[2]}}, nil
		},

		// (cuboid :min (vec3 0 0 0) :max (vec3 64 64 64) :texture "base")
		"cuboid": func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			var box sdf.Box3
			for _, kw := range []string{"min", "max"} {
				v, ok := pa.kw[kw]
				if !ok {
					return zygo.SexpNull, fmt.Errorf("cuboid: missing :%s", kw)
				}
				vec, err := toVec3(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("cuboid: %s: %w", kw, err)
				}
				if kw == "min" {
					box.Min = vec
				} else {
					box.Max = vec
				}
			}
			texture := "__TB_empty"
			if v, ok := pa.kw["texture"]; ok {
				s, err := toString(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("cuboid: texture: %w", err)
				}
				texture = s
			}
			brush, err := model.NewCuboid(box, texture)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("cuboid: %w", err)
			}
			return node(model.NewBrushNode(brush)), nil
		},

		// (entity :classname "light" :origin (vec3 0 0 32)
		//         :props (list "light" "300") :preserve (list "target") brush...)
		"entity": func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			entity := model.NewEntity()
			if v, ok := pa.kw["classname"]; ok {
				s, err := toString(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("entity: classname: %w", err)
				}
				entity.SetProperty(model.PropClassname, s)
			}
			if v, ok := pa.kw["origin"]; ok {
				vec, err := toVec3(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("entity: origin: %w", err)
				}
				entity.SetOrigin(vec)
			}
			if v, ok := pa.kw["props"]; ok {
				kv, err := toStrings(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("entity: props: %w", err)
				}
				if len(kv)%2 != 0 {
					return zygo.SexpNull, fmt.Errorf("entity: props: expected key/value pairs, got %d items", len(kv))
				}
				for i := 0; i < len(kv); i += 2 {
					entity.SetProperty(kv[i], kv[i+1])
				}
			}
			if v, ok := pa.kw["preserve"]; ok {
				keys, err := toStrings(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("entity: preserve: %w", err)
				}
				entity.SetPreservedProperties(keys)
			}
			n := model.NewEntityNode(entity)
			if err := addChildren(n, pa.positional); err != nil {
				return zygo.SexpNull, fmt.Errorf("entity: %w", err)
			}
			return node(n), nil
		},

		// (group "name" child...)
		"group": func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) < 1 {
				return zygo.SexpNull, fmt.Errorf("group requires a name argument")
			}
			groupName, err := toString(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("group: name: %w", err)
			}
			g := model.NewGroupNode(model.NewGroup(groupName))
			if err := scene.register(groupName, g); err != nil {
				g.Dispose()
				return zygo.SexpNull, fmt.Errorf("group: %w", err)
			}
			ref := node(g)
			if err := addChildren(g, args[1:]); err != nil {
				return zygo.SexpNull, fmt.Errorf("group %q: %w", groupName, err)
			}
			return ref, nil
		},

		// (layer "name" child...)
		"layer": func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) < 1 {
				return zygo.SexpNull, fmt.Errorf("layer requires a name argument")
			}
			layerName, err := toString(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("layer: name: %w", err)
			}
			l := model.NewLayerNode(layerName)
			if err := addChildren(l, args[1:]); err != nil {
				return zygo.SexpNull, fmt.Errorf("layer %q: %w", layerName, err)
			}
			scene.World.AddChild(l)
			return &sexpNode{node: l}, nil
		},

		// (translate ref (vec3 64 0 0))
		"translate": func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 2 {
				return zygo.SexpNull, fmt.Errorf("translate requires a node and a vec3")
			}
			n, err := toNode(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("translate: %w", err)
			}
			delta, err := toVec3(args[1])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("translate: %w", err)
			}
			if err := transform(n, geom.Translation(delta.X, delta.Y, delta.Z)); err != nil {
				return zygo.SexpNull, fmt.Errorf("translate: %w", err)
			}
			return args[0], nil
		},

		// (rotate ref :z 90)
		"rotate": func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			if len(pa.positional) != 1 {
				return zygo.SexpNull, fmt.Errorf("rotate requires a node")
			}
			n, err := toNode(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("rotate: %w", err)
			}
			var angles [3]float64
			for i, axis := range []string{"x", "y", "z"} {
				if v, ok := pa.kw[axis]; ok {
					f, err := toFloat64(v)
					if err != nil {
						return zygo.SexpNull, fmt.Errorf("rotate: %s: %w", axis, err)
					}
					angles[i] = f
				}
			}
			if err := transform(n, geom.Rotation(angles[0], angles[1], angles[2])); err != nil {
				return zygo.SexpNull, fmt.Errorf("rotate: %w", err)
			}
			return pa.positional[0], nil
		},

		// (link-duplicate ref "name")
		"link_duplicate": func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 2 {
				return zygo.SexpNull, fmt.Errorf("link-duplicate requires a group and a name")
			}
			g, err := toGroup(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("link-duplicate: %w", err)
			}
			copyName, err := toString(args[1])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("link-duplicate: name: %w", err)
			}
			clone := model.CloneRecursively(g, worldBounds).(*model.GroupNode)
			clone.SetGroup(clone.Group().SetName(copyName))
			g.AddToLinkSet(clone)
			ref := node(clone)
			if err := scene.register(copyName, clone); err != nil {
				return zygo.SexpNull, fmt.Errorf("link-duplicate: %w", err)
			}
			return ref, nil
		},

		// (link a b)
		"link": func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 2 {
				return zygo.SexpNull, fmt.Errorf("link requires two groups")
			}
			a, err := toGroup(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("link: %w", err)
			}
			b, err := toGroup(args[1])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("link: %w", err)
			}
			a.AddToLinkSet(b)
			return args[1], nil
		},
	}

	for name, fn := range builtins {
		env.AddFunction(name, fn)
	}
}
