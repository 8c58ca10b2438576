package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/chazu/brushwork/pkg/config"
	"github.com/chazu/brushwork/pkg/document"
	"github.com/chazu/brushwork/pkg/engine"
	"github.com/chazu/brushwork/pkg/model"
	"github.com/golang/glog"
)

// App runs level scripts and linked group updates for the command line.
type App struct {
	cfg    config.Config
	engine *engine.Engine
}

// NodeData is the JSON-serializable form of a scene node.
type NodeData struct {
	Kind         string     `json:"kind"`
	Name         string     `json:"name"`
	LinkID       string     `json:"linkId,omitempty"`
	PersistentID uint64     `json:"persistentId,omitempty"`
	Min          [3]float64 `json:"min"`
	Max          [3]float64 `json:"max"`
	Children     []NodeData `json:"children,omitempty"`
}

// EvalErrorData is a JSON-serializable eval error.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result of an App call: the world's layers, or the
// errors that prevented building them.
type EvalResult struct {
	Layers []NodeData      `json:"layers"`
	Errors []EvalErrorData `json:"errors"`
}

// NewApp creates an App with an engine configured from cfg.
func NewApp(cfg config.Config) *App {
	return &App{
		cfg: cfg,
		engine: engine.NewEngine(
			engine.WithTimeout(cfg.EvalTimeout()),
			engine.WithWorldBounds(cfg.WorldBounds()),
			engine.WithLockTextures(cfg.Edit.LockTextures),
		),
	}
}

// Evaluate takes level script source and returns the resulting scene tree.
func (a *App) Evaluate(source string) EvalResult {
	result := newEvalResult()
	scene, ok := a.evaluate(source, &result)
	if !ok {
		return result
	}
	d := document.NewWithWorld(scene.World, a.cfg.WorldBounds())
	result.Layers = layerData(d.World())
	return result
}

// Update evaluates source, then propagates the named group's contents to the
// other members of its link set.
func (a *App) Update(source, groupName string) EvalResult {
	result := newEvalResult()
	scene, ok := a.evaluate(source, &result)
	if !ok {
		return result
	}

	g := scene.Group(groupName)
	if g == nil {
		result.Errors = append(result.Errors, EvalErrorData{
			Message: fmt.Sprintf("no group named %q", groupName),
		})
		return result
	}

	d := document.NewWithWorld(scene.World, a.cfg.WorldBounds())
	d.SetLockTextures(a.cfg.Edit.LockTextures)
	if err := d.UpdateLinkedGroups(g); err != nil {
		glog.V(1).Infof("update of %q failed: %v", groupName, err)
		result.Errors = append(result.Errors, EvalErrorData{
			Message: "update failed: " + err.Error(),
		})
		return result
	}

	result.Layers = layerData(d.World())
	return result
}

func newEvalResult() EvalResult {
	return EvalResult{
		Layers: []NodeData{},
		Errors: []EvalErrorData{},
	}
}

// evaluate runs the engine and records any failure in result.
func (a *App) evaluate(source string, result *EvalResult) (*engine.Scene, bool) {
	scene, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		glog.Errorf("evaluate fatal error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return nil, false
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return nil, false
	}
	return scene, true
}

func layerData(w *model.WorldNode) []NodeData {
	layers := []NodeData{}
	for _, l := range w.Layers() {
		layers = append(layers, nodeData(l))
	}
	return layers
}

func nodeData(n model.Node) NodeData {
	b := n.LogicalBounds()
	data := NodeData{
		Kind: n.Kind().String(),
		Name: n.Name(),
		Min:  [3]float64{b.Min.X, b.Min.Y, b.Min.Z},
		Max:  [3]float64{b.Max.X, b.Max.Y, b.Max.Z},
	}
	switch v := n.(type) {
	case *model.GroupNode:
		data.LinkID = v.LinkID()
		if id, ok := v.PersistentID(); ok {
			data.PersistentID = uint64(id)
		}
	case *model.LayerNode:
		if id, ok := v.PersistentID(); ok {
			data.PersistentID = uint64(id)
		}
	case *model.WorldNode, *model.EntityNode, *model.BrushNode:
	}
	for _, c := range n.Children() {
		data.Children = append(data.Children, nodeData(c))
	}
	return data
}

// WriteTree prints the layers as an indented tree, or the errors if there
// are any.
func (r EvalResult) WriteTree(w io.Writer) error {
	for _, e := range r.Errors {
		if e.Line > 0 {
			if _, err := fmt.Fprintf(w, "error: line %d: %s\n", e.Line, e.Message); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, "error: %s\n", e.Message); err != nil {
			return err
		}
	}
	for _, l := range r.Layers {
		if err := writeNode(w, l, 0); err != nil {
			return err
		}
	}
	return nil
}

func writeNode(w io.Writer, n NodeData, depth int) error {
	var sb strings.Builder
	sb.WriteString(strings.Repeat("  ", depth))
	fmt.Fprintf(&sb, "%s %q", n.Kind, n.Name)
	if n.PersistentID != 0 {
		fmt.Fprintf(&sb, " id=%d", n.PersistentID)
	}
	if n.LinkID != "" {
		fmt.Fprintf(&sb, " link=%s", n.LinkID)
	}
	if n.Kind != model.KindLayer.String() {
		fmt.Fprintf(&sb, " [%g %g %g]..[%g %g %g]",
			n.Min[0], n.Min[1], n.Min[2], n.Max[0], n.Max[1], n.Max[2])
	}
	sb.WriteByte('\n')
	if _, err := io.WriteString(w, sb.String()); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := writeNode(w, c, depth+1); err != nil {
			return err
		}
	}
	return nil
}
