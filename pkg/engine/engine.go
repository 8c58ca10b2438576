// Package engine provides the level script engine for brushwork.
// It wraps zygomys in a sandboxed environment and builds a scene graph of
// layers, groups, entities and brushes from user source code.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/brushwork/pkg/geom"
	"github.com/deadsy/sdfx/sdf"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/golang/glog"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine wraps the zygomys interpreter for level scripts.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64

	timeout      time.Duration
	worldBounds  sdf.Box3
	lockTextures bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout sets the hard limit for a single evaluation.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithWorldBounds sets the world box used when scripts transform brushes.
func WithWorldBounds(b sdf.Box3) Option {
	return func(e *Engine) { e.worldBounds = b }
}

// WithLockTextures controls whether script transforms keep brush textures
// aligned. It is on by default.
func WithLockTextures(lock bool) Option {
	return func(e *Engine) { e.lockTextures = lock }
}

// NewEngine creates a new Engine instance.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		timeout:      DefaultEvalTimeout,
		worldBounds:  geom.WorldBounds(geom.DefaultWorldSize),
		lockTextures: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WorldBounds returns the world box scripts are evaluated against.
func (e *Engine) WorldBounds() sdf.Box3 {
	return e.worldBounds
}

// Evaluate takes level script source and produces a new Scene.
// Each call creates a fresh zygomys sandbox for deterministic evaluation.
//
// Return semantics:
//   - On success: returns scene + nil errors + nil error
//   - On parse/eval failure: returns nil scene + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*Scene, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		s, evalErrs, err := e.evaluate(source)
		ch <- evalResult{scene: s, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, &e.mu, &e.generation, e.timeout)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*Scene, []EvalError, error) {
	scene := newScene()

	// Empty source is a valid program that produces an empty scene.
	if strings.TrimSpace(source) == "" {
		return scene, nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	registerBuiltins(env, scene, e.worldBounds, e.lockTextures)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		scene.discard()
		return nil, parseZygomysError(err), nil
	}

	if _, err := env.Run(); err != nil {
		scene.discard()
		return nil, parseZygomysError(err), nil
	}

	scene.placeOrphans()
	glog.V(2).Infof("script evaluated: %d nodes, %d groups", scene.NodeCount(), len(scene.GroupNames()))
	return scene, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, p := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := p.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
