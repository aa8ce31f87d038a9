// Package simulate drives sessions with scripted player models for offline
// tuning. A player model is a JavaScript file that defines react(spawn).
package simulate

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/MJE43/fairpace/internal/engine"
)

// LogEntry is one message logged by a player script.
type LogEntry struct {
	Seq     int    `json:"seq"`
	Message string `json:"message"`
}

// Reaction is the player's response to one spawn.
type Reaction struct {
	Hit        bool    `json:"hit"`
	ReactionMs float64 `json:"rt"`
}

// SpawnView is what a player script sees of a spawn.
type SpawnView struct {
	Seq        int     `json:"seq"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Mode       string  `json:"mode"`
	Stage      string  `json:"stage"`
	Phase      int     `json:"phase"`
	Progress   float64 `json:"progress"`
	LifetimeMs float64 `json:"lifetimeMs"`
	SizeMul    float64 `json:"sizeMul"`
	Distance   float64 `json:"distance"`
}

var errNoReact = errors.New("react() function is not defined")

const (
	scriptInitTimeout = 2 * time.Second
	scriptCallTimeout = 1 * time.Second
	maxLogs           = 500
)

// VM wraps a goja runtime with sandbox restrictions. Math.random and rand()
// draw from a seeded stream so runs replay exactly.
type VM struct {
	runtime *goja.Runtime
	rng     *engine.Source
	mu      sync.Mutex

	logs   []LogEntry
	logSeq int
}

// NewVM creates a sandboxed runtime whose randomness comes from rng.
func NewVM(rng *engine.Source) *VM {
	vm := &VM{runtime: goja.New(), rng: rng}
	vm.runtime.SetRandSource(rng.Next)
	vm.runtime.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	vm.injectGlobalFunctions()
	return vm
}

func (vm *VM) injectGlobalFunctions() {
	vm.runtime.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		vm.logSeq++
		if len(vm.logs) >= maxLogs {
			vm.logs = vm.logs[1:]
		}
		vm.logs = append(vm.logs, LogEntry{Seq: vm.logSeq, Message: strings.Join(parts, " ")})
		return goja.Undefined()
	})

	console := vm.runtime.NewObject()
	console.Set("log", vm.runtime.Get("log"))
	vm.runtime.Set("console", console)

	// rand(lo, hi) draws uniformly from [lo, hi); rand() from [0, 1).
	vm.runtime.Set("rand", func(call goja.FunctionCall) goja.Value {
		lo, hi := 0.0, 1.0
		if len(call.Arguments) >= 2 {
			lo, hi = call.Arguments[0].ToFloat(), call.Arguments[1].ToFloat()
		}
		return vm.runtime.ToValue(vm.rng.Range(lo, hi))
	})

	vm.runtime.Set("require", goja.Undefined())
	vm.runtime.Set("fetch", goja.Undefined())
	vm.runtime.Set("XMLHttpRequest", goja.Undefined())
	vm.runtime.Set("eval", goja.Undefined())
	vm.runtime.Set("Function", goja.Undefined())
}

// Execute runs the player script once to register react().
func (vm *VM) Execute(source string) error {
	return vm.runWithTimeout(scriptInitTimeout, func() error {
		vm.mu.Lock()
		defer vm.mu.Unlock()
		if _, err := vm.runtime.RunString(source); err != nil {
			return fmt.Errorf("script execution error: %w", err)
		}
		if _, ok := goja.AssertFunction(vm.runtime.Get("react")); !ok {
			return errNoReact
		}
		return nil
	})
}

// React calls react(spawn) and decodes its {hit, rt} result.
func (vm *VM) React(sp SpawnView) (Reaction, error) {
	var out Reaction
	err := vm.runWithTimeout(scriptCallTimeout, func() error {
		vm.mu.Lock()
		defer vm.mu.Unlock()

		fn, ok := goja.AssertFunction(vm.runtime.Get("react"))
		if !ok {
			return errNoReact
		}
		res, err := fn(goja.Undefined(), vm.runtime.ToValue(sp))
		if err != nil {
			return fmt.Errorf("react() error: %w", err)
		}
		out, err = vm.decode(res)
		return err
	})
	return out, err
}

func (vm *VM) decode(v goja.Value) (Reaction, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return Reaction{}, fmt.Errorf("react() must return {hit, rt}")
	}
	obj := v.ToObject(vm.runtime)
	r := Reaction{Hit: truthy(obj.Get("hit"))}
	if rt := obj.Get("rt"); rt != nil && !goja.IsUndefined(rt) && !goja.IsNull(rt) {
		r.ReactionMs = rt.ToFloat()
	}
	if r.Hit && (math.IsNaN(r.ReactionMs) || math.IsInf(r.ReactionMs, 0) || r.ReactionMs < 0) {
		return Reaction{}, fmt.Errorf("react() returned a hit with invalid rt %v", r.ReactionMs)
	}
	return r, nil
}

func truthy(v goja.Value) bool {
	return v != nil && !goja.IsUndefined(v) && v.ToBoolean()
}

// Logs returns a copy of the log buffer.
func (vm *VM) Logs() []LogEntry {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	out := make([]LogEntry, len(vm.logs))
	copy(out, vm.logs)
	return out
}

func (vm *VM) runWithTimeout(timeout time.Duration, fn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		vm.runtime.Interrupt("script execution timeout")
		select {
		case err := <-done:
			vm.runtime.ClearInterrupt()
			if err != nil {
				return fmt.Errorf("script timed out: %w", err)
			}
			return fmt.Errorf("script timed out")
		case <-time.After(200 * time.Millisecond):
			return fmt.Errorf("script timed out")
		}
	}
}
