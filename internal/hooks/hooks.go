package hooks

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// Hook function names looked up in the loaded scripts.
const (
	RenderTodoItem      = "renderTodoItem"
	RenderCompletedItem = "renderCompletedItem"
	SeedTags            = "seedTags"
)

var known = []string{RenderTodoItem, RenderCompletedItem, SeedTags}

// HookEnv is a JS runtime holding user hook functions. goja runtimes are not
// safe for concurrent use, so every call is serialized.
type HookEnv struct {
	mu  sync.Mutex
	rt  *goja.Runtime
	log *zap.Logger
}

// LoadDir evaluates every *.js file in dir (sorted by name). A missing dir
// yields an empty environment; a broken file is logged and skipped.
func LoadDir(dir string, log *zap.Logger) (*HookEnv, error) {
	if log == nil {
		log = zap.NewNop()
	}
	env := &HookEnv{rt: goja.New(), log: log.Named("hooks")}
	// expose minimal FS read helper
	env.rt.Set("readText", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			return goja.Undefined()
		}
		b, err := os.ReadFile(call.Arguments[0].String())
		if err != nil {
			return goja.Null()
		}
		return env.rt.ToValue(string(b))
	})
	if dir == "" {
		return env, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return env, nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".js" {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		if _, err := env.rt.RunString(stripExports(string(b))); err != nil {
			env.log.Warn("error evaluating hook file", zap.String("file", e.Name()), zap.Error(err))
		} else {
			env.log.Debug("loaded hook file", zap.String("file", e.Name()))
		}
	}
	for _, name := range env.Available() {
		env.log.Debug("function available", zap.String("name", name))
	}
	return env, nil
}

// strip simple ESM exports
func stripExports(code string) string {
	r := strings.NewReplacer(
		"export function ", "function ",
		"export const ", "const ",
		"export let ", "let ",
		"export var ", "var ",
	)
	return r.Replace(code)
}

// Available lists the known hook functions the scripts define.
func (h *HookEnv) Available() []string {
	if h == nil || h.rt == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, name := range known {
		v := h.rt.Get(name)
		if v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
			out = append(out, name)
		}
	}
	return out
}

// Has reports whether fn is defined.
func (h *HookEnv) Has(fn string) bool {
	for _, name := range h.Available() {
		if name == fn {
			return true
		}
	}
	return false
}

func (h *HookEnv) Call(fn string, arg any) (goja.Value, bool) {
	if h == nil || h.rt == nil {
		return goja.Undefined(), false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	v := h.rt.Get(fn)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return goja.Undefined(), false
	}
	f, ok := goja.AssertFunction(v)
	if !ok {
		h.log.Debug("symbol is not a function", zap.String("name", fn))
		return goja.Undefined(), false
	}
	rv, err := f(goja.Undefined(), h.rt.ToValue(arg))
	if err != nil {
		h.log.Warn("hook call failed", zap.String("name", fn), zap.Error(err))
		return goja.Undefined(), false
	}
	if goja.IsUndefined(rv) || goja.IsNull(rv) {
		return rv, false
	}
	return rv, true
}

func (h *HookEnv) CallString(fn string, arg any) (string, bool) {
	if rv, ok := h.Call(fn, arg); ok {
		return rv.String(), true
	}
	return "", false
}

func (h *HookEnv) CallExported(fn string, arg any) (any, bool) {
	if rv, ok := h.Call(fn, arg); ok {
		return rv.Export(), true
	}
	return nil, false
}

func (h *HookEnv) CallStringSlice(fn string, arg any) ([]string, bool) {
	exp, ok := h.CallExported(fn, arg)
	if !ok {
		return nil, false
	}
	arr, ok := exp.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out, true
}
