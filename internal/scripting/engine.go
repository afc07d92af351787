package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gitbgo/server/internal/core/entity"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// DefaultKind is used when no script decides what to spawn.
const DefaultKind = "target"

// Engine wraps a single gopher-lua VM holding the per-game hooks.
// Region workers call into it concurrently, so every VM access holds mu.
type Engine struct {
	mu  sync.Mutex
	vm  *lua.LState
	log *zap.Logger
}

// Spec describes the entity a game wants at a location.
type Spec struct {
	Kind string
	Name string
}

// NewEngine creates a Lua engine and loads every script in dir. A missing
// directory is not an error: all hooks then use their defaults.
func NewEngine(dir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	if err := e.loadDir(dir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// DoString runs a chunk of Lua in the engine, for inline hooks and tests.
func (e *Engine) DoString(src string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vm.DoString(src)
}

// EntitySpec asks create_entity(game, loc) what to spawn. A nil return from
// the script means nothing should be spawned. Without the function every
// game spawns DefaultKind named after the game.
func (e *Engine) EntitySpec(game string, loc entity.Location) (Spec, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fallback := Spec{Kind: DefaultKind, Name: game}
	fn := e.vm.GetGlobal("create_entity")
	if fn == lua.LNil {
		return fallback, true
	}

	lt := e.vm.NewTable()
	lt.RawSetString("world", lua.LString(loc.World))
	lt.RawSetString("x", lua.LNumber(loc.X))
	lt.RawSetString("y", lua.LNumber(loc.Y))
	lt.RawSetString("z", lua.LNumber(loc.Z))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LString(game), lt); err != nil {
		e.log.Error("lua create_entity error", zap.String("game", game), zap.Error(err))
		return Spec{}, false
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	switch rt := result.(type) {
	case *lua.LNilType:
		return Spec{}, false
	case lua.LString:
		return Spec{Kind: string(rt), Name: game}, true
	case *lua.LTable:
		spec := Spec{Kind: lStr(rt, "kind"), Name: lStr(rt, "name")}
		if spec.Kind == "" {
			spec.Kind = fallback.Kind
		}
		if spec.Name == "" {
			spec.Name = fallback.Name
		}
		return spec, true
	}
	e.log.Error("lua create_entity returned unexpected type",
		zap.String("game", game), zap.String("type", result.Type().String()))
	return Spec{}, false
}

// HitPoints asks hit_points(game, kind) how many points hitting an entity
// of that kind is worth. ok is false when the hook is absent or failed.
func (e *Engine) HitPoints(game, kind string) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn := e.vm.GetGlobal("hit_points")
	if fn == lua.LNil {
		return 0, false
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LString(game), lua.LString(kind)); err != nil {
		e.log.Error("lua hit_points error", zap.String("game", game), zap.Error(err))
		return 0, false
	}
	ret := e.vm.Get(-1)
	e.vm.Pop(1)
	n, ok := ret.(lua.LNumber)
	if !ok {
		return 0, false
	}
	return int(n), true
}

func lStr(t *lua.LTable, key string) string {
	if v, ok := t.RawGetString(key).(lua.LString); ok {
		return string(v)
	}
	return ""
}

func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vm.Close()
}
