package manifest

import (
	lua "github.com/yuin/gopher-lua"
)

// manifestLibs are the only standard libraries a manifest can see. package,
// os, io, debug, coroutine and channel are never opened.
var manifestLibs = []struct {
	name string
	open lua.LGFunction
}{
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
}

// loaderGlobals are base functions that load code from outside the manifest.
var loaderGlobals = []string{"dofile", "loadfile", "load", "loadstring", "require", "module"}

// newSandboxedVM creates a Lua state for evaluating a manifest. Libraries
// are opened from an allowlist rather than stripped after a full open.
func newSandboxedVM() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range manifestLibs {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	for _, name := range loaderGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	L.SetGlobal("package", lua.LNil)
	return L
}
