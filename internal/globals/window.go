// Package globals provides the placeholder browser/Node globals that let
// presence checks such as `typeof window !== "undefined"` succeed.
package globals

import (
	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/buffer"
	"github.com/dop251/goja_nodejs/process"
	"github.com/dop251/goja_nodejs/require"
)

// ModuleName is the host module polyfill files import the stub from.
const ModuleName = "nodeshim:globals"

// LocalAddress is the canned address every location field points at.
const LocalAddress = "http://localhost/"

// UserAgent is the placeholder navigator.userAgent.
const UserAgent = "Mozilla/5.0 (compatible; nodeshim)"

// Location mirrors the fields of window.location that libraries read.
type Location struct {
	Href     string
	Origin   string
	Protocol string
	Host     string
	Hostname string
	Port     string
	Pathname string
	Search   string
	Hash     string
}

// Window is the declarative window stand-in.
type Window struct {
	Location  Location
	UserAgent string
}

// Default returns the stub pointing at LocalAddress.
func Default() Window {
	return Window{
		Location: Location{
			Href:     LocalAddress,
			Origin:   "http://localhost",
			Protocol: "http:",
			Host:     "localhost",
			Hostname: "localhost",
			Pathname: "/",
		},
		UserAgent: UserAgent,
	}
}

// Object builds the JavaScript window object. Buffer and process are passed
// through from the runtime's globals when they are defined.
func (w Window) Object(rt *goja.Runtime) *goja.Object {
	location := rt.NewObject()
	_ = location.Set("href", w.Location.Href)
	_ = location.Set("origin", w.Location.Origin)
	_ = location.Set("protocol", w.Location.Protocol)
	_ = location.Set("host", w.Location.Host)
	_ = location.Set("hostname", w.Location.Hostname)
	_ = location.Set("port", w.Location.Port)
	_ = location.Set("pathname", w.Location.Pathname)
	_ = location.Set("search", w.Location.Search)
	_ = location.Set("hash", w.Location.Hash)
	_ = location.Set("toString", func() string { return w.Location.Href })

	navigator := rt.NewObject()
	_ = navigator.Set("userAgent", w.UserAgent)

	win := rt.NewObject()
	_ = win.Set("location", location)
	_ = win.Set("navigator", navigator)
	for _, name := range []string{"Buffer", "process"} {
		if v := rt.Get(name); v != nil && !goja.IsUndefined(v) {
			_ = win.Set(name, v)
		}
	}
	return win
}

// Loader returns a require.ModuleLoader exporting `window` built from w.
func (w Window) Loader() require.ModuleLoader {
	return func(rt *goja.Runtime, module *goja.Object) {
		exports := module.Get("exports").(*goja.Object)
		_ = exports.Set("window", w.Object(rt))
	}
}

// Install defines Buffer, process and window as globals on rt, for scripts
// that run unbundled. The require registry must already be enabled on rt.
func Install(rt *goja.Runtime, w Window) {
	buffer.Enable(rt)
	process.Enable(rt)
	_ = rt.Set("window", w.Object(rt))
	_ = rt.Set("global", rt.GlobalObject())
}
