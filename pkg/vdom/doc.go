// Package vdom provides the virtual node tree consumed by the renderer.
//
// A VNode tree is built once per render and walked synchronously. Components
// render with an explicit Ctx parameter; ambient values (render mode, channel
// state) are provided to a subtree with Provide and read back with Ctx.Value.
package vdom
