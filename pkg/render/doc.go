// Package render turns a vdom tree into an HTML string.
//
// Rendering is synchronous, stateless per call, and re-entrant: a component
// may invoke the renderer again for a subtree (the isomorphic driver does
// exactly that for deferred instances). Context values travel through the
// walk via vdom.Ctx, never through renderer state.
package render
