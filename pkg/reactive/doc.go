// Package reactive provides the push-based stream primitive the isomorphic
// coordination core orchestrates: a generic Stream with map/merge/first/
// timed-error combinators, a current-value-bearing Property, and a Future
// that converts a stream's first resolution into an awaitable while
// remembering whether it settled within the current synchronous turn.
package reactive
