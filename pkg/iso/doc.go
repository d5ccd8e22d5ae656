// Package iso implements the isomorphic data/render coordination core:
// descriptors for components whose state comes from a push-based data
// stream, the per-pass stream registry that deduplicates fetches, the
// produce-and-race wrapper state machine, the connect bridge, and the
// marker format that carries hydration state across the server/client
// boundary.
//
// The server and hydration drivers live in pkg/ssr and pkg/hydrate; this
// package defines the environment contracts they implement.
package iso
