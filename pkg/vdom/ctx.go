package vdom

// Ctx carries ambient values down the render tree. It is an explicit
// parameter on Component.Render rather than hidden global state, so the
// renderer can be called recursively and re-entrantly with independent
// value chains.
type Ctx interface {
	// Value returns the value associated with key in this context chain,
	// or nil if no enclosing provider supplied one.
	Value(key any) any
}

type emptyCtx struct{}

func (emptyCtx) Value(any) any { return nil }

// Background returns an empty render context.
func Background() Ctx { return emptyCtx{} }

type valueCtx struct {
	parent Ctx
	key    any
	val    any
}

func (c *valueCtx) Value(key any) any {
	if c.key == key {
		return c.val
	}
	return c.parent.Value(key)
}

// WithValue returns a child context carrying val under key.
func WithValue(parent Ctx, key, val any) Ctx {
	if parent == nil {
		parent = Background()
	}
	return &valueCtx{parent: parent, key: key, val: val}
}
