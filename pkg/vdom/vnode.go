package vdom

// VKind is the node type discriminator.
type VKind uint8

const (
	KindElement   VKind = iota // <div>, <button>, etc.
	KindText                   // Plain text node
	KindFragment               // Grouping without wrapper
	KindComponent              // Nested component
	KindProvider               // Context value scoped to a subtree
	KindRaw                    // Raw HTML (dangerous)
)

// String returns the string representation of the VKind.
func (k VKind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindFragment:
		return "Fragment"
	case KindComponent:
		return "Component"
	case KindProvider:
		return "Provider"
	case KindRaw:
		return "Raw"
	default:
		return "Unknown"
	}
}

// VNode is the virtual DOM node.
type VNode struct {
	Kind     VKind     // Node type
	Tag      string    // Element tag name (e.g., "div")
	Props    Props     // Attributes
	Children []*VNode  // Child nodes
	Key      string    // Reconciliation key
	Text     string    // For KindText and KindRaw
	Comp     Component // For KindComponent
	CtxKey   any       // For KindProvider
	CtxVal   any       // For KindProvider
}

// Props holds attributes and arbitrary component inputs.
type Props map[string]any

// Clone returns a shallow copy of the props map.
func (p Props) Clone() Props {
	if p == nil {
		return nil
	}
	out := make(Props, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Merge returns a new Props with entries from over taking precedence
// over entries in p on key collision.
func (p Props) Merge(over Props) Props {
	out := make(Props, len(p)+len(over))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// Component is anything that can render to a VNode given a render context.
type Component interface {
	Render(ctx Ctx) *VNode
}

// FuncComponent wraps a render function.
type FuncComponent struct {
	render func(ctx Ctx) *VNode
}

// Render implements Component.
func (f *FuncComponent) Render(ctx Ctx) *VNode {
	return f.render(ctx)
}

// Func creates a component from a render function.
func Func(render func(ctx Ctx) *VNode) Component {
	return &FuncComponent{render: render}
}

// Comp wraps a component into a VNode for inclusion in a tree.
func Comp(c Component) *VNode {
	return &VNode{Kind: KindComponent, Comp: c}
}

// Provide returns a provider node that makes value available under key to
// every descendant's Ctx. Siblings of the provider do not see the value.
func Provide(key, value any, children ...*VNode) *VNode {
	return &VNode{
		Kind:     KindProvider,
		CtxKey:   key,
		CtxVal:   value,
		Children: children,
	}
}
