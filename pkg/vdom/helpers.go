package vdom

import "fmt"

// El creates an element node with the given tag, props, and children.
func El(tag string, props Props, children ...*VNode) *VNode {
	return &VNode{
		Kind:     KindElement,
		Tag:      tag,
		Props:    props,
		Children: children,
	}
}

// Text creates a text node. The text is HTML-escaped at render time.
func Text(text string) *VNode {
	return &VNode{Kind: KindText, Text: text}
}

// Textf creates a text node from a format string.
func Textf(format string, args ...any) *VNode {
	return Text(fmt.Sprintf(format, args...))
}

// Raw creates a raw HTML node. The content is NOT escaped; never pass
// untrusted input.
func Raw(html string) *VNode {
	return &VNode{Kind: KindRaw, Text: html}
}

// Fragment groups children without a wrapper element.
func Fragment(children ...*VNode) *VNode {
	return &VNode{Kind: KindFragment, Children: children}
}

// Common element shorthands.

func Div(props Props, children ...*VNode) *VNode  { return El("div", props, children...) }
func Span(props Props, children ...*VNode) *VNode { return El("span", props, children...) }
func P(props Props, children ...*VNode) *VNode    { return El("p", props, children...) }
func A(props Props, children ...*VNode) *VNode    { return El("a", props, children...) }
func Ul(props Props, children ...*VNode) *VNode   { return El("ul", props, children...) }
func Li(props Props, children ...*VNode) *VNode   { return El("li", props, children...) }
func H1(props Props, children ...*VNode) *VNode   { return El("h1", props, children...) }
func H2(props Props, children ...*VNode) *VNode   { return El("h2", props, children...) }
func Img(props Props) *VNode                      { return El("img", props) }
func Section(props Props, children ...*VNode) *VNode {
	return El("section", props, children...)
}
