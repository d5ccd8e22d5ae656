package iso

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isokit/isokit/pkg/vdom"
)

func TestDeriveKeyStableAcrossInsertionOrder(t *testing.T) {
	a := vdom.Props{"user": "ada", "page": 2, "tab": "posts"}
	b := vdom.Props{"tab": "posts", "page": 2, "user": "ada"}

	ka, err := DeriveKey("feed", a)
	require.NoError(t, err)
	kb, err := DeriveKey("feed", b)
	require.NoError(t, err)

	assert.Equal(t, ka, kb)
}

func TestDeriveKeyDiffersByName(t *testing.T) {
	props := vdom.Props{"user": "ada"}

	ka, err := DeriveKey("feed", props)
	require.NoError(t, err)
	kb, err := DeriveKey("profile", props)
	require.NoError(t, err)

	assert.NotEqual(t, ka, kb)
}

func TestDeriveKeyDiffersByProps(t *testing.T) {
	ka, err := DeriveKey("feed", vdom.Props{"user": "ada"})
	require.NoError(t, err)
	kb, err := DeriveKey("feed", vdom.Props{"user": "grace"})
	require.NoError(t, err)

	assert.NotEqual(t, ka, kb)
}

func TestDeriveKeyIgnoresPlumbingProps(t *testing.T) {
	bare := vdom.Props{"user": "ada"}
	noisy := vdom.Props{
		"user":     "ada",
		"children": []*vdom.VNode{vdom.Text("child")},
		"header":   vdom.Div(nil),
		"onClick":  func() {},
	}

	ka, err := DeriveKey("feed", bare)
	require.NoError(t, err)
	kb, err := DeriveKey("feed", noisy)
	require.NoError(t, err)

	assert.Equal(t, ka, kb, "children, nodes, and funcs must not affect the key")
}

type selectHandler func(string)

func TestDeriveKeyIgnoresNamedFuncTypes(t *testing.T) {
	bare := vdom.Props{"user": "ada"}
	noisy := vdom.Props{
		"user":     "ada",
		"onSelect": selectHandler(func(string) {}),
	}

	ka, err := DeriveKey("feed", bare)
	require.NoError(t, err)
	kb, err := DeriveKey("feed", noisy)
	require.NoError(t, err)

	assert.Equal(t, ka, kb)
}

func TestDeriveKeyNilProps(t *testing.T) {
	ka, err := DeriveKey("feed", nil)
	require.NoError(t, err)
	kb, err := DeriveKey("feed", vdom.Props{})
	require.NoError(t, err)

	assert.Equal(t, ka, kb)
	assert.True(t, strings.HasPrefix(ka, "feed:"))
}

func TestDeriveKeyUnserializableProps(t *testing.T) {
	_, err := DeriveKey("feed", vdom.Props{"bad": make(chan int)})
	assert.Error(t, err)
}
