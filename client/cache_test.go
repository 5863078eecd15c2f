package client

import (
	"testing"

	"vos-tools/types"

	"github.com/stretchr/testify/require"
)

func testNode(uri string) *types.Node {
	u, _ := types.ParseURI(uri, "vos:", "")
	return types.NewNode(u, types.DataNodeType, nil)
}

func TestNodeCache(t *testing.T) {
	c := NewNodeCache(3)

	c.Put("vos://authority!vospace/aaa", testNode("vos://authority!vospace/aaa"))
	c.Put("vos://authority!vospace/bbb", testNode("vos://authority!vospace/bbb"))
	c.Put("vos://authority!vospace/ccc", testNode("vos://authority!vospace/ccc"))
	require.Equal(t, 3, c.Len())

	// touch aaa and ccc so bbb is the oldest
	require.NotNil(t, c.Get("vos://authority!vospace/aaa"))
	require.NotNil(t, c.Get("vos://authority!vospace/ccc"))

	c.Put("vos://authority!vospace/ddd", testNode("vos://authority!vospace/ddd"))
	require.Equal(t, 3, c.Len())
	require.Nil(t, c.Get("vos://authority!vospace/bbb"))
	require.NotNil(t, c.Get("vos://authority!vospace/ddd"))

	c.Evict("vos://authority!vospace/ddd")
	require.Equal(t, 2, c.Len())
	require.Nil(t, c.Get("vos://authority!vospace/ddd"))

	// evicting a key that is not cached is fine
	c.Evict("vos://authority!vospace/ddd")
	require.Equal(t, 2, c.Len())
}

func TestNodeCacheUpdate(t *testing.T) {
	c := NewNodeCache(2)

	n := testNode("vos://authority!vospace/aaa")
	n.SetProp("length", "100")
	c.Put("vos://authority!vospace/aaa", n)

	n2 := testNode("vos://authority!vospace/aaa")
	n2.SetProp("length", "200")
	c.Put("vos://authority!vospace/aaa", n2)

	require.Equal(t, 1, c.Len())
	got := c.Get("vos://authority!vospace/aaa")
	require.NotNil(t, got)
	require.Equal(t, int64(200), got.Size())
}

func TestNodeCacheCopies(t *testing.T) {
	c := NewNodeCache(2)

	n := testNode("vos://authority!vospace/aaa")
	n.SetProp("length", "100")
	c.Put("vos://authority!vospace/aaa", n)

	// writes to the original must not reach the cached copy
	n.SetProp("length", "999")
	got := c.Get("vos://authority!vospace/aaa")
	require.NotNil(t, got)
	require.Equal(t, int64(100), got.Size())

	// nor writes to a copy handed out earlier
	got.SetProp("length", "777")
	again := c.Get("vos://authority!vospace/aaa")
	require.NotNil(t, again)
	require.Equal(t, int64(100), again.Size())
}

func TestNodeCacheDisabled(t *testing.T) {
	c := NewNodeCache(0)
	c.Put("vos://authority!vospace/aaa", testNode("vos://authority!vospace/aaa"))
	require.Equal(t, 0, c.Len())
	require.Nil(t, c.Get("vos://authority!vospace/aaa"))
}
