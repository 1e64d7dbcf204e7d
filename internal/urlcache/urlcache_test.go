package urlcache

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestStoreDeduplicates(t *testing.T) {
	list := Open(filepath.Join(t.TempDir(), "list.json"))
	link := "com.oracle.ios.ardemo://panorama?url=https%3A%2F%2Fx.com&token=T&assetID=A"

	list.Store(mustParse(t, link))
	list.Store(mustParse(t, link))

	items := list.Items()
	require.Len(t, items, 1)
	assert.Equal(t, link, items[0].String())
}

func TestStoreKeepsInsertionOrder(t *testing.T) {
	list := Open(filepath.Join(t.TempDir(), "list.json"))
	links := []string{
		"scheme://mug?assetID=1",
		"scheme://mug?assetID=2",
		"scheme://mug?assetID=1&token=x",
	}
	for _, link := range links {
		list.Store(mustParse(t, link))
	}

	items := list.Items()
	require.Len(t, items, len(links))
	for i, link := range links {
		assert.Equal(t, link, items[i].String())
	}
}

func TestStoreIgnoresNil(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list.json")
	list := Open(path)

	list.Store(nil)

	assert.Empty(t, list.Items())
	assert.NoFileExists(t, path)
}

func TestStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "list.json")
	list := Open(path)
	list.Store(mustParse(t, "scheme://mug?assetID=1"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `["scheme://mug?assetID=1"]`, string(data))

	reopened := Open(path)
	require.Len(t, reopened.Items(), 1)
	assert.Equal(t, "scheme://mug?assetID=1", reopened.Items()[0].String())
}

func TestClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list.json")
	list := Open(path)
	list.Store(mustParse(t, "scheme://mug?assetID=1"))

	require.NoError(t, list.Clear())

	assert.Empty(t, list.Items())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestItemsReturnsCopy(t *testing.T) {
	list := Open(filepath.Join(t.TempDir(), "list.json"))
	list.Store(mustParse(t, "scheme://mug?assetID=1"))

	items := list.Items()
	items[0].Host = "panorama"

	assert.Equal(t, "mug", list.Items()[0].Host)
}

func TestOpenCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0644))

	assert.Empty(t, Open(path).Items())
}

func TestListsAreIndependent(t *testing.T) {
	folder := t.TempDir()
	lists := OpenLists(folder, "mug", "panorama")

	mug, ok := lists.Get("mug")
	require.True(t, ok)
	panorama, ok := lists.Get("panorama")
	require.True(t, ok)

	mug.Store(mustParse(t, "scheme://mug?assetID=1"))

	assert.Len(t, mug.Items(), 1)
	assert.Empty(t, panorama.Items())
	assert.Equal(t, filepath.Join(folder, "ARDemoMugURLCache.json"), mug.Path())
	assert.Equal(t, filepath.Join(folder, "ARDemoPanoramaURLCache.json"), panorama.Path())
	assert.Equal(t, []string{"mug", "panorama"}, lists.Demos())

	_, ok = lists.Get("unknown")
	assert.False(t, ok)
}
