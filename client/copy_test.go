package client

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"vos-tools/types"

	"github.com/stretchr/testify/require"
)

func TestCopyRoundTrip(t *testing.T) {
	mock := NewMockVOSpace()
	defer mock.Close()
	c := newTestClient(t, mock)
	ctx := context.Background()
	dir := t.TempDir()

	src := filepath.Join(dir, "obs.fits")
	content := bytes.Repeat([]byte("abc123"), 1000)
	require.NoError(t, os.WriteFile(src, content, 0644))

	mock.AddContainer("/proj")
	n, err := c.Copy(ctx, src, "vos:proj/obs.fits")
	require.NoError(t, err)
	require.Equal(t, int64(len(content)), n)
	require.Equal(t, content, mock.DataAt("/proj/obs.fits"))

	dest := filepath.Join(dir, "copy.fits")
	n, err = c.Copy(ctx, "vos:proj/obs.fits", dest)
	require.NoError(t, err)
	require.Equal(t, int64(len(content)), n)
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, content, got)
}

func TestCopyIntoContainer(t *testing.T) {
	mock := NewMockVOSpace()
	defer mock.Close()
	c := newTestClient(t, mock)
	ctx := context.Background()
	dir := t.TempDir()

	src := filepath.Join(dir, "catalog.txt")
	require.NoError(t, os.WriteFile(src, []byte("entries"), 0644))

	// uploading to a container appends the file name
	mock.AddContainer("/proj")
	_, err := c.Copy(ctx, src, "vos:proj")
	require.NoError(t, err)
	require.Equal(t, []byte("entries"), mock.DataAt("/proj/catalog.txt"))

	// downloading into a directory does the same
	out := t.TempDir()
	_, err = c.Copy(ctx, "vos:proj/catalog.txt", out)
	require.NoError(t, err)
	got, err := os.ReadFile(filepath.Join(out, "catalog.txt"))
	require.NoError(t, err)
	require.Equal(t, []byte("entries"), got)
}

func TestCopyRemote(t *testing.T) {
	mock := NewMockVOSpace()
	defer mock.Close()
	c := newTestClient(t, mock)
	ctx := context.Background()

	content := []byte("remote payload")
	mock.AddDataNode("/a.txt", content, nil)

	n, err := c.Copy(ctx, "vos:a.txt", "vos:b.txt")
	require.NoError(t, err)
	require.Equal(t, int64(len(content)), n)
	require.Equal(t, content, mock.DataAt("/b.txt"))
	require.Equal(t, content, mock.DataAt("/a.txt"))
}

func TestCopyZeroByte(t *testing.T) {
	mock := NewMockVOSpace()
	defer mock.Close()
	c := newTestClient(t, mock)
	ctx := context.Background()
	dir := t.TempDir()

	mock.AddDataNode("/empty.txt", nil, nil)

	dest := filepath.Join(dir, "empty.txt")
	n, err := c.Copy(ctx, "vos:empty.txt", dest)
	require.NoError(t, err)
	require.Zero(t, n)
	fi, err := os.Stat(dest)
	require.NoError(t, err)
	require.Zero(t, fi.Size())
}

func TestCopyChecksumMismatch(t *testing.T) {
	mock := NewMockVOSpace()
	defer mock.Close()
	c := newTestClient(t, mock)
	ctx := context.Background()
	dir := t.TempDir()

	mock.AddDataNode("/x.txt", []byte("data"), nil)

	// poison the stored checksum so the verification trips
	node, err := c.GetNode(ctx, "vos:x.txt", 0)
	require.NoError(t, err)
	require.True(t, node.SetProp("MD5", "00000000000000000000000000000000"))
	require.NoError(t, c.Update(ctx, node))

	dest := filepath.Join(dir, "x.txt")
	_, err = c.Copy(ctx, "vos:x.txt", dest)
	require.ErrorIs(t, err, types.ErrChecksumMismatch)
	require.NoFileExists(t, dest)
}

func TestCopyRejectsContainers(t *testing.T) {
	mock := NewMockVOSpace()
	defer mock.Close()
	c := newTestClient(t, mock)
	ctx := context.Background()
	dir := t.TempDir()

	mock.AddContainer("/proj")

	_, err := c.Copy(ctx, "vos:proj", filepath.Join(dir, "out"))
	require.ErrorIs(t, err, types.ErrBadRequest)

	_, err = c.Copy(ctx, dir, "vos:backup")
	require.ErrorIs(t, err, types.ErrBadRequest)

	_, err = c.Copy(ctx, filepath.Join(dir, "a"), filepath.Join(dir, "b"))
	require.ErrorIs(t, err, types.ErrInvalidURI)
}

func TestCopyTree(t *testing.T) {
	mock := NewMockVOSpace()
	defer mock.Close()
	c := newTestClient(t, mock)
	ctx := context.Background()

	srcDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(srcDir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "f1.txt"), []byte("one"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "f2.txt"), []byte("twotwo"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "sub", "f3.txt"), []byte("three"), 0644))

	total, err := c.CopyTree(ctx, srcDir, "vos:backup", 2)
	require.NoError(t, err)
	require.Equal(t, int64(14), total)
	require.Equal(t, []byte("one"), mock.DataAt("/backup/f1.txt"))
	require.Equal(t, []byte("twotwo"), mock.DataAt("/backup/f2.txt"))
	require.Equal(t, []byte("three"), mock.DataAt("/backup/sub/f3.txt"))

	destDir := t.TempDir()
	total, err = c.CopyTree(ctx, "vos:backup", destDir, 2)
	require.NoError(t, err)
	require.Equal(t, int64(14), total)
	got, err := os.ReadFile(filepath.Join(destDir, "sub", "f3.txt"))
	require.NoError(t, err)
	require.Equal(t, []byte("three"), got)
	got, err = os.ReadFile(filepath.Join(destDir, "f2.txt"))
	require.NoError(t, err)
	require.Equal(t, []byte("twotwo"), got)
}

func TestCopyTreeRemote(t *testing.T) {
	mock := NewMockVOSpace()
	defer mock.Close()
	c := newTestClient(t, mock)
	ctx := context.Background()

	mock.AddDataNode("/proj/a.txt", []byte("aa"), nil)
	mock.AddDataNode("/proj/deep/b.txt", []byte("bbbb"), nil)

	total, err := c.CopyTree(ctx, "vos:proj", "vos:mirror", 2)
	require.NoError(t, err)
	require.Equal(t, int64(6), total)
	require.Equal(t, []byte("aa"), mock.DataAt("/mirror/a.txt"))
	require.Equal(t, []byte("bbbb"), mock.DataAt("/mirror/deep/b.txt"))
}

func TestCopyTreeSingleFile(t *testing.T) {
	mock := NewMockVOSpace()
	defer mock.Close()
	c := newTestClient(t, mock)
	ctx := context.Background()
	dir := t.TempDir()

	mock.AddDataNode("/one.txt", []byte("x"), nil)

	// a plain file behaves like Copy
	total, err := c.CopyTree(ctx, "vos:one.txt", filepath.Join(dir, "one.txt"), 4)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.FileExists(t, filepath.Join(dir, "one.txt"))
}
