package client

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"hash"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"vos-tools/types"
	"vos-tools/utils"

	"github.com/google/renameio/v2"
	"golang.org/x/sync/errgroup"
)

// copyBufSize is the transfer buffer, big enough to keep wide-area
// links busy.
const copyBufSize = 8388608

// Copy moves bytes between the local disk and the space, in whichever
// direction the arguments point. Both sides remote streams through
// without touching the disk. The transfer is verified against the
// service checksum, falling back to a length check, and the byte count
// is returned.
func (c *Client) Copy(ctx context.Context, src, dest string) (int64, error) {
	switch {
	case types.IsVOSURI(src) && types.IsVOSURI(dest):
		return c.copyRemote(ctx, src, dest)
	case types.IsVOSURI(src):
		return c.download(ctx, src, dest)
	case types.IsVOSURI(dest):
		return c.uploadFile(ctx, src, dest)
	default:
		return 0, types.Wrapf(types.ErrInvalidURI, "neither %q nor %q names a node", src, dest)
	}
}

func (c *Client) download(ctx context.Context, src, dest string) (int64, error) {
	node, err := c.GetNode(ctx, src, 0)
	if err != nil {
		return 0, err
	}
	if node.IsDir() {
		return 0, types.Wrapf(types.ErrBadRequest, "%s is a container, copy it recursively", src)
	}

	u, err := c.FixURI(src)
	if err != nil {
		return 0, err
	}
	if fi, err := os.Stat(dest); err == nil && fi.IsDir() {
		dest = filepath.Join(dest, u.Name())
	}

	f, err := c.OpenRead(ctx, src)
	if err != nil {
		return 0, err
	}
	defer f.Close() //nolint: errcheck

	pending, err := renameio.NewPendingFile(dest)
	if err != nil {
		return 0, err
	}
	defer pending.Cleanup() //nolint: errcheck

	h := md5.New()
	n, err := io.CopyBuffer(io.MultiWriter(pending, h), f, make([]byte, copyBufSize))
	if err != nil {
		return n, err
	}

	if err := verify(node, n, h); err != nil {
		return n, types.Wrapf(err, "%s -> %s", src, dest)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return n, err
	}
	log.Debugf("downloaded %s -> %s (%d bytes)", src, dest, n)
	return n, nil
}

func (c *Client) uploadFile(ctx context.Context, src, dest string) (int64, error) {
	fi, err := os.Stat(src)
	if err != nil {
		return 0, err
	}
	if fi.IsDir() {
		return 0, types.Wrapf(types.ErrBadRequest, "%s is a directory, copy it recursively", src)
	}
	if c.IsDir(ctx, dest) {
		dest = dest + "/" + filepath.Base(src)
	}

	f, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer f.Close() //nolint: errcheck

	h := md5.New()
	if err := c.Upload(ctx, dest, io.TeeReader(f, h), fi.Size()); err != nil {
		return 0, err
	}

	node, err := c.GetNode(ctx, dest, 0)
	if err != nil {
		return fi.Size(), err
	}
	if err := verify(node, fi.Size(), h); err != nil {
		return fi.Size(), types.Wrapf(err, "%s -> %s", src, dest)
	}
	log.Debugf("uploaded %s -> %s (%d bytes)", src, dest, fi.Size())
	return fi.Size(), nil
}

func (c *Client) copyRemote(ctx context.Context, src, dest string) (int64, error) {
	node, err := c.GetNode(ctx, src, 0)
	if err != nil {
		return 0, err
	}
	if node.IsDir() {
		return 0, types.Wrapf(types.ErrBadRequest, "%s is a container, copy it recursively", src)
	}
	if c.IsDir(ctx, dest) {
		u, err := c.FixURI(src)
		if err != nil {
			return 0, err
		}
		dest = dest + "/" + u.Name()
	}

	f, err := c.OpenRead(ctx, src)
	if err != nil {
		return 0, err
	}
	defer f.Close() //nolint: errcheck

	size := node.Size()
	if !node.HasProp("length") {
		size = f.Size
	}

	h := md5.New()
	if err := c.Upload(ctx, dest, io.TeeReader(f, h), size); err != nil {
		return 0, err
	}

	written := int64(0)
	if size > 0 {
		written = size
	}
	if err := verify(node, written, h); err != nil {
		return written, types.Wrapf(err, "%s -> %s", src, dest)
	}
	log.Debugf("copied %s -> %s (%d bytes)", src, dest, written)
	return written, nil
}

// verify compares a finished transfer against the node document,
// preferring the checksum and falling back to the length.
func verify(node *types.Node, n int64, h hash.Hash) error {
	if want := node.Prop("MD5"); want != "" && want != utils.EmptyMD5 {
		got := hex.EncodeToString(h.Sum(nil))
		if got != want {
			return types.Wrapf(types.ErrChecksumMismatch, "%s != %s", got, want)
		}
		return nil
	}
	if node.HasProp("length") && node.Size() != n {
		return types.Wrapf(types.ErrSizeMismatch, "%d != %d", n, node.Size())
	}
	return nil
}

// CopyTree copies a whole tree, running up to nthreads transfers at
// once. Links inside the tree are skipped.
func (c *Client) CopyTree(ctx context.Context, src, dest string, nthreads int) (int64, error) {
	if nthreads <= 0 {
		nthreads = 1
	}

	var total atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(nthreads)

	var err error
	switch {
	case types.IsVOSURI(src):
		err = c.walkRemote(gctx, g, &total, src, dest, types.IsVOSURI(dest))
	case types.IsVOSURI(dest):
		err = c.walkLocal(gctx, g, &total, src, dest)
	default:
		err = types.Wrapf(types.ErrInvalidURI, "neither %q nor %q names a node", src, dest)
	}

	if werr := g.Wait(); err == nil {
		err = werr
	}
	return total.Load(), err
}

// walkRemote walks a container, recreating it under dest, which is a
// local directory or another container.
func (c *Client) walkRemote(ctx context.Context, g *errgroup.Group, total *atomic.Int64, src, dest string, destRemote bool) error {
	node, err := c.GetNode(ctx, src, c.pageSize())
	if err != nil {
		return err
	}
	if !node.IsDir() {
		g.Go(func() error {
			n, err := c.Copy(ctx, src, dest)
			total.Add(n)
			return err
		})
		return nil
	}

	if destRemote {
		if err := c.MkdirAll(ctx, dest); err != nil {
			return err
		}
	} else {
		if err := os.MkdirAll(dest, 0755); err != nil {
			return err
		}
	}

	for i := range node.Nodes {
		child := &node.Nodes[i]
		name := child.Name()
		childSrc := src + "/" + name
		childDest := dest + "/" + name
		if !destRemote {
			childDest = filepath.Join(dest, name)
		}
		switch {
		case child.IsLink():
			log.Warnf("skipping link %s", childSrc)
		case child.IsDir():
			if err := c.walkRemote(ctx, g, total, childSrc, childDest, destRemote); err != nil {
				return err
			}
		default:
			g.Go(func() error {
				n, err := c.Copy(ctx, childSrc, childDest)
				total.Add(n)
				return err
			})
		}
	}
	return nil
}

// walkLocal walks a local directory, recreating it under a container.
func (c *Client) walkLocal(ctx context.Context, g *errgroup.Group, total *atomic.Int64, src, dest string) error {
	fi, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		g.Go(func() error {
			n, err := c.Copy(ctx, src, dest)
			total.Add(n)
			return err
		})
		return nil
	}

	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := dest
		if rel != "." {
			target = dest + "/" + filepath.ToSlash(rel)
		}
		if d.IsDir() {
			return c.MkdirAll(ctx, target)
		}
		if !d.Type().IsRegular() {
			log.Warnf("skipping %s", path)
			return nil
		}
		g.Go(func() error {
			n, err := c.Copy(ctx, path, target)
			total.Add(n)
			return err
		})
		return nil
	})
}
