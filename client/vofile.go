package client

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"vos-tools/types"
)

// File is an open data stream from the space.
type File struct {
	Name string
	// Size is the Content-Length of the stream, or -1 when the
	// service does not say.
	Size int64

	body io.ReadCloser
}

func (f *File) Read(p []byte) (int, error) {
	return f.body.Read(p)
}

func (f *File) Close() error {
	return f.body.Close()
}

// OpenRead opens the data stream of the node at uri. The data view
// request is answered with a redirect to the transfer endpoint, which
// is followed. A 416 answer is how the service serves a zero byte
// file, and comes back as an empty stream.
func (c *Client) OpenRead(ctx context.Context, uri string) (*File, error) {
	u, err := c.FixURI(uri)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("view", "data")
	resp, err := c.do(ctx, request{method: http.MethodGet, url: c.nodeURL(u, q)}, true)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusRequestedRangeNotSatisfiable {
		drain(resp)
		return &File{Name: u.Name(), Size: 0, body: io.NopCloser(bytes.NewReader(nil))}, nil
	}
	if err := checkStatus(resp, "read", http.StatusOK, http.StatusPartialContent); err != nil {
		return nil, err
	}

	size := int64(-1)
	if v := resp.Header.Get("Content-Length"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			size = n
		}
	}
	return &File{Name: u.Name(), Size: size, body: resp.Body}, nil
}

// Upload streams size bytes from r to the data endpoint for uri. The
// service creates or replaces the data node as a side effect. Pass a
// negative size when the length is unknown. Locked nodes are refused.
func (c *Client) Upload(ctx context.Context, uri string, r io.Reader, size int64) error {
	u, err := c.FixURI(uri)
	if err != nil {
		return err
	}

	node, err := c.GetNode(ctx, uri, 0)
	switch {
	case err == nil && node.IsLocked():
		return types.Wrapf(types.ErrNodeLocked, "%s", u)
	case err != nil && !errors.Is(err, types.ErrNodeNotFound):
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.dataURL(u), r)
	if err != nil {
		return types.Wrap(types.ErrBadRequest, err)
	}
	if size >= 0 {
		req.ContentLength = size
	}
	if ct := types.MimeType(u.Name()); ct != "" {
		req.Header.Set("Content-Type", ct)
	}

	log.Debugf("upload %s (%d bytes)", u, size)
	resp, err := c.conn.Do(req)
	if err != nil {
		return types.Wrap(types.ErrUnavailable, err)
	}
	// the storage side answers an accepted put with a redirect as
	// often as with a 200
	if err := checkStatus(resp, "upload",
		http.StatusOK, http.StatusCreated, http.StatusFound, http.StatusSeeOther); err != nil {
		return err
	}
	drain(resp)

	c.evict(u)
	return nil
}
