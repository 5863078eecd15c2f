package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"vos-tools/types"

	logging "github.com/ipfs/go-log/v2"
	"github.com/mitchellh/go-homedir"
)

var log = logging.Logger("client")

// Client talks to a VOSpace web service.
type Client struct {
	Cfg   *Config
	conn  *Connection
	cache *NodeCache
	repo  string

	opTimeout   time.Duration
	retryWindow time.Duration
}

// NewClient loads the repo configuration, writing the defaults on first
// run, and sets up the connection. Non-empty endpoint, certFile and
// token arguments override the configured values.
func NewClient(ctx context.Context, repo, endpoint, certFile, token string) (*Client, error) {
	cliPath, err := homedir.Expand(repo)
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(cliPath, "config.toml")
	_, err = os.Stat(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			err = os.MkdirAll(cliPath, 0755) //nolint: gosec
			if err != nil && !os.IsExist(err) {
				return nil, err
			}

			c, err := os.Create(configPath)
			if err != nil {
				return nil, err
			}

			dc, err := ConfigBytes(DefaultConfig())
			if err != nil {
				return nil, err
			}
			_, err = c.Write(dc)
			if err != nil {
				return nil, err
			}

			if err := c.Close(); err != nil {
				return nil, err
			}
		}
	}
	cfg, err := FromFile(configPath, DefaultConfig())
	if err != nil {
		return nil, err
	}

	if endpoint != "" {
		cfg.Endpoint = endpoint
	}
	if certFile != "" {
		cfg.CertFile = certFile
	}
	if token != "" {
		cfg.Token = token
	}

	return NewClientWithConfig(ctx, cfg, repo)
}

// NewClientWithConfig skips the repo bootstrap, for callers that carry
// their own configuration.
func NewClientWithConfig(_ context.Context, cfg *Config, repo string) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, types.Wrapf(types.ErrInvalidConfig, "no service endpoint")
	}

	conn, err := NewConnection(cfg)
	if err != nil {
		return nil, err
	}

	return &Client{
		Cfg:         cfg,
		conn:        conn,
		cache:       NewNodeCache(cfg.CacheSize),
		repo:        repo,
		opTimeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		retryWindow: time.Duration(cfg.RetryWindowSeconds) * time.Second,
	}, nil
}

// SaveConfig writes cfg back to the repo.
func (c *Client) SaveConfig(cfg *Config) error {
	cliPath, err := homedir.Expand(c.repo)
	if err != nil {
		return err
	}

	configPath := filepath.Join(cliPath, "config.toml")
	f, err := os.OpenFile(configPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	dc, err := ConfigBytes(cfg)
	if err != nil {
		return err
	}
	_, err = f.Write(dc)
	if err != nil {
		return err
	}

	return f.Close()
}

// Connection exposes the underlying connection.
func (c *Client) Connection() *Connection {
	return c.conn
}

// FixURI resolves raw against the configured root node and authority
// and validates the node name.
func (c *Client) FixURI(raw string) (types.NodeURI, error) {
	return types.ParseURI(raw, c.Cfg.RootNode, c.Cfg.Authority)
}

func (c *Client) nodeURL(u types.NodeURI, query url.Values) string {
	s := c.Cfg.Endpoint + "/vospace/nodes/" + u.Path
	if len(query) > 0 {
		s += "?" + query.Encode()
	}
	return s
}

func (c *Client) transferURL() string {
	return c.Cfg.Endpoint + "/vospace/synctrans"
}

// dataURL is the direct data endpoint for a node.
func (c *Client) dataURL(u types.NodeURI) string {
	return c.Cfg.Endpoint + "/data/pub/" + c.Cfg.Archive + "/" + u.Path
}

func (c *Client) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.opTimeout)
}

func (c *Client) evict(u types.NodeURI) {
	c.cache.Evict(u.String())
	c.cache.Evict(u.Dir().String())
}

// GetNode fetches the node document for uri. With limit zero no
// children are loaded; with a positive limit the children of a
// container are paged in completely, limit per request.
func (c *Client) GetNode(ctx context.Context, uri string, limit int) (*types.Node, error) {
	u, err := c.FixURI(uri)
	if err != nil {
		return nil, err
	}
	key := u.String()
	if limit == 0 {
		if n := c.cache.Get(key); n != nil {
			log.Debugf("cache hit for %s", key)
			return n, nil
		}
	}

	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	node, err := c.fetchNode(ctx, u, strconv.Itoa(limit), "")
	if err != nil {
		return nil, err
	}

	if node.IsDir() && limit > 0 {
		// page in the full child list, marker style: each page is
		// requested starting at the last URI already seen, and the
		// marker itself is sent back as the first entry
		node.Nodes = nil
		marker := ""
		for again := true; again; {
			again = false
			page, err := c.fetchNode(ctx, u, strconv.Itoa(limit), marker)
			if err != nil {
				return nil, err
			}
			for i := range page.Nodes {
				child := page.Nodes[i]
				if child.URI == marker {
					continue
				}
				node.Nodes = append(node.Nodes, child)
				marker = child.URI
				again = true
			}
		}
	}

	c.cache.Put(key, node)
	return node, nil
}

func (c *Client) fetchNode(ctx context.Context, u types.NodeURI, limit, marker string) (*types.Node, error) {
	q := url.Values{}
	if limit != "" {
		q.Set("limit", limit)
	}
	if marker != "" {
		q.Set("uri", marker)
	}
	resp, err := c.do(ctx, request{method: http.MethodGet, url: c.nodeURL(u, q)}, true)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp, "getNode", http.StatusOK); err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint: errcheck
	return types.ParseNode(resp.Body)
}

// CreateNode registers a new node document with the service.
func (c *Client) CreateNode(ctx context.Context, node *types.Node) error {
	u, err := c.FixURI(node.URI)
	if err != nil {
		return err
	}

	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	body, err := node.XML()
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, request{
		method:      http.MethodPut,
		url:         c.nodeURL(u, nil),
		body:        body,
		contentType: "text/xml",
	}, false)
	if err != nil {
		return err
	}
	if err := checkStatus(resp, "createNode", http.StatusOK, http.StatusCreated); err != nil {
		return err
	}
	drain(resp)

	c.evict(u)
	return nil
}

// Mkdir creates a container node at uri.
func (c *Client) Mkdir(ctx context.Context, uri string) error {
	u, err := c.FixURI(uri)
	if err != nil {
		return err
	}
	log.Debugf("mkdir %s", u)
	return c.CreateNode(ctx, types.NewNode(u, types.ContainerNodeType, nil))
}

// MkdirAll creates the container at uri along with any missing parents.
// Containers that already exist are fine; an existing node of another
// type is not.
func (c *Client) MkdirAll(ctx context.Context, uri string) error {
	u, err := c.FixURI(uri)
	if err != nil {
		return err
	}

	cur := types.NodeURI{Authority: u.Authority}
	for _, seg := range strings.Split(u.Path, "/") {
		cur = cur.Join(seg)
		node, err := c.GetNode(ctx, cur.String(), 0)
		if err == nil {
			if !node.IsDir() {
				return types.Wrapf(types.ErrDuplicateNode, "%s is not a container", cur)
			}
			continue
		}
		if !errors.Is(err, types.ErrNodeNotFound) {
			return err
		}
		if err := c.Mkdir(ctx, cur.String()); err != nil && !errors.Is(err, types.ErrDuplicateNode) {
			return err
		}
	}
	return nil
}

// Delete removes the node at uri. Locked nodes are refused.
func (c *Client) Delete(ctx context.Context, uri string) error {
	u, err := c.FixURI(uri)
	if err != nil {
		return err
	}

	node, err := c.GetNode(ctx, uri, 0)
	if err != nil {
		return err
	}
	if node.IsLocked() {
		return types.Wrapf(types.ErrNodeLocked, "%s", u)
	}

	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	log.Debugf("delete %s", u)
	resp, err := c.do(ctx, request{method: http.MethodDelete, url: c.nodeURL(u, nil)}, false)
	if err != nil {
		return err
	}
	if err := checkStatus(resp, "delete", http.StatusOK, http.StatusAccepted, http.StatusNoContent); err != nil {
		return err
	}
	drain(resp)

	c.evict(u)
	return nil
}

// Move renames src to dest through the synchronous transfer endpoint.
// The service answers with a redirect to the transfer results, which is
// followed; anything but a final 200 is a failed move.
func (c *Client) Move(ctx context.Context, src, dest string) error {
	su, err := c.FixURI(src)
	if err != nil {
		return err
	}
	du, err := c.FixURI(dest)
	if err != nil {
		return err
	}

	node, err := c.GetNode(ctx, src, 0)
	if err != nil {
		return err
	}
	if node.IsLocked() {
		return types.Wrapf(types.ErrNodeLocked, "%s", su)
	}

	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	body, err := types.NewMoveTransfer(su, du).XML()
	if err != nil {
		return err
	}
	log.Debugf("move %s -> %s", su, du)
	resp, err := c.do(ctx, request{
		method:      http.MethodPost,
		url:         c.transferURL(),
		body:        body,
		contentType: "text/xml",
	}, true)
	if err != nil {
		return err
	}
	if err := checkStatus(resp, "move", http.StatusOK); err != nil {
		return err
	}
	drain(resp)

	c.evict(su)
	c.evict(du)
	return nil
}

// Update posts the node document back to the service, after dropping
// the properties the service already holds at the same value. Nothing
// is sent when no property changed.
func (c *Client) Update(ctx context.Context, node *types.Node) error {
	u, err := c.FixURI(node.URI)
	if err != nil {
		return err
	}

	stored, err := c.GetNode(ctx, node.URI, 0)
	if err != nil {
		return err
	}

	diff := node.Clone()
	diff.Nodes = nil
	keep := diff.Properties[:0]
	for _, p := range diff.Properties {
		name := types.PropName(p.URI)
		if p.Nil == "true" {
			if stored.HasProp(name) {
				keep = append(keep, p)
			}
			continue
		}
		if stored.HasProp(name) && stored.Prop(name) == p.Value {
			continue
		}
		keep = append(keep, p)
	}
	if len(keep) == 0 {
		log.Debugf("no property changes for %s", u)
		return nil
	}
	diff.Properties = keep

	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	body, err := diff.XML()
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, request{
		method:      http.MethodPost,
		url:         c.nodeURL(u, nil),
		body:        body,
		contentType: "text/xml",
	}, false)
	if err != nil {
		return err
	}
	if err := checkStatus(resp, "update", http.StatusOK); err != nil {
		return err
	}
	drain(resp)

	c.evict(u)
	return nil
}

// Lock sets the lock property on the node, refusing further writes.
func (c *Client) Lock(ctx context.Context, uri string) error {
	return c.setLock(ctx, uri, "true")
}

// Unlock clears the lock property.
func (c *Client) Unlock(ctx context.Context, uri string) error {
	return c.setLock(ctx, uri, "false")
}

func (c *Client) setLock(ctx context.Context, uri, value string) error {
	node, err := c.GetNode(ctx, uri, 0)
	if err != nil {
		return err
	}
	if !node.SetProp("islocked", value) {
		return nil
	}
	return c.Update(ctx, node)
}

// ListDir returns the child names of the container at uri.
func (c *Client) ListDir(ctx context.Context, uri string) ([]string, error) {
	node, err := c.GetNode(ctx, uri, c.pageSize())
	if err != nil {
		return nil, err
	}
	if !node.IsDir() {
		return nil, types.Wrapf(types.ErrNotContainer, "%s", node.URI)
	}
	names := make([]string, 0, len(node.Nodes))
	for i := range node.Nodes {
		names = append(names, node.Nodes[i].Name())
	}
	return names, nil
}

// GetInfoList returns the listing of uri: the children of a container,
// or the node itself.
func (c *Client) GetInfoList(ctx context.Context, uri string) ([]types.NodeInfo, error) {
	node, err := c.GetNode(ctx, uri, c.pageSize())
	if err != nil {
		return nil, err
	}
	return node.InfoList(), nil
}

func (c *Client) pageSize() int {
	if c.Cfg.PageSize > 0 {
		return c.Cfg.PageSize
	}
	return 500
}

// IsDir reports whether uri names a container node.
func (c *Client) IsDir(ctx context.Context, uri string) bool {
	node, err := c.GetNode(ctx, uri, 0)
	if err != nil {
		log.Debugf("isdir %s: %v", uri, err)
		return false
	}
	return node.IsDir()
}

// IsFile reports whether uri names a data node.
func (c *Client) IsFile(ctx context.Context, uri string) bool {
	node, err := c.GetNode(ctx, uri, 0)
	if err != nil {
		log.Debugf("isfile %s: %v", uri, err)
		return false
	}
	return !node.IsDir() && !node.IsLink()
}

// Access reports whether uri exists.
func (c *Client) Access(ctx context.Context, uri string) bool {
	_, err := c.GetNode(ctx, uri, 0)
	return err == nil
}
