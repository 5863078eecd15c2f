package client

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"

	"vos-tools/types"
)

// MockVOSpace is a configurable in-memory VOSpace service for testing.
// Nodes are kept in a flat map keyed by path, data node content in a
// second map. The handlers speak just enough of the protocol for the
// client: node documents with marker paging, the synchronous transfer
// endpoint for moves, and the direct data endpoint behind a redirect.
type MockVOSpace struct {
	*httptest.Server
	mu        sync.RWMutex
	authority string
	archive   string
	nodes     map[string]*types.Node
	data      map[string][]byte

	failures   map[string]int // 503 answers before success, per node path
	retryAfter string         // Retry-After header sent with injected 503s
}

// NewMockVOSpace starts a mock service holding only the root container.
func NewMockVOSpace() *MockVOSpace {
	mock := &MockVOSpace{
		authority: types.DefaultAuthority,
		archive:   "vospace",
		nodes:     make(map[string]*types.Node),
		data:      make(map[string][]byte),
		failures:  make(map[string]int),
	}
	mock.putNode("/", types.ContainerNodeType, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/vospace/nodes/", mock.handleNodes)
	mux.HandleFunc("/vospace/synctrans", mock.handleTransfer)
	mux.HandleFunc("/vospace/results/", mock.handleResults)
	mux.HandleFunc("/data/pub/", mock.handleData)

	mock.Server = httptest.NewServer(mux)
	return mock
}

// Config returns a client configuration pointing at the mock.
func (m *MockVOSpace) Config() *Config {
	cfg := DefaultConfig()
	cfg.Endpoint = m.Server.URL
	cfg.Authority = m.authority
	cfg.Archive = m.archive
	cfg.CertFile = ""
	cfg.TimeoutSeconds = 10
	cfg.RetryWindowSeconds = 10
	return cfg
}

// AddContainer creates a container node at path, parents included.
func (m *MockVOSpace) AddContainer(nodePath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addParents(nodePath)
	m.putNode(nodePath, types.ContainerNodeType, nil)
}

// AddDataNode creates a data node at path holding content.
func (m *MockVOSpace) AddDataNode(nodePath string, content []byte, props map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addParents(path.Dir(nodePath))
	m.putNode(nodePath, types.DataNodeType, props)
	m.storeData(nodePath, content)
}

// NodeAt returns a copy of the node stored at path, or nil.
func (m *MockVOSpace) NodeAt(nodePath string) *types.Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n, ok := m.nodes[nodePath]; ok {
		return n.Clone()
	}
	return nil
}

// DataAt returns the content stored for the data node at path.
func (m *MockVOSpace) DataAt(nodePath string) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data[nodePath]
}

// SetFailures makes the next count requests for path answer 503.
func (m *MockVOSpace) SetFailures(nodePath string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[nodePath] = count
}

// SetRetryAfter sets the Retry-After header sent with injected 503s.
func (m *MockVOSpace) SetRetryAfter(v string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retryAfter = v
}

// Reset drops every node and failure, keeping only the root container.
func (m *MockVOSpace) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes = make(map[string]*types.Node)
	m.data = make(map[string][]byte)
	m.failures = make(map[string]int)
	m.retryAfter = ""
	m.putNode("/", types.ContainerNodeType, nil)
}

func (m *MockVOSpace) uriFor(nodePath string) string {
	u := types.NodeURI{Authority: m.authority, Path: strings.Trim(nodePath, "/")}
	return u.String()
}

// putNode stores a node without locking. Callers hold the lock.
func (m *MockVOSpace) putNode(nodePath, nodeType string, props map[string]string) {
	u := types.NodeURI{Authority: m.authority, Path: strings.Trim(nodePath, "/")}
	n := types.NewNode(u, nodeType, props)
	m.nodes[nodePath] = n
}

func (m *MockVOSpace) addParents(nodePath string) {
	for p := nodePath; p != "/" && p != "."; p = path.Dir(p) {
		if _, ok := m.nodes[p]; !ok {
			m.putNode(p, types.ContainerNodeType, nil)
		}
	}
}

func (m *MockVOSpace) storeData(nodePath string, content []byte) {
	m.data[nodePath] = content
	if n, ok := m.nodes[nodePath]; ok {
		n.SetProp("length", strconv.Itoa(len(content)))
		n.SetProp("MD5", md5hex(content))
	}
}

// children returns the stored nodes directly under dir, sorted by URI.
func (m *MockVOSpace) children(dir string) []*types.Node {
	prefix := dir
	if prefix != "/" {
		prefix += "/"
	}
	var kids []*types.Node
	for p, n := range m.nodes {
		if p != dir && strings.HasPrefix(p, prefix) && !strings.Contains(p[len(prefix):], "/") {
			kids = append(kids, n)
		}
	}
	sort.Slice(kids, func(i, j int) bool { return kids[i].URI < kids[j].URI })
	return kids
}

// failInjected answers true after writing a 503 for a path that still
// has failures left to inject.
func (m *MockVOSpace) failInjected(w http.ResponseWriter, nodePath string) bool {
	if m.failures[nodePath] <= 0 {
		return false
	}
	m.failures[nodePath]--
	if m.retryAfter != "" {
		w.Header().Set("Retry-After", m.retryAfter)
	}
	http.Error(w, "Service busy", http.StatusServiceUnavailable)
	return true
}

func nodePathOf(r *http.Request, prefix string) string {
	p := strings.TrimPrefix(r.URL.Path, prefix)
	if p == "" {
		p = "/"
	}
	return path.Clean("/" + p)
}

func (m *MockVOSpace) handleNodes(w http.ResponseWriter, r *http.Request) {
	nodePath := nodePathOf(r, "/vospace/nodes")

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failInjected(w, nodePath) {
		return
	}

	switch r.Method {
	case http.MethodGet:
		m.getNode(w, r, nodePath)
	case http.MethodPut:
		m.createNode(w, r, nodePath)
	case http.MethodPost:
		m.updateNode(w, r, nodePath)
	case http.MethodDelete:
		m.deleteNode(w, nodePath)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (m *MockVOSpace) getNode(w http.ResponseWriter, r *http.Request, nodePath string) {
	node, ok := m.nodes[nodePath]
	if !ok {
		http.Error(w, "NodeNotFound", http.StatusNotFound)
		return
	}

	if r.URL.Query().Get("view") == "data" {
		if node.IsDir() {
			http.Error(w, "not a data node", http.StatusBadRequest)
			return
		}
		if len(m.data[nodePath]) == 0 {
			// zero byte files are served as a range error
			http.Error(w, "empty", http.StatusRequestedRangeNotSatisfiable)
			return
		}
		w.Header().Set("Location", m.Server.URL+"/data/pub/"+m.archive+nodePath)
		w.WriteHeader(http.StatusSeeOther)
		return
	}

	doc := node.Clone()
	if doc.IsDir() {
		kids := m.children(nodePath)
		limit := len(kids)
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				limit = n
			}
		}
		start := 0
		if marker := r.URL.Query().Get("uri"); marker != "" {
			// paging resumes at the marker node, marker included
			for i, k := range kids {
				if k.URI == marker {
					start = i
					break
				}
			}
		}
		for i := start; i < len(kids) && i-start < limit; i++ {
			doc.Nodes = append(doc.Nodes, *kids[i].Clone())
		}
	}

	m.writeNode(w, doc)
}

func (m *MockVOSpace) createNode(w http.ResponseWriter, r *http.Request, nodePath string) {
	if _, ok := m.nodes[nodePath]; ok {
		http.Error(w, "DuplicateNode", http.StatusConflict)
		return
	}
	if _, ok := m.nodes[path.Dir(nodePath)]; !ok {
		http.Error(w, "ContainerNotFound", http.StatusNotFound)
		return
	}

	node, err := types.ParseNode(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	node.URI = m.uriFor(nodePath)
	m.nodes[nodePath] = node
	m.writeNode(w, node)
}

func (m *MockVOSpace) updateNode(w http.ResponseWriter, r *http.Request, nodePath string) {
	node, ok := m.nodes[nodePath]
	if !ok {
		http.Error(w, "NodeNotFound", http.StatusNotFound)
		return
	}

	patch, err := types.ParseNode(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	for _, p := range patch.Properties {
		name := types.PropName(p.URI)
		if p.Nil == "true" {
			node.DelProp(name)
			continue
		}
		node.SetProp(name, p.Value)
	}
	m.writeNode(w, node)
}

func (m *MockVOSpace) deleteNode(w http.ResponseWriter, nodePath string) {
	node, ok := m.nodes[nodePath]
	if !ok {
		http.Error(w, "NodeNotFound", http.StatusNotFound)
		return
	}
	if node.IsLocked() {
		http.Error(w, "NodeLocked", http.StatusLocked)
		return
	}
	prefix := nodePath + "/"
	for p := range m.nodes {
		if p == nodePath || strings.HasPrefix(p, prefix) {
			delete(m.nodes, p)
			delete(m.data, p)
		}
	}
	w.WriteHeader(http.StatusOK)
}

// handleTransfer implements just the move transfer: the posted job is
// answered with a redirect to a results page, and the page reports the
// outcome.
func (m *MockVOSpace) handleTransfer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	transfer, err := types.ParseTransfer(r.Body)
	if err != nil || !transfer.IsMove() {
		http.Error(w, "unsupported transfer", http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	srcPath, err := transferPath(transfer.Target)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	destPath, err := transferPath(transfer.Direction)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	node, ok := m.nodes[srcPath]
	if !ok {
		http.Error(w, "NodeNotFound", http.StatusNotFound)
		return
	}
	if node.IsLocked() {
		http.Error(w, "NodeLocked", http.StatusLocked)
		return
	}
	if dest, ok := m.nodes[destPath]; ok {
		if !dest.IsDir() {
			http.Error(w, "DuplicateNode", http.StatusConflict)
			return
		}
		destPath = destPath + "/" + path.Base(srcPath)
	}

	m.rename(srcPath, destPath)

	w.Header().Set("Location", m.Server.URL+"/vospace/results/1")
	w.WriteHeader(http.StatusSeeOther)
}

// rename moves a node and its subtree without locking.
func (m *MockVOSpace) rename(srcPath, destPath string) {
	moved := make(map[string]string)
	prefix := srcPath + "/"
	for p := range m.nodes {
		if p == srcPath {
			moved[p] = destPath
		} else if strings.HasPrefix(p, prefix) {
			moved[p] = destPath + "/" + p[len(prefix):]
		}
	}
	for from, to := range moved {
		n := m.nodes[from]
		n.URI = m.uriFor(to)
		m.nodes[to] = n
		delete(m.nodes, from)
		if d, ok := m.data[from]; ok {
			m.data[to] = d
			delete(m.data, from)
		}
	}
}

func transferPath(uri string) (string, error) {
	u, err := types.ParseURI(uri, "", "")
	if err != nil {
		return "", fmt.Errorf("bad transfer target %q: %w", uri, err)
	}
	return "/" + u.Path, nil
}

// handleResults answers the page a finished transfer redirects to.
func (m *MockVOSpace) handleResults(w http.ResponseWriter, _ *http.Request) {
	_, _ = io.WriteString(w, "COMPLETED")
}

func md5hex(content []byte) string {
	sum := md5.Sum(content)
	return hex.EncodeToString(sum[:])
}

// handleData serves and stores node content. The body transfers run
// outside the lock; a put may be streaming straight out of a get.
func (m *MockVOSpace) handleData(w http.ResponseWriter, r *http.Request) {
	nodePath := nodePathOf(r, "/data/pub/"+m.archive)

	m.mu.Lock()
	if m.failInjected(w, nodePath) {
		m.mu.Unlock()
		return
	}

	switch r.Method {
	case http.MethodGet:
		content, ok := m.data[nodePath]
		m.mu.Unlock()
		if !ok {
			http.Error(w, "NodeNotFound", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(content)))
		_, _ = w.Write(content)

	case http.MethodPut:
		m.mu.Unlock()
		content, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.nodes[path.Dir(nodePath)]; !ok {
			http.Error(w, "ContainerNotFound", http.StatusNotFound)
			return
		}
		if n, ok := m.nodes[nodePath]; ok && n.IsLocked() {
			http.Error(w, "NodeLocked", http.StatusLocked)
			return
		}
		if _, ok := m.nodes[nodePath]; !ok {
			m.putNode(nodePath, types.DataNodeType, nil)
		}
		m.storeData(nodePath, content)
		w.WriteHeader(http.StatusCreated)

	default:
		m.mu.Unlock()
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (m *MockVOSpace) writeNode(w http.ResponseWriter, n *types.Node) {
	body, err := n.XML()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/xml")
	_, _ = w.Write(body)
}
