package client

import (
	"crypto/tls"
	"net"
	"net/http"
	"os"
	"time"

	"vos-tools/build"
	"vos-tools/types"

	"github.com/mitchellh/go-homedir"
)

const (
	dialTimeout           = 30 * time.Second
	tlsHandshakeTimeout   = 10 * time.Second
	responseHeaderTimeout = 2 * time.Minute
	idleConnTimeout       = 90 * time.Second
	expectContinueTimeout = 1 * time.Second
	maxIdleConns          = 16
	maxIdleConnsPerHost   = 4
)

// Connection holds the proxy certificate and the shared HTTP client.
// Redirects are never followed automatically: the service leans on 302
// and 303 answers to steer data transfers, and those have to be handled
// by the caller.
type Connection struct {
	http      *http.Client
	userAgent string
	token     string
	certFile  string
	anonymous bool
}

func NewConnection(cfg *Config) (*Connection, error) {
	conn := &Connection{
		userAgent: "vos-tools/" + build.UserVersion(),
		token:     cfg.Token,
	}

	tlsCfg := &tls.Config{}
	certFile, err := homedir.Expand(cfg.CertFile)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(certFile); err == nil {
		cert, err := tls.LoadX509KeyPair(certFile, certFile)
		if err != nil {
			return nil, types.Wrapf(err, "loading certificate %s", certFile)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
		conn.certFile = certFile
	} else if cfg.Token == "" {
		log.Warnf("no certificate found at %s, using anonymous access", certFile)
		conn.anonymous = true
	}

	conn.http = &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          maxIdleConns,
			MaxIdleConnsPerHost:   maxIdleConnsPerHost,
			IdleConnTimeout:       idleConnTimeout,
			TLSHandshakeTimeout:   tlsHandshakeTimeout,
			ResponseHeaderTimeout: responseHeaderTimeout,
			ExpectContinueTimeout: expectContinueTimeout,
			TLSClientConfig:       tlsCfg,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return conn, nil
}

// Do sends a single request with the standard headers attached.
func (c *Connection) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "*/*")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.http.Do(req)
}

// Anonymous reports whether the connection carries no credentials.
func (c *Connection) Anonymous() bool {
	return c.anonymous
}

// CertFile returns the loaded certificate path, or "".
func (c *Connection) CertFile() string {
	return c.certFile
}

// CloseIdle drops kept-alive connections.
func (c *Connection) CloseIdle() {
	c.http.CloseIdleConnections()
}
