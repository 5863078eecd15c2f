package client

import (
	"bytes"
	"io"
	"os"

	"vos-tools/types"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
)

// Config is the client side configuration, stored as config.toml in the
// repo directory. Every field can be overridden with a VOS_ prefixed
// environment variable.
type Config struct {
	// Endpoint is the base URL of the VOSpace web service.
	Endpoint string
	// Authority is the resource authority filled into vos URIs that
	// carry none.
	Authority string
	// RootNode is prepended to relative node names.
	RootNode string
	// Archive is the storage archive used for data transfers.
	Archive string
	// CertFile is the proxy certificate used for authenticated calls.
	// When the file does not exist the client falls back to anonymous
	// access.
	CertFile string
	// Token is sent as a bearer token when set, instead of the
	// certificate.
	Token string

	TimeoutSeconds     int
	RetryWindowSeconds int
	CacheSize          int
	PageSize           int
}

func DefaultConfig() *Config {
	return &Config{
		Endpoint:           "https://www.cadc.hia.nrc.gc.ca",
		Authority:          types.DefaultAuthority,
		RootNode:           "vos:",
		Archive:            "vospace",
		CertFile:           "~/.ssl/cadcproxy.pem",
		TimeoutSeconds:     600,
		RetryWindowSeconds: 1200,
		CacheSize:          1000,
		PageSize:           500,
	}
}

func ConfigBytes(cfg interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	e := toml.NewEncoder(buf)
	if err := e.Encode(cfg); err != nil {
		return nil, types.Wrap(types.ErrInvalidConfig, err)
	}

	return buf.Bytes(), nil
}

// FromReader loads config from a reader instance.
func FromReader(reader io.Reader, def *Config) (*Config, error) {
	cfg := def
	_, err := toml.NewDecoder(reader).Decode(cfg)
	if err != nil {
		return nil, err
	}

	err = envconfig.Process("VOS", cfg)
	if err != nil {
		return nil, types.Wrapf(err, "processing env var overrides")
	}

	return cfg, nil
}

// FromFile loads config from the given path.
func FromFile(path string, def *Config) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close() //nolint: errcheck

	return FromReader(file, def)
}
