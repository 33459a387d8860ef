package clickhouse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

const (
	defaultHost = "localhost"
	defaultPort = "8123"
)

// ClientConfig configs to create a ClickHouse Connection
type ClientConfig struct {
	// HostList holds ClickHouse HTTP endpoints as host:port or full http(s) URLs
	HostList []string
	// Zookeeper Configs, used to discover endpoints instead of HostList
	ZkConfig *ZookeeperConfig
	// Database every query runs against
	Database string
	Username string
	Password string
	// Secure switches bare host:port endpoints to https
	Secure bool
	// Additional HTTP headers to include in every request
	ExtraHTTPHeader map[string]string
	// HTTP request timeout; zero disables it, which suits long-running imports
	HTTPTimeout time.Duration
	// Compression is one of gzip, deflate, zstd, lz4, snappy or empty for none
	Compression string
	// Settings are ClickHouse settings sent as URL parameters with every request
	Settings map[string]string
	// RowLimit is the default number of rows ResultStream.Get reads
	RowLimit int
	// Rewriter controls count-query derivation for Paginate
	Rewriter RewriterConfig
	// Import controls bulk import batching
	Import ImportConfig
	// TypeMapper overrides the native type lexicon
	TypeMapper *TypeMapper
	// Metrics collects request and import statistics when set
	Metrics *Metrics
}

// ZookeeperConfig describes where ClickHouse HTTP endpoints are registered in ZooKeeper.
// Each child of Path is named host:port.
type ZookeeperConfig struct {
	ZookeeperPath     []string
	Path              string
	SessionTimeoutSec int
}

// ImportConfig describes how bulk imports are batched and dispatched.
type ImportConfig struct {
	// BatchSize is the number of rows per INSERT; defaults to 1000
	BatchSize int
	// Concurrency is the number of batches in flight; defaults to 1
	Concurrency int
	// Deduplicate sends an insert_deduplication_token derived from each batch
	Deduplicate bool
}

type connectionString struct {
	Host     string      `json:"host"`
	Port     json.Number `json:"port"`
	Database string      `json:"database"`
	Username string      `json:"username"`
	Password string      `json:"password"`
	Protocol string      `json:"protocol"`
	Secure   interface{} `json:"secure"`
}

// ParseConnectionString reads a JSON connection string such as
// {"host":"ch1","port":8123,"database":"default","username":"u","password":"p"}.
// host and port default to localhost:8123. A non-empty protocol or a truthy secure
// field selects https.
func ParseConnectionString(s string) (*ClientConfig, error) {
	decoder := json.NewDecoder(bytes.NewReader([]byte(s)))
	decoder.UseNumber()
	var cs connectionString
	if err := decoder.Decode(&cs); err != nil {
		return nil, fmt.Errorf("%w: wrong format json: %v", ErrConnectionConfig, err)
	}
	if cs.Host == "" {
		cs.Host = defaultHost
	}
	port := cs.Port.String()
	if port == "" {
		port = defaultPort
	}
	return &ClientConfig{
		HostList: []string{net.JoinHostPort(cs.Host, port)},
		Database: cs.Database,
		Username: cs.Username,
		Password: cs.Password,
		Secure:   cs.Protocol != "" || truthy(cs.Secure),
	}, nil
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != "" && t != "0" && t != "false"
	case json.Number:
		return t.String() != "0"
	default:
		return false
	}
}

func (c *ClientConfig) validate() error {
	if _, err := normalizeCompression(c.Compression); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionConfig, err)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("%w: negative HTTP timeout %v", ErrConnectionConfig, c.HTTPTimeout)
	}
	return nil
}
