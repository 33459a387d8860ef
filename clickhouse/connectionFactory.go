package clickhouse

import (
	"fmt"
	"net/http"
)

// NewFromHostList create a new ClickHouse connection with a pre configured host list.
func NewFromHostList(hostList []string) (*Connection, error) {
	clientConfig := &ClientConfig{
		HostList: hostList,
	}
	return NewWithConfig(clientConfig)
}

// NewFromConnectionString create a new ClickHouse connection from a JSON connection string.
func NewFromConnectionString(connectionString string) (*Connection, error) {
	clientConfig, err := ParseConnectionString(connectionString)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(clientConfig)
}

// NewFromZookeeper create a new ClickHouse connection whose endpoints are discovered
// from the children of zkPath.
func NewFromZookeeper(zkServers []string, zkPath string) (*Connection, error) {
	clientConfig := &ClientConfig{
		ZkConfig: &ZookeeperConfig{
			ZookeeperPath:     zkServers,
			Path:              zkPath,
			SessionTimeoutSec: defaultZkSessionTimeoutSec,
		},
	}
	return NewWithConfig(clientConfig)
}

// NewWithConfig create a new ClickHouse connection.
func NewWithConfig(config *ClientConfig) (*Connection, error) {
	return NewWithConfigAndClient(config, &http.Client{Timeout: config.HTTPTimeout})
}

// NewWithConfigAndClient create a new ClickHouse connection with a caller supplied HTTP client.
// config.HTTPTimeout is ignored in favour of the client's own settings.
func NewWithConfigAndClient(config *ClientConfig, client HTTPClient) (*Connection, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	compression, _ := normalizeCompression(config.Compression)
	transport := &httpClientTransport{
		client:      client,
		header:      config.ExtraHTTPHeader,
		database:    config.Database,
		username:    config.Username,
		password:    config.Password,
		secure:      config.Secure,
		compression: compression,
		settings:    config.Settings,
	}

	var selector hostSelector
	if config.ZkConfig != nil {
		selector = &zookeeperHostSelector{
			zkConfig: config.ZkConfig,
		}
	}
	if len(config.HostList) > 0 {
		selector = &simpleHostSelector{
			hostList: config.HostList,
		}
	}
	if selector == nil {
		return nil, fmt.Errorf(
			"%w: please specify at least one of ClickHouse host list or ZooKeeper to connect",
			ErrConnectionConfig,
		)
	}
	if err := selector.init(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionConfig, err)
	}
	return newConnection(config, transport, selector), nil
}

func newConnection(config *ClientConfig, transport clientTransport, selector hostSelector) *Connection {
	types := config.TypeMapper
	if types == nil {
		types = DefaultTypeMapper()
	}
	importConfig := config.Import
	if importConfig.BatchSize <= 0 {
		importConfig.BatchSize = DefaultImportBatchSize
	}
	if importConfig.Concurrency <= 0 {
		importConfig.Concurrency = 1
	}
	return &Connection{
		transport:    transport,
		hostSelector: selector,
		types:        types,
		rewriter:     NewQueryRewriter(config.Rewriter),
		rowLimit:     config.RowLimit,
		importConfig: importConfig,
		metrics:      config.Metrics,
	}
}
