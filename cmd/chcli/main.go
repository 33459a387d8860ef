package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	log "github.com/sirupsen/logrus"

	"github.com/thanhdai917/clickhouse/clickhouse"
)

// Globals holds the connection flags shared by every command.
type Globals struct {
	Connection  string        `help:"JSON connection string with host, port, database, username and password. Overrides --host." env:"CLICKHOUSE_CONNECTION"`
	Host        []string      `help:"ClickHouse HTTP endpoints as host:port or URL." default:"localhost:8123" env:"CLICKHOUSE_HOST"`
	Database    string        `help:"Database to run statements against." env:"CLICKHOUSE_DATABASE"`
	User        string        `help:"User name." env:"CLICKHOUSE_USER"`
	Password    string        `help:"Password." env:"CLICKHOUSE_PASSWORD"`
	Compression string        `help:"Response and insert compression: gzip, deflate, zstd, lz4 or snappy."`
	Timeout     time.Duration `help:"HTTP timeout, 0 disables it."`
	Setting     []string      `help:"ClickHouse setting sent with every request, as name=value."`
	LogLevel    string        `help:"Log level." default:"info" enum:"debug,info,warn,error"`
}

type cli struct {
	Globals

	Query       queryCmd       `cmd:"" help:"Run a SELECT and print rows as JSON lines."`
	Page        pageCmd        `cmd:"" help:"Print one page of a SELECT."`
	Count       countCmd       `cmd:"" help:"Print the count query derived from a SELECT without running it."`
	Import      importCmd      `cmd:"" help:"Bulk import a delimited file into a table."`
	CreateTable createTableCmd `cmd:"" help:"Create a table from name:type column specs."`
	Describe    describeCmd    `cmd:"" help:"Print the columns of a table."`
}

// output is where commands print results.
type output struct {
	io.Writer
}

func (o *output) printJSON(v interface{}) error {
	return json.NewEncoder(o).Encode(v)
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, stdout io.Writer) error {
	var arguments cli
	parser, err := kong.New(&arguments,
		kong.Name("chcli"),
		kong.Description("Query, paginate and bulk load ClickHouse over HTTP."),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	level, err := log.ParseLevel(arguments.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	return kctx.Run(&arguments.Globals, &output{stdout})
}

// config builds the client config described by the flags.
func (g *Globals) config() (*clickhouse.ClientConfig, error) {
	config := &clickhouse.ClientConfig{HostList: g.Host}
	if g.Connection != "" {
		parsed, err := clickhouse.ParseConnectionString(g.Connection)
		if err != nil {
			return nil, err
		}
		config = parsed
	}
	if g.Database != "" {
		config.Database = g.Database
	}
	if g.User != "" {
		config.Username = g.User
	}
	if g.Password != "" {
		config.Password = g.Password
	}
	config.Compression = g.Compression
	config.HTTPTimeout = g.Timeout
	for _, setting := range g.Setting {
		name, value, ok := strings.Cut(setting, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("setting %q is not name=value", setting)
		}
		if config.Settings == nil {
			config.Settings = map[string]string{}
		}
		config.Settings[name] = value
	}
	return config, nil
}

func (g *Globals) connect(configure ...func(*clickhouse.ClientConfig)) (*clickhouse.Connection, error) {
	config, err := g.config()
	if err != nil {
		return nil, err
	}
	for _, fn := range configure {
		fn(config)
	}
	return clickhouse.NewWithConfig(config)
}
