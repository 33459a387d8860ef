package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"github.com/thanhdai917/clickhouse/clickhouse"
	"github.com/thanhdai917/clickhouse/delimited"
)

type queryCmd struct {
	Statement string `arg:"" help:"SELECT statement."`
	Limit     int    `help:"Maximum number of rows to print, 0 prints all." default:"0"`
	Arrow     bool   `help:"Request ArrowStream instead of TabSeparatedWithNamesAndTypes."`
}

func (c *queryCmd) Run(g *Globals, out *output) error {
	conn, err := g.connect()
	if err != nil {
		return err
	}
	format := clickhouse.FormatTabSeparated
	if c.Arrow {
		format = clickhouse.FormatArrowStream
	}
	stream, err := conn.SelectFormat(context.Background(), format, c.Statement, nil)
	if err != nil {
		return err
	}
	defer stream.Close()

	printed := 0
	for (c.Limit <= 0 || printed < c.Limit) && stream.Next() {
		if err := out.printJSON(stream.Row()); err != nil {
			return err
		}
		printed++
	}
	if err := stream.Err(); err != nil {
		return err
	}
	log.Debugf("Printed %d rows", printed)
	return nil
}

type pageCmd struct {
	Statement string `arg:"" help:"SELECT statement without LIMIT."`
	PerPage   int    `help:"Rows per page." default:"20"`
	Page      int    `help:"1-based page number." default:"1"`
}

func (c *pageCmd) Run(g *Globals, out *output) error {
	conn, err := g.connect()
	if err != nil {
		return err
	}
	page, err := conn.Paginate(context.Background(), c.Statement, c.PerPage, c.Page)
	if err != nil {
		return err
	}
	return out.printJSON(page)
}

type countCmd struct {
	Statement    string `arg:"" help:"SELECT statement."`
	CountGroups  bool   `help:"Count the groups of a GROUP BY statement."`
	RequireWhere bool   `help:"Reject statements without a WHERE clause."`
}

func (c *countCmd) Run(out *output) error {
	rewriter := clickhouse.NewQueryRewriter(clickhouse.RewriterConfig{
		CountGroups:  c.CountGroups,
		RequireWhere: c.RequireWhere,
	})
	countQuery, err := rewriter.CountQuery(c.Statement)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, countQuery)
	return err
}

type importCmd struct {
	File        string   `arg:"" type:"existingfile" help:"Delimited file to import."`
	Table       string   `arg:"" help:"Target table."`
	Columns     []string `help:"Target columns. Defaults to the file header."`
	Delimiter   string   `help:"Field delimiter, detected from the first line when empty. Use tab for a tab."`
	Enclosure   string   `help:"Quote character, defaults to a double quote."`
	Encoding    string   `help:"Character encoding of the file." default:"utf-8"`
	NoHeader    bool     `help:"The first line is data, not a header."`
	Create      bool     `help:"Create the table with String columns before importing."`
	BatchSize   int      `help:"Rows per INSERT." default:"1000"`
	Concurrency int      `help:"Batches in flight." default:"1"`
	Dedup       bool     `help:"Send an insert_deduplication_token with every batch."`
}

func (c *importCmd) Run(g *Globals, out *output) error {
	delimiter, err := parseRune(c.Delimiter)
	if err != nil {
		return fmt.Errorf("bad delimiter: %w", err)
	}
	enclosure, err := parseRune(c.Enclosure)
	if err != nil {
		return fmt.Errorf("bad enclosure: %w", err)
	}
	f, err := os.Open(c.File)
	if err != nil {
		return err
	}
	defer f.Close()

	reader, err := delimited.NewReader(f, delimited.Options{
		Delimiter: delimiter,
		Enclosure: enclosure,
		NoHeader:  c.NoHeader,
		Encoding:  c.Encoding,
	})
	if err != nil {
		return err
	}
	columns := c.Columns
	if len(columns) == 0 {
		columns = reader.Fields()
	}
	if len(columns) == 0 {
		return errors.New("--columns is required for a file without a header")
	}

	conn, err := g.connect(func(config *clickhouse.ClientConfig) {
		config.Import = clickhouse.ImportConfig{
			BatchSize:   c.BatchSize,
			Concurrency: c.Concurrency,
			Deduplicate: c.Dedup,
		}
	})
	if err != nil {
		return err
	}
	ctx := context.Background()
	if c.Create {
		specs := make([]clickhouse.ColumnSpec, len(columns))
		for i, name := range columns {
			specs[i] = clickhouse.ColumnSpec{Name: name, Type: "string"}
		}
		if err := conn.CreateTable(ctx, c.Table, specs); err != nil {
			return err
		}
	}
	imported, err := conn.Import(ctx, c.Table, reader, columns)
	if err != nil {
		log.Errorf("Import into %s stopped after %d rows", c.Table, imported)
		return err
	}
	log.Infof("Imported %d rows into %s", imported, c.Table)
	return out.printJSON(map[string]interface{}{"table": c.Table, "rows": imported})
}

// parseRune reads a single-character flag. Empty means unset.
func parseRune(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case "tab", `\t`:
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("%q is not a single character", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

type createTableCmd struct {
	Table   string   `arg:"" help:"Table name."`
	Columns []string `arg:"" help:"Columns as name:type where type is float, integer, datetime or string."`
}

func (c *createTableCmd) Run(g *Globals) error {
	specs, err := parseColumnSpecs(c.Columns)
	if err != nil {
		return err
	}
	conn, err := g.connect()
	if err != nil {
		return err
	}
	if err := conn.CreateTable(context.Background(), c.Table, specs); err != nil {
		return err
	}
	log.Infof("Created table %s", c.Table)
	return nil
}

func parseColumnSpecs(columns []string) ([]clickhouse.ColumnSpec, error) {
	specs := make([]clickhouse.ColumnSpec, 0, len(columns))
	for _, column := range columns {
		name, genericType, found := strings.Cut(column, ":")
		if !found {
			genericType = "string"
		}
		if name == "" {
			return nil, fmt.Errorf("column %q has no name", column)
		}
		specs = append(specs, clickhouse.ColumnSpec{Name: name, Type: genericType})
	}
	return specs, nil
}

type describeCmd struct {
	Table string `arg:"" help:"Table name."`
}

func (c *describeCmd) Run(g *Globals, out *output) error {
	conn, err := g.connect()
	if err != nil {
		return err
	}
	columns, err := conn.TableDetail(context.Background(), c.Table)
	if err != nil {
		return err
	}
	types := conn.TypeMapper()
	for _, column := range columns {
		if _, err := fmt.Fprintf(out, "%s\t%s\t%s\n", column.Name, column.Type, types.Generic(column.Type)); err != nil {
			return err
		}
	}
	return nil
}
