package clickhouse

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// PageResult is one page of a paginated query.
type PageResult struct {
	TotalItems   int64 `json:"totalItem"`
	ItemsPerPage int   `json:"itemsPerPage"`
	TotalPages   int64 `json:"totalPage"`
	CurrentPage  int   `json:"currentPage"`
	Rows         []Row `json:"result"`
}

// Paginate returns page (1-based, values below 1 mean 1) of query, itemsPerPage rows per
// page. It issues one count query and one windowed query.
func (c *Connection) Paginate(ctx context.Context, query string, itemsPerPage int, page int) (*PageResult, error) {
	return c.PaginateWithParams(ctx, query, nil, itemsPerPage, page)
}

// PaginateWithParams is Paginate for a query with :name placeholders.
func (c *Connection) PaginateWithParams(ctx context.Context, query string, params map[string]interface{}, itemsPerPage int, page int) (*PageResult, error) {
	if itemsPerPage <= 0 {
		return nil, fmt.Errorf("itemsPerPage must be positive, got %d", itemsPerPage)
	}
	if page < 1 {
		page = 1
	}
	statement, err := formatQuery(strings.Trim(query, statementTrimSet), params)
	if err != nil {
		return nil, fmt.Errorf("failed to format query: %w", err)
	}
	countQuery, err := c.rewriter.CountQuery(statement)
	if err != nil {
		return nil, err
	}
	totalItems, err := c.totalItems(ctx, countQuery)
	if err != nil {
		return nil, err
	}
	offset := int64(page-1) * int64(itemsPerPage)
	var rows []Row
	err = c.WithSelect(ctx, c.rewriter.WindowQuery(statement, offset, itemsPerPage), nil, func(stream *ResultStream) error {
		var err error
		rows, err = stream.All()
		return err
	})
	if err != nil {
		return nil, err
	}
	return &PageResult{
		TotalItems:   totalItems,
		ItemsPerPage: itemsPerPage,
		TotalPages:   totalPages(totalItems, itemsPerPage),
		CurrentPage:  page,
		Rows:         rows,
	}, nil
}

func (c *Connection) totalItems(ctx context.Context, countQuery string) (int64, error) {
	var total int64
	err := c.WithSelect(ctx, countQuery, nil, func(stream *ResultStream) error {
		row, err := stream.First()
		if err != nil {
			return err
		}
		value, ok := row["total"].(string)
		if !ok || value == "" {
			return nil
		}
		total, err = strconv.ParseInt(value, 10, 64)
		if err != nil {
			return newFormatError("count query returned non-numeric total %q", value)
		}
		return nil
	})
	return total, err
}

func totalPages(totalItems int64, itemsPerPage int) int64 {
	perPage := int64(itemsPerPage)
	return (totalItems + perPage - 1) / perPage
}
