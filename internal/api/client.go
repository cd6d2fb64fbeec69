package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mesh-intelligence/grid/pkg/types"
)

const defaultClientTimeout = 60 * time.Second

// Client calls the grid endpoints as one user. It satisfies the editor's
// Mutator, so an editor can commit cells over HTTP.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient returns a client for the server at baseURL that authenticates
// with token. A nil hc uses a client with a default timeout.
func NewClient(baseURL, token string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: defaultClientTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    hc,
	}
}

func (c *Client) Session(ctx context.Context) (*SessionResponse, error) {
	var out SessionResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/session", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetOrCreateDefaultTable(ctx context.Context) (*types.Aggregate, error) {
	var out types.Aggregate
	if err := c.do(ctx, http.MethodGet, "/api/v1/tables/default", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetBases(ctx context.Context) ([]types.BaseSummary, error) {
	var out []types.BaseSummary
	if err := c.do(ctx, http.MethodGet, "/api/v1/bases", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateBase(ctx context.Context, name string) (*types.Base, error) {
	var out types.Base
	if err := c.do(ctx, http.MethodPost, "/api/v1/bases", CreateBaseRequest{Name: name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateTable(ctx context.Context, baseID, name string) (*types.Aggregate, error) {
	var out types.Aggregate
	path := "/api/v1/bases/" + url.PathEscape(baseID) + "/tables"
	if err := c.do(ctx, http.MethodPost, path, CreateTableRequest{Name: name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Aggregate reads the table's columns and first page of rows.
func (c *Client) Aggregate(ctx context.Context, tableID string) (*types.Aggregate, error) {
	var out types.Aggregate
	if err := c.do(ctx, http.MethodGet, "/api/v1/tables/"+url.PathEscape(tableID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetTableRows(ctx context.Context, tableID string, page, limit int) (*types.RowPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	var out types.RowPage
	if err := c.do(ctx, http.MethodGet, tablePath(tableID, "rows")+"?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateCell(ctx context.Context, u types.CellUpdate) (*types.Aggregate, error) {
	var out types.Aggregate
	if err := c.do(ctx, http.MethodPost, tablePath(u.TableID, "cells"), cellRequest(u), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PatchCell(ctx context.Context, u types.CellUpdate) (*types.CellPatch, error) {
	var out types.CellPatch
	if err := c.do(ctx, http.MethodPatch, tablePath(u.TableID, "cells"), cellRequest(u), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AddColumn(ctx context.Context, tableID, name, columnType string) (*types.ColumnAdded, error) {
	var out types.ColumnAdded
	req := AddColumnRequest{ColumnName: name, ColumnType: columnType}
	if err := c.do(ctx, http.MethodPost, tablePath(tableID, "columns"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AddRow(ctx context.Context, tableID string) (*types.Aggregate, error) {
	var out types.Aggregate
	if err := c.do(ctx, http.MethodPost, tablePath(tableID, "rows"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AddBulkRows(ctx context.Context, tableID string, count int) (*types.Aggregate, error) {
	var out types.Aggregate
	if err := c.do(ctx, http.MethodPost, tablePath(tableID, "rows/bulk"), AddBulkRowsRequest{Count: count}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func tablePath(tableID, suffix string) string {
	return "/api/v1/tables/" + url.PathEscape(tableID) + "/" + suffix
}

func cellRequest(u types.CellUpdate) UpdateCellRequest {
	return UpdateCellRequest{
		RowIndex: u.RowIndex,
		RowID:    u.RowID,
		ColumnID: u.ColumnID,
		Value:    u.Value,
	}
}

// do sends one request and decodes a 2xx body into out. Error responses
// become the matching sentinel error wrapped with the server's message.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", types.ErrStorage, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Message == "" {
			e.Message = resp.Status
		}
		return fmt.Errorf("%w: %s", statusError(resp.StatusCode), e.Message)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
