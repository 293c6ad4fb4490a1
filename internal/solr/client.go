package solr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Document is a single index document. Field values may be plain values or
// atomic-update instructions produced by Set.
type Document map[string]interface{}

// Set wraps a value in an atomic-update instruction so an Update call only
// touches that field instead of replacing the whole document.
func Set(value interface{}) map[string]interface{} {
	return map[string]interface{}{"set": value}
}

// QueryOptions describes a select request.
type QueryOptions struct {
	Query         string
	FilterQueries []string
	Sort          string
	Start         int
	Rows          int
	Fields        []string
	FacetFields   []string
}

// FacetCount is one facet bucket.
type FacetCount struct {
	Value string
	Count int64
}

// QueryResult carries decoded select results.
type QueryResult struct {
	Total     int64
	Start     int64
	Documents []Document
	Facets    map[string][]FacetCount
}

// Client is a thin JSON client for a single search index core.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the core at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type selectResponse struct {
	Response struct {
		NumFound int64      `json:"numFound"`
		Start    int64      `json:"start"`
		Docs     []Document `json:"docs"`
	} `json:"response"`
	FacetCounts struct {
		FacetFields map[string][]json.RawMessage `json:"facet_fields"`
	} `json:"facet_counts"`
}

// Search runs a select request.
func (c *Client) Search(ctx context.Context, opts QueryOptions) (*QueryResult, error) {
	params := url.Values{}
	query := opts.Query
	if query == "" {
		query = "*:*"
	}
	params.Set("q", query)
	params.Set("wt", "json")
	for _, fq := range opts.FilterQueries {
		params.Add("fq", fq)
	}
	if opts.Sort != "" {
		params.Set("sort", opts.Sort)
	}
	params.Set("start", strconv.Itoa(opts.Start))
	rows := opts.Rows
	if rows < 0 {
		rows = 0
	}
	params.Set("rows", strconv.Itoa(rows))
	if len(opts.Fields) > 0 {
		fl := ""
		for i, f := range opts.Fields {
			if i > 0 {
				fl += ","
			}
			fl += f
		}
		params.Set("fl", fl)
	}
	if len(opts.FacetFields) > 0 {
		params.Set("facet", "true")
		for _, f := range opts.FacetFields {
			params.Add("facet.field", f)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/select?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build select request: %w", err)
	}
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var decoded selectResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode select response: %w", err)
	}

	result := &QueryResult{
		Total:     decoded.Response.NumFound,
		Start:     decoded.Response.Start,
		Documents: decoded.Response.Docs,
	}
	if len(decoded.FacetCounts.FacetFields) > 0 {
		result.Facets = make(map[string][]FacetCount, len(decoded.FacetCounts.FacetFields))
		for field, flat := range decoded.FacetCounts.FacetFields {
			counts := make([]FacetCount, 0, len(flat)/2)
			for i := 0; i+1 < len(flat); i += 2 {
				var value string
				var count int64
				if err := json.Unmarshal(flat[i], &value); err != nil {
					continue
				}
				if err := json.Unmarshal(flat[i+1], &count); err != nil {
					continue
				}
				counts = append(counts, FacetCount{Value: value, Count: count})
			}
			result.Facets[field] = counts
		}
	}
	return result, nil
}

// Update posts documents to the index.
func (c *Client) Update(ctx context.Context, docs []Document, commit bool) error {
	payload, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("encode update payload: %w", err)
	}
	return c.post(ctx, payload, commit)
}

// DeleteByID removes a single document.
func (c *Client) DeleteByID(ctx context.Context, id string, commit bool) error {
	payload, err := json.Marshal(map[string]interface{}{
		"delete": map[string]string{"id": id},
	})
	if err != nil {
		return fmt.Errorf("encode delete payload: %w", err)
	}
	return c.post(ctx, payload, commit)
}

// DeleteByQuery removes every document matching the query.
func (c *Client) DeleteByQuery(ctx context.Context, query string, commit bool) error {
	payload, err := json.Marshal(map[string]interface{}{
		"delete": map[string]string{"query": query},
	})
	if err != nil {
		return fmt.Errorf("encode delete payload: %w", err)
	}
	return c.post(ctx, payload, commit)
}

// Commit flushes pending index changes.
func (c *Client) Commit(ctx context.Context) error {
	return c.post(ctx, []byte(`{"commit":{}}`), false)
}

func (c *Client) post(ctx context.Context, payload []byte, commit bool) error {
	endpoint := c.baseURL + "/update"
	if commit {
		endpoint += "?commit=true"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build update request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if _, err := c.do(req); err != nil {
		return err
	}
	return nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("index request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read index response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("index returned %d: %s", resp.StatusCode, truncate(body, 512))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
