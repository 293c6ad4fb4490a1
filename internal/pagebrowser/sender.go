package pagebrowser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// NopSender drops every notice. Used when notifications are disabled.
type NopSender struct{}

// Send discards the notice.
func (NopSender) Send(ctx context.Context, notice Notice) error { return nil }

// HTTPSender delivers notices over HTTP GET with basic auth, the contract
// the page rendering service expects.
type HTTPSender struct {
	refreshURL string
	deleteURL  string
	username   string
	password   string
	http       *http.Client
}

// NewHTTPSender builds a sender for the two downstream endpoints.
func NewHTTPSender(refreshURL, deleteURL, username, password string, timeout time.Duration) *HTTPSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSender{
		refreshURL: refreshURL,
		deleteURL:  deleteURL,
		username:   username,
		password:   password,
		http:       &http.Client{Timeout: timeout},
	}
}

// Send performs the GET for a notice.
func (s *HTTPSender) Send(ctx context.Context, notice Notice) error {
	endpoint := s.refreshURL
	flag := "publish"
	if notice.Action == ActionDelete {
		endpoint = s.deleteURL
		flag = "delete"
	}

	params := url.Values{}
	params.Set("archivefile", notice.ArchiveFileID)
	if notice.EadID != "" {
		params.Set("ead_id", notice.EadID)
	}
	params.Set(flag, "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build pagebrowser request: %w", err)
	}
	if s.username != "" {
		req.SetBasicAuth(s.username, s.password)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("pagebrowser request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("pagebrowser returned %d", resp.StatusCode)
	}
	return nil
}
