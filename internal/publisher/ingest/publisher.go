// Package ingest publishes lyric records to the HTTP ingestion endpoint.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/JakeFAU/misheard-crawler/internal/crawler"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 64 << 10
)

// Config controls the ingest publisher.
type Config struct {
	URL     string
	Timeout time.Duration
}

// Publisher implements crawler.Publisher by POSTing JSON records.
type Publisher struct {
	url    string
	client *http.Client
}

// New builds a Publisher. A nil client gets a default one with the configured timeout.
func New(cfg Config, client *http.Client) (*Publisher, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("ingest url is required")
	}
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Publisher{url: cfg.URL, client: client}, nil
}

// Publish sends one record. Only 201 counts as accepted; any other status is
// returned as a *crawler.RejectedError carrying the response body.
func (p *Publisher) Publish(ctx context.Context, record crawler.Record) (crawler.Receipt, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return crawler.Receipt{}, fmt.Errorf("marshal record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return crawler.Receipt{}, fmt.Errorf("build ingest request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return crawler.Receipt{}, fmt.Errorf("post record: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return crawler.Receipt{}, fmt.Errorf("read ingest response: %w", err)
	}
	if resp.StatusCode != http.StatusCreated {
		return crawler.Receipt{}, &crawler.RejectedError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return crawler.Receipt{StatusCode: resp.StatusCode, ID: receiptID(body)}, nil
}

// receiptID pulls the "id" field out of a created response. The service
// returns it as a number; strings are accepted too.
func receiptID(body []byte) string {
	var created struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(body, &created); err != nil || len(created.ID) == 0 {
		return ""
	}
	id := strings.Trim(string(created.ID), `"`)
	if id == "null" {
		return ""
	}
	return id
}
