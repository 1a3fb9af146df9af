// Package memory keeps published records in memory. It backs dry runs and tests.
package memory

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/JakeFAU/misheard-crawler/internal/crawler"
)

// Publisher stores published records for inspection and accepts all of them.
type Publisher struct {
	mu      sync.RWMutex
	records []crawler.Record
}

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records the lyric and returns a pseudo ID.
func (p *Publisher) Publish(_ context.Context, record crawler.Record) (crawler.Receipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, record)
	return crawler.Receipt{
		StatusCode: http.StatusCreated,
		ID:         fmt.Sprintf("memory-%d", len(p.records)),
	}, nil
}

// Records returns a copy of the published records in publish order.
func (p *Publisher) Records() []crawler.Record {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]crawler.Record, len(p.records))
	copy(out, p.records)
	return out
}

// Len reports how many records were published.
func (p *Publisher) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.records)
}
