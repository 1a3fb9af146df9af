package detector

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/misheard-crawler/internal/crawler"
)

// Promoter is the detection half of a PromotingFetcher.
type Promoter interface {
	ShouldPromote(resp crawler.FetchResponse) bool
}

// PromotingFetcher fetches with a fast fetcher first and retries through the
// headless fetcher when the promoter flags the response.
type PromotingFetcher struct {
	fast     crawler.Fetcher
	headless crawler.Fetcher
	promoter Promoter
	logger   *zap.Logger
}

// NewPromotingFetcher wires the two fetchers together.
func NewPromotingFetcher(fast, headless crawler.Fetcher, promoter Promoter, logger *zap.Logger) *PromotingFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromotingFetcher{fast: fast, headless: headless, promoter: promoter, logger: logger.Named("promoter")}
}

// Fetch implements crawler.Fetcher. Errors from the fast path are returned
// as is; only a successful but suspicious response is promoted.
func (p *PromotingFetcher) Fetch(ctx context.Context, request crawler.FetchRequest) (crawler.FetchResponse, error) {
	resp, err := p.fast.Fetch(ctx, request)
	if err != nil || !p.promoter.ShouldPromote(resp) {
		return resp, err
	}
	p.logger.Debug("promoting to headless fetch",
		zap.String("url", request.URL),
		zap.Int("bytes", len(resp.Body)),
	)
	return p.headless.Fetch(ctx, request)
}
