// Package api serves the operator endpoints available while a crawl runs:
//   - GET /healthz for liveness.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/run for the live counters of the current crawl run.
package api
