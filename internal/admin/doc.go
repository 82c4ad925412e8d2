// Package admin provides the local HTTP endpoint for monitoring the
// agent: health, runtime statistics, sanitized configuration, and the
// Prometheus scrape handler.
package admin
