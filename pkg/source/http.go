// pkg/source/http.go
package source

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/David-Botos/vehicle-cleaner/pkg/model"
)

// HTTPLoader downloads the dataset CSV from a URL
type HTTPLoader struct {
	url    string
	client *resty.Client
	logger *zap.Logger
}

// NewHTTPLoader creates a loader for url. Server errors and throttling are retried.
func NewHTTPLoader(url string, timeout time.Duration, logger *zap.Logger) *HTTPLoader {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "text/csv, text/plain, */*").
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second)

	client.AddRetryCondition(retryCondition)

	return &HTTPLoader{url: url, client: client, logger: logger}
}

// Describe returns the URL
func (l *HTTPLoader) Describe() string {
	return l.url
}

// Load downloads and parses the CSV
func (l *HTTPLoader) Load(ctx context.Context) (*model.Table, error) {
	start := time.Now()

	resp, err := l.client.R().SetContext(ctx).Get(l.url)
	if err != nil {
		return nil, unavailable(l.url, err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return nil, unavailable(l.url, fmt.Errorf("download failed with status %d", resp.StatusCode()))
	}

	body := resp.Body()
	table, err := ReadCSV(bytes.NewReader(body))
	if err != nil {
		return nil, unavailable(l.url, err)
	}

	rows, cols := table.Shape()
	l.logger.Info("Downloaded dataset",
		zap.String("url", l.url),
		zap.Int("bytes", len(body)),
		zap.Int("rows", rows),
		zap.Int("columns", cols),
		zap.Duration("duration", time.Since(start)))

	return table, nil
}

// retryCondition retries network errors, server errors and throttling
func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	code := r.StatusCode()
	return code >= 500 || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}
