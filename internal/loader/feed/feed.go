// Package feed implements a destination loader that posts rows to a remote
// HTTP endpoint, rate-limited so bulk migrations do not overwhelm the
// receiving API. The remote identifier returned for each row is recorded in
// the loader's ledger.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/nucleus/migrate-core/internal/core"
	"github.com/nucleus/migrate-core/internal/ledger"
	"github.com/nucleus/migrate-core/internal/model"
)

// Config holds feed loader settings.
type Config struct {
	Name      string
	URL       string
	Kind      string
	RateLimit float64
	RateBurst int
	Timeout   time.Duration
	Headers   map[string]string
}

// ParseConfig builds a Config from step parameters.
func ParseConfig(params map[string]any) (*Config, error) {
	cfg := &Config{
		RateLimit: 10.0,
		RateBurst: 5,
		Timeout:   30 * time.Second,
		Headers:   map[string]string{},
	}
	if v, ok := params["name"].(string); ok {
		cfg.Name = v
	}
	if v, ok := params["url"].(string); ok {
		cfg.URL = v
	}
	if v, ok := params["kind"].(string); ok {
		cfg.Kind = v
	}
	switch v := params["rate_limit"].(type) {
	case float64:
		cfg.RateLimit = v
	case int:
		cfg.RateLimit = float64(v)
	}
	if v, ok := params["rate_burst"].(int); ok {
		cfg.RateBurst = v
	}
	if v, ok := params["headers"].(map[string]any); ok {
		for k, hv := range v {
			cfg.Headers[k] = fmt.Sprint(hv)
		}
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("feed loader: url is required")
	}
	if cfg.Kind == "" {
		cfg.Kind = "feed"
	}
	if cfg.Name == "" {
		cfg.Name = "feed." + cfg.Kind
	}
	return cfg, nil
}

// Loader posts batch rows to the configured endpoint one at a time.
type Loader struct {
	cfg     *Config
	client  *http.Client
	limiter *rate.Limiter
	led     *ledger.Ledger
}

// New creates a feed loader from a configured load step.
func New(step model.Step) (*Loader, error) {
	cfg, err := ParseConfig(step.Params)
	if err != nil {
		return nil, err
	}
	return &Loader{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		led:     ledger.New(cfg.Name),
	}, nil
}

func (l *Loader) Name() string { return l.cfg.Name }
func (l *Loader) Kind() string { return l.cfg.Kind }

// Run posts each row as a JSON document. A rejected row is logged and
// skipped; connectivity failures surface as retryable coded errors.
func (l *Loader) Run(ctx context.Context, batch *model.Batch) error {
	for _, row := range batch.Rows {
		if err := l.limiter.Wait(ctx); err != nil {
			return err
		}

		payload := make(map[string]any, len(row))
		for k, v := range row {
			if model.IsMeta(k) && k != model.FieldUID {
				continue
			}
			payload[k] = v
		}
		body, err := json.Marshal(payload)
		if err != nil {
			log.Printf("loader=%s uid=%s encode failed, skipping row: %v", l.cfg.Name, row.UID(), err)
			continue
		}

		remoteID, err := l.post(ctx, body)
		if err != nil {
			var coded core.CodedError
			if errors.As(err, &coded) && coded.RetryableStatus() {
				return err
			}
			log.Printf("loader=%s uid=%s post failed, skipping row: %v", l.cfg.Name, row.UID(), err)
			continue
		}

		l.led.Append(ledger.Entry{
			model.FieldUID: row.UID(),
			"remote_id":    remoteID,
			"entity":       l.cfg.Kind,
			"url":          l.cfg.URL,
		})
	}
	return nil
}

func (l *Loader) post(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range l.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return "", classifyHTTPError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return "", core.WrapError(core.CodeDestinationUnavailable, true,
			fmt.Errorf("remote returned %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return "", core.WrapError(core.CodeLoadWriteFailed, false,
			fmt.Errorf("remote returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data))))
	}

	var out struct {
		ID any `json:"id"`
	}
	if err := json.Unmarshal(data, &out); err != nil || out.ID == nil {
		return "", nil
	}
	return fmt.Sprint(out.ID), nil
}

func (l *Loader) HasLedger() bool { return !l.led.Empty() }

func (l *Loader) Ledger() *ledger.Ledger { return l.led }

func (l *Loader) Close() error {
	l.client.CloseIdleConnections()
	return nil
}

func classifyHTTPError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline") {
		return core.WrapError(core.CodeDestinationUnavailable, true, err)
	}
	return err
}
