package bank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultLedgerKeyPrefix = "bank:card-block:"
	maxResponseSizeBytes   = 1 << 20
)

type UpstashConfig struct {
	URL     string        `envconfig:"URL" split_words:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

type UpstashOption func(*UpstashLedger)

func WithKeyPrefix(prefix string) UpstashOption {
	return func(l *UpstashLedger) {
		if p := strings.TrimSpace(prefix); p != "" {
			l.keyPrefix = p
		}
	}
}

// WithTTL expires block records; zero keeps them forever.
func WithTTL(ttl time.Duration) UpstashOption {
	return func(l *UpstashLedger) {
		l.ttl = ttl
	}
}

func WithHTTPClient(client *http.Client) UpstashOption {
	return func(l *UpstashLedger) {
		if client != nil {
			l.httpClient = client
		}
	}
}

// UpstashLedger keeps card blocks in Upstash Redis over its REST API. The
// check-and-store is a single SET NX.
type UpstashLedger struct {
	baseURL    string
	token      string
	httpClient *http.Client
	keyPrefix  string
	ttl        time.Duration
}

type redisRESTResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

func NewUpstashLedger(cfg UpstashConfig, opts ...UpstashOption) (*UpstashLedger, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("upstash redis url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid redis rest url: %w", err)
	}
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash redis token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	l := &UpstashLedger{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		keyPrefix:  defaultLedgerKeyPrefix,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	if l.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}
	return l, nil
}

func (l *UpstashLedger) Block(ctx context.Context, rec BlockRecord) (BlockRecord, bool, error) {
	if err := rec.validate(); err != nil {
		return BlockRecord{}, false, err
	}
	rec.BlockedAt = rec.BlockedAt.UTC()

	payload, err := json.Marshal(rec)
	if err != nil {
		return BlockRecord{}, false, fmt.Errorf("marshal card block: %w", err)
	}

	key := l.keyPrefix + cardKey(rec.CustomerID, rec.CardLast4)
	cmd := []any{"SET", key, string(payload), "NX"}
	if l.ttl > 0 {
		cmd = append(cmd, "EX", ttlSeconds(l.ttl))
	}

	resp, err := l.exec(ctx, cmd)
	if err != nil {
		return BlockRecord{}, false, err
	}
	if !isNull(resp.Result) {
		return rec, true, nil
	}

	resp, err = l.exec(ctx, []any{"GET", key})
	if err != nil {
		return BlockRecord{}, false, err
	}
	if isNull(resp.Result) {
		return BlockRecord{}, false, fmt.Errorf("card block %s vanished after SET NX", key)
	}

	var encoded string
	if err := json.Unmarshal(resp.Result, &encoded); err != nil {
		return BlockRecord{}, false, fmt.Errorf("decode card block payload: %w", err)
	}
	var stored BlockRecord
	if err := json.Unmarshal([]byte(encoded), &stored); err != nil {
		return BlockRecord{}, false, fmt.Errorf("unmarshal card block: %w", err)
	}
	return stored, false, nil
}

func (l *UpstashLedger) Close() error {
	l.httpClient.CloseIdleConnections()
	return nil
}

func (l *UpstashLedger) exec(ctx context.Context, command []any) (*redisRESTResponse, error) {
	body, err := json.Marshal(command)
	if err != nil {
		return nil, fmt.Errorf("marshal redis command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+l.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute redis request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read redis response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("redis http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed redisRESTResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode redis response: %w", err)
	}
	if parsed.Error != "" {
		return nil, errors.New(parsed.Error)
	}
	return &parsed, nil
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func ttlSeconds(ttl time.Duration) int64 {
	seconds := ttl / time.Second
	if seconds <= 0 {
		return 1
	}
	if ttl%time.Second != 0 {
		seconds++
	}
	return int64(seconds)
}
