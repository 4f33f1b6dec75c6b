package jobqueue

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/career-engine/internal/platform/logging"
	"github.com/riskibarqy/career-engine/internal/platform/resilience"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const InternalJobTokenHeader = "X-Internal-Job-Token"

var errQStashTransient = crerr.New("qstash transient failure")

type QStashPublisherConfig struct {
	BaseURL          string
	Token            string
	TargetBaseURL    string
	Retries          int
	InternalJobToken string
	Timeout          time.Duration
	CircuitBreaker   resilience.CircuitBreakerConfig
}

// QStashPublisher posts job payloads to QStash, which calls back into the
// internal job endpoints of this service.
type QStashPublisher struct {
	client           *http.Client
	baseURL          string
	token            string
	targetBaseURL    string
	retries          int
	internalJobToken string
	logger           *logging.Logger
	breaker          *resilience.CircuitBreaker
	circuitEnabled   bool
}

func NewQStashPublisher(cfg QStashPublisherConfig, client *http.Client, logger *logging.Logger) *QStashPublisher {
	if logger == nil {
		logger = logging.Default()
	}
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	breakerCfg := cfg.CircuitBreaker
	if breakerCfg.OnStateChange == nil {
		breakerCfg.OnStateChange = func(from, to resilience.CircuitState) {
			logger.Warn("qstash circuit breaker state changed", "from", from, "to", to)
		}
	}

	return &QStashPublisher{
		client:           client,
		baseURL:          strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		token:            strings.TrimSpace(cfg.Token),
		targetBaseURL:    strings.TrimRight(strings.TrimSpace(cfg.TargetBaseURL), "/"),
		retries:          cfg.Retries,
		internalJobToken: strings.TrimSpace(cfg.InternalJobToken),
		logger:           logger,
		breaker:          resilience.NewCircuitBreaker(breakerCfg),
		circuitEnabled:   breakerCfg.Enabled,
	}
}

// publishRequest is one QStash publish call before it is sent.
type publishRequest struct {
	publishURL string
	targetURL  string
	path       string
	body       []byte
	delay      string
	dedupID    string
}

func (p *QStashPublisher) Enqueue(ctx context.Context, path string, payload any, delay time.Duration, deduplicationID string) error {
	req, err := p.buildRequest(path, payload, delay, deduplicationID)
	if err != nil {
		return err
	}

	bodyText := truncateForLog(string(req.body), 4096)
	curlPreview := buildQStashCurlPreview(req, p.retries, bodyText, p.internalJobToken != "")
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(
			attribute.String("qstash.target_url", req.targetURL),
			attribute.String("qstash.path", req.path),
			attribute.String("qstash.deduplication_id", req.dedupID),
			attribute.String("qstash.request_curl_preview", curlPreview),
		)
	}
	p.logger.DebugContext(ctx, "qstash publish request", "path", req.path, "target_url", req.targetURL, "curl_preview", curlPreview)

	send := func() error { return p.send(ctx, req) }
	var callErr error
	if p.circuitEnabled {
		callErr = p.breaker.Execute(send, isQStashTransient)
	} else {
		callErr = send()
	}
	if stderrors.Is(callErr, resilience.ErrCircuitOpen) {
		p.logger.WarnContext(ctx, "qstash circuit breaker rejected request", "state", p.breaker.State(), "path", req.path)
		return fmt.Errorf("qstash is temporarily unavailable: %w", callErr)
	}
	if callErr != nil {
		return callErr
	}

	p.logger.InfoContext(ctx, "qstash job published", "path", req.path, "delay", req.delay, "deduplication_id", req.dedupID)
	return nil
}

func (p *QStashPublisher) buildRequest(path string, payload any, delay time.Duration, deduplicationID string) (publishRequest, error) {
	path = "/" + strings.TrimLeft(strings.TrimSpace(path), "/")
	if path == "/" {
		return publishRequest{}, crerr.New("job path is required")
	}

	baseURL, err := validateHTTPBaseURL(p.baseURL)
	if err != nil {
		return publishRequest{}, crerr.Wrap(err, "invalid QSTASH_BASE_URL")
	}
	targetBaseURL, err := validateHTTPBaseURL(p.targetBaseURL)
	if err != nil {
		return publishRequest{}, crerr.Wrap(err, "invalid QSTASH_TARGET_BASE_URL")
	}

	if payload == nil {
		payload = map[string]any{}
	}
	body, err := sonic.Marshal(payload)
	if err != nil {
		return publishRequest{}, crerr.Wrap(err, "marshal job payload")
	}

	targetURL := targetBaseURL + path
	return publishRequest{
		publishURL: baseURL + "/v2/publish/" + targetURL,
		targetURL:  targetURL,
		path:       path,
		body:       body,
		delay:      normalizeDelay(delay),
		dedupID:    strings.TrimSpace(deduplicationID),
	}, nil
}

func (p *QStashPublisher) send(ctx context.Context, req publishRequest) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.publishURL, strings.NewReader(string(req.body)))
	if err != nil {
		return crerr.Wrap(err, "create qstash request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.token)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Upstash-Method", http.MethodPost)
	if p.retries > 0 {
		httpReq.Header.Set("Upstash-Retries", strconv.Itoa(p.retries))
	}
	if req.delay != "0s" {
		httpReq.Header.Set("Upstash-Delay", req.delay)
	}
	if req.dedupID != "" {
		httpReq.Header.Set("Upstash-Deduplication-Id", req.dedupID)
	}
	if p.internalJobToken != "" {
		httpReq.Header.Set("Upstash-Forward-"+InternalJobTokenHeader, p.internalJobToken)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: publish qstash job target_url=%s: %v", errQStashTransient, req.targetURL, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode/100 == 2 {
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if isQStashRetryableStatus(resp.StatusCode) {
		return fmt.Errorf("%w: publish qstash job status=%d target_url=%s body=%s",
			errQStashTransient, resp.StatusCode, req.targetURL, strings.TrimSpace(string(raw)))
	}
	return fmt.Errorf("publish qstash job status=%d target_url=%s body=%s",
		resp.StatusCode, req.targetURL, strings.TrimSpace(string(raw)))
}

func normalizeDelay(delay time.Duration) string {
	if delay <= 0 {
		return "0s"
	}
	return strconv.Itoa(int(delay.Round(time.Second).Seconds())) + "s"
}

func validateHTTPBaseURL(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", crerr.New("value is empty")
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return "", crerr.Wrapf(err, "parse %q", candidate)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", crerr.Newf("%q uses unsupported scheme=%q; expected http or https", candidate, parsed.Scheme)
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return "", crerr.Newf("%q has empty host", candidate)
	}

	return strings.TrimRight(candidate, "/"), nil
}

// buildQStashCurlPreview renders the publish call with secrets masked.
func buildQStashCurlPreview(req publishRequest, retries int, body string, withForwardToken bool) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	appendPart := func(part string) {
		if buf.Len() > 0 {
			_ = buf.WriteByte(' ')
		}
		_, _ = buf.WriteString(part)
	}
	header := func(value string) {
		appendPart("-H")
		appendPart(shellQuote(value))
	}

	appendPart("curl -X POST")
	appendPart(shellQuote(req.publishURL))
	header("Authorization: Bearer ***")
	header("Content-Type: application/json")
	header("Upstash-Method: POST")
	if retries > 0 {
		header("Upstash-Retries: " + strconv.Itoa(retries))
	}
	if req.delay != "" && req.delay != "0s" {
		header("Upstash-Delay: " + req.delay)
	}
	if req.dedupID != "" {
		header("Upstash-Deduplication-Id: " + req.dedupID)
	}
	if withForwardToken {
		header("Upstash-Forward-" + InternalJobTokenHeader + ": ***")
	}
	appendPart("-d")
	appendPart(shellQuote(body))

	return buf.String()
}

func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "'\"'\"'") + "'"
}

func truncateForLog(value string, max int) string {
	if max <= 0 || len(value) <= max {
		return value
	}
	return value[:max] + "...(truncated)"
}

// isQStashTransient keeps rejected payloads from counting against the
// breaker; they say nothing about QStash health.
func isQStashTransient(err error) bool {
	return stderrors.Is(err, errQStashTransient)
}

func isQStashRetryableStatus(statusCode int) bool {
	return statusCode == http.StatusRequestTimeout ||
		statusCode == http.StatusTooManyRequests ||
		statusCode >= http.StatusInternalServerError
}
