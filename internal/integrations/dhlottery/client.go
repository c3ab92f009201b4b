// Package dhlottery fetches published 6/45 results from the dhlottery.co.kr
// JSON endpoint.
package dhlottery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"lottobot/internal/domain"
	"lottobot/internal/logger"
	"lottobot/internal/metrics"
)

const (
	DefaultBaseURL = "https://www.dhlottery.co.kr"

	DefaultMaxAttempts = 3
	InitialBackoff     = 500 * time.Millisecond
	MaxBackoff         = 10 * time.Second
	BackoffFactor      = 2

	maxBodyBytes = 64 << 10
)

// ErrUnexpectedResponse is returned when the body is not the expected JSON.
var ErrUnexpectedResponse = errors.New("unexpected provider response")

type Options struct {
	BaseURL       string
	RatePerSecond float64
	HTTPClient    *http.Client
	MaxAttempts   int
	// InitialBackoff is the wait before the first retry; it doubles per retry.
	InitialBackoff time.Duration
}

type Client struct {
	baseURL     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	backoff     time.Duration
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 1
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = InitialBackoff
	}
	return &Client{
		baseURL:     opts.BaseURL,
		httpClient:  opts.HTTPClient,
		limiter:     rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1),
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.InitialBackoff,
	}
}

type statusError struct {
	code int
}

func (e *statusError) Error() string { return fmt.Sprintf("provider returned HTTP %d", e.code) }

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	return !errors.Is(err, ErrUnexpectedResponse) && !errors.Is(err, domain.ErrDrawNotFound)
}

// FetchDraw returns the result for round. A round that has not been drawn
// yet yields domain.ErrDrawNotFound.
func (c *Client) FetchDraw(ctx context.Context, round int) (domain.Draw, error) {
	if round < 1 {
		return domain.Draw{}, fmt.Errorf("round must be positive, got %d", round)
	}

	q := url.Values{}
	q.Set("method", "getLottoNumber")
	q.Set("drwNo", strconv.Itoa(round))
	endpoint := c.baseURL + "/common.do?" + q.Encode()

	wait := c.backoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			logger.Warn("retrying draw fetch",
				zap.Int("round", round), zap.Int("attempt", attempt), zap.Duration("backoff", wait), zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return domain.Draw{}, ctx.Err()
			case <-time.After(wait):
			}
			wait = min(wait*BackoffFactor, MaxBackoff)
		}

		logger.Debug("fetching draw", zap.Int("round", round), zap.Int("attempt", attempt))
		body, err := c.get(ctx, endpoint)
		if err == nil {
			return parseDraw(body, round)
		}
		if ctx.Err() != nil {
			return domain.Draw{}, ctx.Err()
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	return domain.Draw{}, fmt.Errorf("fetch round %d: %w", round, lastErr)
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordProviderRequest("error", time.Since(start))
		return nil, err
	}
	defer resp.Body.Close()
	metrics.RecordProviderRequest(strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &statusError{code: resp.StatusCode}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

func parseDraw(body []byte, round int) (domain.Draw, error) {
	if !gjson.ValidBytes(body) {
		return domain.Draw{}, fmt.Errorf("%w: round %d: body is not JSON", ErrUnexpectedResponse, round)
	}
	res := gjson.ParseBytes(body)
	if rv := res.Get("returnValue").String(); rv != "success" {
		return domain.Draw{}, fmt.Errorf("%w: round %d (returnValue=%q)", domain.ErrDrawNotFound, round, rv)
	}

	nums := make([]int, 0, domain.PickCount)
	for i := 1; i <= domain.PickCount; i++ {
		nums = append(nums, int(res.Get("drwtNo"+strconv.Itoa(i)).Int()))
	}
	numbers, err := domain.NewNumbers(nums)
	if err != nil {
		return domain.Draw{}, fmt.Errorf("%w: round %d: %v", ErrUnexpectedResponse, round, err)
	}

	d := domain.Draw{
		Round:        int(res.Get("drwNo").Int()),
		Numbers:      numbers,
		Bonus:        int(res.Get("bnusNo").Int()),
		FirstPrize:   res.Get("firstWinamnt").Int(),
		FirstWinners: int(res.Get("firstPrzwnerCo").Int()),
		TotalSales:   res.Get("totSellamnt").Int(),
	}
	if date := res.Get("drwNoDate").String(); date != "" {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return domain.Draw{}, fmt.Errorf("%w: round %d: bad date %q", ErrUnexpectedResponse, round, date)
		}
		d.Date = parsed
	}
	if d.Round != round {
		return domain.Draw{}, fmt.Errorf("%w: asked for round %d, got %d", ErrUnexpectedResponse, round, d.Round)
	}
	if err := d.Validate(); err != nil {
		return domain.Draw{}, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	return d, nil
}
