package qrs

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ptarmiganlabs/ctrlq/errors"
)

// Idempotency categorizes a REST call for the retry policy. Create calls
// against QRS are not idempotent: retrying them on an application-level
// failure could duplicate tasks, so only connection-level errors are
// retried for them.
type Idempotency int

const (
	// Idempotent calls (GETs, listings) are retried on retriable statuses
	// and on connection errors
	Idempotent Idempotency = iota
	// NonIdempotent calls (creates, uploads) are retried on connection
	// errors only
	NonIdempotent
)

// Retry policy constants. The QRS app-upload endpoint is known to
// throttle; this policy is the only place back-off is handled.
const (
	retryCount    = 4
	retryBaseWait = 500 * time.Millisecond
	retryMaxWait  = 30 * time.Second
)

type ctxKey int

const idempotencyKey ctxKey = 0

// Response is the raw surface of a Repository call. JSON decoding is the
// caller's responsibility.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport issues authenticated, rate-limited, retrying REST calls
// against the Repository.
type Transport struct {
	session *Session
	rest    *resty.Client
	limiter *rate.Limiter
	log     *zap.SugaredLogger
}

// NewTransport builds the REST transport for a session.
func NewTransport(session *Session, timeout time.Duration, log *zap.SugaredLogger) *Transport {
	t := &Transport{
		session: session,
		// Writes are effectively serialized by the importer; the limiter
		// caps total request pressure on QRS across overlapping reads
		limiter: rate.NewLimiter(rate.Limit(10), 10),
		log:     log.Named("qrs.transport"),
	}

	client := resty.New().
		SetBaseURL(session.RepoBaseURL()).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetTLSClientConfig(session.TLSConfig()).
		SetRetryCount(retryCount).
		SetRetryWaitTime(retryBaseWait).
		SetRetryMaxWaitTime(retryMaxWait)

	if session.AuthType == "jwt" {
		client.SetAuthToken(session.JWT)
	} else {
		client.SetHeader("X-Qlik-User",
			fmt.Sprintf("UserDirectory=%s; UserId=%s", session.UserDirectory, session.UserID))
	}

	client.AddRetryCondition(t.retryCondition)
	client.SetRetryAfter(t.retryAfter)

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		// Per-call xrfkey: query parameter and header must match
		key := NewXrfkey()
		req.SetQueryParam("xrfkey", key)
		req.SetHeader("X-Qlik-Xrfkey", key)
		return t.limiter.Wait(req.Context())
	})

	t.rest = client
	return t
}

// retryCondition implements the policy of the session contract: retriable
// statuses only for idempotent calls, connection errors for everything.
func (t *Transport) retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	idem, _ := r.Request.Context().Value(idempotencyKey).(Idempotency)
	if idem == NonIdempotent {
		return false
	}
	switch r.StatusCode() {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// retryAfter computes exponential backoff (base 500 ms, cap 30 s). A 429
// carrying a Retry-After header raises the floor to the server's value.
func (t *Transport) retryAfter(_ *resty.Client, r *resty.Response) (time.Duration, error) {
	attempt := 1
	if r != nil && r.Request != nil {
		attempt = r.Request.Attempt
	}
	wait := retryBaseWait << (attempt - 1)
	if wait > retryMaxWait {
		wait = retryMaxWait
	}
	if r != nil && r.StatusCode() == http.StatusTooManyRequests {
		if ra := r.Header().Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil {
				if floor := time.Duration(secs) * time.Second; floor > wait {
					wait = floor
				}
			}
		}
	}
	t.log.Debugw("Retrying Repository call", "attempt", attempt, "wait", wait)
	return wait, nil
}

// Do issues one Repository call and returns the raw response. Status codes
// are not interpreted here beyond the retry policy; callers map them onto
// their own error kinds.
func (t *Transport) Do(ctx context.Context, method, path string, query url.Values, body interface{}, idem Idempotency) (*Response, error) {
	req := t.rest.R().
		SetContext(context.WithValue(ctx, idempotencyKey, idem))

	for k, vs := range query {
		for _, v := range vs {
			req.SetQueryParam(k, v)
		}
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrTransport, "%s %s: %v", method, path, err)
	}

	t.log.Debugw("Repository call",
		"method", method,
		"path", path,
		"status", resp.StatusCode(),
		"duration", time.Since(start),
	)

	return &Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
	}, nil
}

// Upload streams raw bytes (a QVF) to the Repository. Uploads are
// non-idempotent and sized in the hundreds of megabytes, so the body is
// handed to resty as-is rather than JSON-encoded.
func (t *Transport) Upload(ctx context.Context, path string, query url.Values, contentType string, body []byte) (*Response, error) {
	req := t.rest.R().
		SetContext(context.WithValue(ctx, idempotencyKey, NonIdempotent)).
		SetHeader("Content-Type", contentType).
		SetBody(body)

	for k, vs := range query {
		for _, v := range vs {
			req.SetQueryParam(k, v)
		}
	}

	resp, err := req.Execute(http.MethodPost, path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrTransport, "POST %s: %v", path, err)
	}
	return &Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
	}, nil
}
