package net // import "PimSync/internal/cs-api-go/net"

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	stdnet "net"
	"net/http"
	"time"

	"PimSync/internal/cs-api-go/request"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// Sender provides HTTP Requests
type Sender struct {
	requestEnricher RequestEnricher
	urlBuilder      URLBuilder
	httpClient      Client
	requestCreator  RequestCreator
	limiter         *rate.Limiter
	userAgent       string

	retryCount   int
	retryWait    time.Duration
	retryMaxWait time.Duration
}

// Send отправляет запрос в CS-Cart API. Для GET/PUT/DELETE сетевые ошибки и 5xx повторяются
// с экспоненциальной паузой. POST повторяется только если соединение не было установлено,
// иначе сервер мог уже создать сущность. 4xx возвращаются как есть.
func (s *Sender) Send(ctx context.Context, req request.Request) (resp *http.Response, err error) {
	reqBody, err := s.marshalBody(req)
	if err != nil {
		return nil, err
	}

	wait := s.retryWait
	for attempt := 0; ; attempt++ {
		if s.limiter != nil {
			err = s.limiter.Wait(ctx)
			if err != nil {
				return nil, errors.Wrap(err, "rate limiter")
			}
		}

		httpReq, err := s.prepareRequest(ctx, req, reqBody)
		if err != nil {
			return nil, err
		}

		resp, err = s.httpClient.Do(httpReq)
		if !shouldRetry(ctx, req, resp, err) || attempt >= s.retryCount {
			return resp, err
		}

		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}

		wait *= 2
		if s.retryMaxWait > 0 && wait > s.retryMaxWait {
			wait = s.retryMaxWait
		}
	}
}

func shouldRetry(ctx context.Context, req request.Request, resp *http.Response, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if !req.Idempotent() {
		return err != nil && isDialError(err)
	}
	if err != nil {
		return true
	}
	return resp.StatusCode >= http.StatusInternalServerError
}

// isDialError запрос не ушел на сервер: ошибка при установке соединения
func isDialError(err error) bool {
	var opErr *stdnet.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

func (s *Sender) marshalBody(req request.Request) ([]byte, error) {
	if req.Body == nil || (req.Method != http.MethodPost && req.Method != http.MethodPut) {
		return nil, nil
	}
	reqBody, err := json.Marshal(req.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal body for %s", req.Endpoint)
	}
	return reqBody, nil
}

func (s *Sender) prepareRequest(ctx context.Context, req request.Request, reqBody []byte) (*http.Request, error) {
	URL := s.urlBuilder.GetURL(req)

	var body io.Reader
	if reqBody != nil {
		body = bytes.NewReader(reqBody)
	}

	r, err := s.requestCreator.NewRequest(ctx, req.Method, URL, body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create request %s %s", req.Method, URL)
	}
	s.requestEnricher.EnrichRequest(r, URL)
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Accept", "application/json")
	if s.userAgent != "" {
		r.Header.Set("User-Agent", s.userAgent)
	}
	return r, nil
}

// SetRequestEnricher ...
func (s *Sender) SetRequestEnricher(a RequestEnricher) {
	s.requestEnricher = a
}

// SetURLBuilder ...
func (s *Sender) SetURLBuilder(urlBuilder URLBuilder) {
	s.urlBuilder = urlBuilder
}

// SetHTTPClient ...
func (s *Sender) SetHTTPClient(c Client) {
	s.httpClient = c
}

// SetRequestCreator ...
func (s *Sender) SetRequestCreator(rc RequestCreator) {
	s.requestCreator = rc
}

// SetRateLimit rps <= 0 снимает ограничение
func (s *Sender) SetRateLimit(rps int) {
	if rps <= 0 {
		s.limiter = nil
		return
	}
	s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
}

// SetRetry ...
func (s *Sender) SetRetry(count int, wait, maxWait time.Duration) {
	s.retryCount = count
	s.retryWait = wait
	s.retryMaxWait = maxWait
}

// SetUserAgent ...
func (s *Sender) SetUserAgent(ua string) {
	s.userAgent = ua
}
