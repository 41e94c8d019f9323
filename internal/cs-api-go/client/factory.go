package client // import "PimSync/internal/cs-api-go/client"

import (
	stdnet "net"
	"net/http"
	"time"

	"PimSync/internal/cs-api-go/auth"
	"PimSync/internal/cs-api-go/net"
	"PimSync/internal/cs-api-go/options"
	"PimSync/internal/cs-api-go/url"
)

// Factory собирает Client с Basic-авторизацией, лимитом запросов и повторами
type Factory struct{}

// NewClient ...
func (f *Factory) NewClient(o options.Basic) Client {
	timeout := o.Options.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	connectTimeout := o.Options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	retryWait := o.Options.RetryWait
	if retryWait <= 0 {
		retryWait = 500 * time.Millisecond
	}
	retryMaxWait := o.Options.RetryMaxWait
	if retryMaxWait <= 0 {
		retryMaxWait = 5 * time.Second
	}

	builder := &url.Builder{}
	builder.SetOptions(o)

	sender := &net.Sender{}
	sender.SetURLBuilder(builder)
	sender.SetRequestEnricher(&auth.BasicAuthentication{Options: o})
	sender.SetRequestCreator(&net.HTTPRequestCreator{})
	sender.SetHTTPClient(&http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         (&stdnet.Dialer{Timeout: connectTimeout}).DialContext,
			TLSHandshakeTimeout: connectTimeout,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	})
	sender.SetRateLimit(o.Options.RPS)
	sender.SetRetry(o.Options.RetryCount, retryWait, retryMaxWait)
	sender.SetUserAgent(o.Options.UserAgent)

	return Client{sender: sender}
}

