package net

import (
	"context"
	"io"
	"net/http"
)

// RequestEnricher добавляет Basic авторизацию CS-Cart (email и API ключ) и заголовки
type RequestEnricher interface {
	EnrichRequest(r *http.Request, URL string)
}

// RequestCreator в тестах подменяется, чтобы проверить метод и тело запроса
type RequestCreator interface {
	NewRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error)
}

// Client обычно *http.Client с таймаутами из STOREFRONT
type Client interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPRequestCreator создает запросы через net/http
type HTTPRequestCreator struct{}

func (c *HTTPRequestCreator) NewRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, method, url, body)
}
