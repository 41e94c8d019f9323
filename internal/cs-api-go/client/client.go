package client // import "PimSync/internal/cs-api-go/client"

import (
	"context"
	"net/http"
	"net/url"

	"PimSync/internal/cs-api-go/request"
)

// Client методы REST API CS-Cart, которыми пользуется синхронизация.
// Удаления нет: сущности в CS-Cart синхронизация не удаляет.
type Client struct {
	sender Sender
}

// Get чтение списков и сущностей (products, categories, vendors)
func (c *Client) Get(ctx context.Context, endpoint string, parameters url.Values) (*http.Response, error) {
	return c.sender.Send(ctx, request.Request{
		Method:   http.MethodGet,
		Endpoint: endpoint,
		Values:   parameters,
	})
}

// Post создание товара или категории, в ответе новый id
func (c *Client) Post(ctx context.Context, endpoint string, parameters url.Values, body interface{}) (*http.Response, error) {
	return c.sender.Send(ctx, request.Request{
		Method:   http.MethodPost,
		Endpoint: endpoint,
		Values:   parameters,
		Body:     body,
	})
}

// Put обновление по id, endpoint вида products/<id>
func (c *Client) Put(ctx context.Context, endpoint string, body interface{}) (*http.Response, error) {
	return c.sender.Send(ctx, request.Request{
		Method:   http.MethodPut,
		Endpoint: endpoint,
		Body:     body,
	})
}
