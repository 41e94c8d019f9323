package client // import "PimSync/internal/cs-api-go/client"

import (
	"context"
	"net/http"

	"PimSync/internal/cs-api-go/request"
)

// Sender отправляет запрос в CS-Cart, реализация в net.Sender, в тестах SenderMock
type Sender interface {
	Send(ctx context.Context, req request.Request) (*http.Response, error)
}
