package client

import (
	"context"
	"net/http"

	"PimSync/internal/cs-api-go/request"
)

// SenderMock imitates sending requests and receiving responses
type SenderMock struct {
	response http.Response
	requests []request.Request
}

// Send ...
func (r *SenderMock) Send(ctx context.Context, req request.Request) (resp *http.Response, err error) {
	r.requests = append(r.requests, req)
	return &r.response, nil
}
