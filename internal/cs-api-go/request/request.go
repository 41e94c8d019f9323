package request // import "PimSync/internal/cs-api-go/request"

import (
	"net/http"
	"net/url"
)

// Request запрос к CS-Cart API. Endpoint относительно префикса API (categories, products/15).
type Request struct {
	Method   string
	Endpoint string
	Values   url.Values
	Body     interface{}
}

// Idempotent повтор запроса не создает новых сущностей. POST в CS-Cart всегда создает.
func (r Request) Idempotent() bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}
