package net // import "PimSync/internal/cs-api-go/net"

import (
	"PimSync/internal/cs-api-go/request"
)

// URLBuilder полный адрес запроса: адрес магазина, префикс /api/2.0/, endpoint и query
type URLBuilder interface {
	GetURL(req request.Request) string
}
