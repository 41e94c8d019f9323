package url // import "PimSync/internal/cs-api-go/url"

import (
	URL "net/url"
	"strings"

	"PimSync/internal/cs-api-go/options"
	"PimSync/internal/cs-api-go/request"
)

// Builder собирает полный URL запроса: адрес магазина + префикс API + endpoint + query
type Builder struct {
	options options.Basic
}

// SetOptions ...
func (b *Builder) SetOptions(o options.Basic) {
	b.options = o
}

// GetURL ...
func (b *Builder) GetURL(req request.Request) string {
	prefix := b.options.Options.Prefix
	if prefix == "" {
		prefix = "/api/2.0/"
	}

	u := strings.TrimRight(b.options.URL, "/") + "/" + strings.Trim(prefix, "/") + "/" + strings.TrimLeft(req.Endpoint, "/")
	if query := b.encode(req.Values); query != "" {
		u += "?" + query
	}
	return u
}

func (b *Builder) encode(values URL.Values) string {
	if len(values) == 0 {
		return ""
	}
	return values.Encode()
}
