package auth // import "PimSync/internal/cs-api-go/auth"

import (
	"net/http"

	"PimSync/internal/cs-api-go/options"
)

// BasicAuthentication добавляет в запрос HTTP Basic (email:api_key)
type BasicAuthentication struct {
	Options options.Basic
}

// EnrichRequest ...
func (b *BasicAuthentication) EnrichRequest(r *http.Request, URL string) {
	r.SetBasicAuth(b.Options.Email, b.Options.APIKey)
}
