package pricefeed

import (
	"net/http"
	"net/url"
)

// Authenticator attaches credentials to an outgoing request. Query parameters are
// passed separately because they are encoded after authentication.
type Authenticator interface {
	Authenticate(req *http.Request, query url.Values) error
}

// NoAuth leaves requests untouched, for public endpoints.
type NoAuth struct{}

func (NoAuth) Authenticate(*http.Request, url.Values) error { return nil }

// HeaderKeyAuthenticator sends an API key in a request header.
type HeaderKeyAuthenticator struct {
	header string
	apiKey string
}

func NewHeaderKeyAuthenticator(header, apiKey string) *HeaderKeyAuthenticator {
	return &HeaderKeyAuthenticator{header: header, apiKey: apiKey}
}

func (h *HeaderKeyAuthenticator) Authenticate(req *http.Request, _ url.Values) error {
	if h.apiKey != "" {
		req.Header.Set(h.header, h.apiKey)
	}
	return nil
}

// QueryKeyAuthenticator sends an API key as a query parameter.
type QueryKeyAuthenticator struct {
	param  string
	apiKey string
}

func NewQueryKeyAuthenticator(param, apiKey string) *QueryKeyAuthenticator {
	return &QueryKeyAuthenticator{param: param, apiKey: apiKey}
}

func (q *QueryKeyAuthenticator) Authenticate(_ *http.Request, query url.Values) error {
	if q.apiKey != "" {
		query.Set(q.param, q.apiKey)
	}
	return nil
}
