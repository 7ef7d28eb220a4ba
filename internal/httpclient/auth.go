package httpclient

import "net/http"

// AuthProvider adds credentials to outbound requests.
type AuthProvider interface {
	Apply(req *http.Request) error
}

type BearerTokenAuth struct {
	Token string
}

func (a *BearerTokenAuth) Apply(req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+a.Token)
	return nil
}

// APIKeyAuth sets a fixed header, e.g. X-Webhook-Key.
type APIKeyAuth struct {
	Header string
	Key    string
}

func (a *APIKeyAuth) Apply(req *http.Request) error {
	req.Header.Set(a.Header, a.Key)
	return nil
}
