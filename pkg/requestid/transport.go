package requestid

import (
	"net/http"

	"github.com/google/uuid"
)

// New returns a fresh request ID.
func New() string {
	return uuid.NewString()
}

// Transport stamps every outgoing request with a request ID. An ID already
// in the request context is reused, so one logical operation spanning
// several calls keeps a single ID.
type Transport struct {
	Base http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	if req.Header.Get(Header) != "" {
		return base.RoundTrip(req)
	}

	id := FromContext(req.Context())
	if !isValidRequestID(id) {
		id = New()
	}

	// RoundTrippers must not modify the caller's request.
	out := req.Clone(WithContext(req.Context(), id))
	out.Header.Set(Header, id)
	return base.RoundTrip(out)
}
