// Package requestid propagates request correlation identifiers between
// the FocusForge client and the API.
//
// Transport is an http.RoundTripper that stamps outgoing API calls with an
// "X-Request-ID" header, taking the ID from the request context when one
// is present and generating a UUID otherwise. Middleware is the server-side
// counterpart used by the in-process test API: it accepts a valid ID from
// the client or generates one, stores it in the context and echoes it back.
//
//	client := &http.Client{Transport: &requestid.Transport{Base: http.DefaultTransport}}
//	ctx := requestid.WithContext(ctx, requestid.New())
//
// LoggerExtractor plugs the ID into slog records built by package logger.
package requestid
