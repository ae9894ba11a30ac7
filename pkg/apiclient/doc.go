// Package apiclient is the HTTP client for the FocusForge API.
//
// Client covers the authentication endpoints used by the session manager
// (register, login, "who am I") and the dashboard endpoints consumed by
// the UI (tasks, streaks, reports, leaderboard). Every request goes
// through AuthTransport, which attaches the stored credential as
// "Authorization: Bearer <credential>" and reports 401 responses through
// an unauthorized handler before the error reaches the caller.
//
// Errors are classified for the session lifecycle:
//
//   - ErrUnauthorized: the server rejected the credential (authoritative).
//   - ErrNetwork: the request never got a response.
//   - ErrServer: 5xx or an unreadable response body.
//   - ErrRequest: any other 4xx.
//
// Login and Register wrap every failure in *LoginError whose Message is
// suitable for display.
//
// # Usage
//
//	client, err := apiclient.New(apiclient.Config{BaseURL: "http://localhost:5000/api"},
//	    apiclient.WithTokenSource(store),
//	)
//	client.OnUnauthorized(manager.HandleUnauthorized)
//	tasks, err := client.Tasks(ctx, apiclient.TaskFilter{})
package apiclient
