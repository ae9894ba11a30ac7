// Package authsession manages the lifecycle of the single signed-in
// session of a FocusForge client.
//
// A Manager resolves the stored credential at start-up, signs users in and
// out, re-validates on demand, watches the credential's expiry while signed
// in and reacts to the API rejecting a request. It always presents exactly
// one State: Initializing, Unauthenticated with a Reason, or Authenticated
// with the user's profile.
//
//	store, closer, _ := credential.Open(ctx, credCfg)
//	defer closer.Close()
//
//	client, _ := apiclient.New(apiCfg, apiclient.WithTokenSource(store))
//	manager := authsession.New(store, client)
//	client.OnUnauthorized(manager.HandleUnauthorized)
//	defer manager.Close()
//
//	_ = manager.Start(ctx)
//	states, cancel := manager.Subscribe()
//	defer cancel()
//	for s := range states {
//	    render(s)
//	}
//
// # Ordering
//
// Overlapping triggers are ordered by two rules. Validations of the same
// credential share one request. Login, Register, Logout and forced
// sign-outs advance a generation counter, and a validation or sign-in
// that began under an older generation is discarded with ErrSuperseded
// instead of overwriting the newer outcome.
//
// # Failures
//
// Only a 401 from the server, a missing credential or a locally expired
// credential end a session. Network and server failures are retried with
// exponential backoff and then reported as ErrValidationUnavailable; the
// credential is kept so Refresh can recover later.
package authsession
