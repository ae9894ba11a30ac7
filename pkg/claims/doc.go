// Package claims reads the client-visible claims embedded in a bearer
// credential without verifying its signature.
//
// Verification belongs to the API server. The client only uses the
// embedded expiry to avoid sending credentials that are obviously stale,
// so every decoding failure is treated as an expired credential:
//
//	if claims.Expired(token, time.Now()) {
//	    // clear the credential, do not call the API
//	}
//
// Decode exposes the parsed Claims when the caller needs the subject.
package claims
