// Package testapi runs an in-process FocusForge API for tests.
//
// Server issues real HS256 credentials, hashes passwords with bcrypt and
// answers the auth, task, streak, report and leaderboard endpoints under
// /api with the same envelope as the production API. Hooks force failure
// statuses, add latency and revoke credentials so that client, transport
// and session manager behaviour can be exercised end to end.
package testapi
