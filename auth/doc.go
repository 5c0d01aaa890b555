// Package auth provides the JWT primitives used by healthops.
//
// Inbound, Require verifies HS256 bearer tokens on mutating API routes and
// checks roles. Outbound, a TokenSource signs a short-lived service token that
// Transport attaches to every probe request.
package auth
