// Package credentials holds the mutable header set a client attaches to every
// outgoing request, typically a bearer token.
//
// A Store is owned by one client instance. Header names are canonicalized with
// net/http.CanonicalHeaderKey on every write, so "authorization" and
// "Authorization" address the same entry. All reads return copies, which lets
// a retry build its headers from a consistent snapshot while a refresh writes
// new values.
package credentials
