// Package api implements the HTTP/XML client for the remote entity API.
//
// The client:
//   - Performs GET requests with retry and exponential backoff
//   - Attaches a bearer credential once per poll cycle via [Client.Authorized]
//   - Decodes XML collection payloads into normalized entity records
//
// The poll engine consumes it through a narrow Get contract; everything
// transport-specific stays behind this package boundary.
package api
