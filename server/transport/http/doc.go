// Package http implements the net/http transport of the mock server.
//
// Requests are routed with a chi router. The admin routes live under the
// configured prefix (default /_mock), every other method and path is answered
// with the next payload:
//
//	GET  {prefix}/healthz
//	GET  {prefix}/metrics
//	GET  {prefix}/payloads/{id}
//	GET  {prefix}/served/{requestId}
//	*    /*
//
// Bodies are written with a single io.Copy from the payload body, which
// hands the whole remaining chunk to the connection in one Write. HEAD
// requests get the headers only.
//
// The endpoint is either a TCP address (host:port) or a unix socket
// (unix:/path/to/mock.sock). A stale socket file is removed before listening.
//
// With log level debug every request is logged with its status, size and
// duration.
package http
