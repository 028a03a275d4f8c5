// Package fasthttp implements the valyala/fasthttp transport of the mock
// server. It serves the same routes as the net/http transport and is meant
// for load tests where the server itself must not become the bottleneck.
//
// Bodies are handed to fasthttp with SetBodyStream and their exact size, so
// the response carries a Content-Length and the payload bytes are copied to
// the connection without an intermediate buffer.
//
// Only TCP endpoints are supported.
package fasthttp
