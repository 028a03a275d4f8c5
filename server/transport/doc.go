// Package transport defines the interface between the mock server and its
// HTTP front ends.
//
// A transport accepts connections, builds a Request for every incoming HTTP
// request and routes it to one of the Handlers:
//
//	{prefix}/healthz            -> answered by the transport ("ok")
//	{prefix}/metrics            -> Handlers.Metrics
//	{prefix}/payloads/{id}      -> Handlers.Replay (400 for ids that are not numbers)
//	{prefix}/served/{requestId} -> Handlers.Lookup
//	everything else             -> Handlers.Serve
//
// Body responses carry the X-Payload-Id and X-Request-Id headers and an exact
// Content-Length. The request id is taken from the X-Request-Id request header
// or generated.
//
// Implementations:
//
//   - http: net/http with a chi router, supports unix socket endpoints
//   - fasthttp: valyala/fasthttp, streams bodies with SetBodyStream
package transport
