// Package common holds the configuration and logging shared by the mock
// server, its transports and the command line.
//
// Key Components:
//
//   - ServerConfig: every setting of the server (endpoint, transport, lookup
//     policy, payload source, served log). Validate rejects inconsistent
//     combinations, String renders the configuration for the startup banner.
//
//   - LookupPolicy: soft policies answer with empty bodies when nothing can be
//     served, strict policies answer with 503 / 404.
//
//   - Logger: a custom logger installed into Dragonboat's logger registry,
//     which every package uses through logger.GetLogger.
package common
