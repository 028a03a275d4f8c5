// Package cmd implements the command-line interface of mockbody. It provides
// a hierarchical command structure for running the mock server and for
// working with it as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Starts the mock server with the configured payload source
//   - served: Reads the served log (which payload was served for which request)
//   - perf: Load tests a running server and checks the payload distribution
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See mockbody -help for a list of all commands.
package cmd
