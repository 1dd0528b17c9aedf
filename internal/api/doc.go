// Package api provides the HTTP REST API for Helper Audit.
//
// It exposes stored analysis history, a health endpoint covering the
// infrastructure components, and a trigger endpoint for starting a new
// analysis run.
//
// The server follows the same lifecycle pattern as the other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
