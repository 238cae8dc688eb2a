package utils

import "go.uber.org/zap"

// NewLogger builds the zap logger every toridasu entrypoint shares. Debug
// mode uses the development config (console encoder, debug level) for local
// indexing and query runs; otherwise the production config emits JSON at
// info level for the HTTP server.
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
