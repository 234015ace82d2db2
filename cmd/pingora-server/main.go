// Pingora-server is a pluggable HTTP server assembled from modules.
//
// Every module plugs into a shared pipeline that carries requests from the
// listener to the first module that answers them:
//   - Request ID tagging for log correlation
//   - Custom response headers by host/path rules
//   - URI rewriting with internal rewrites and redirects
//   - Prometheus metrics endpoint
//   - Static file serving
//
// Usage:
//
//	# Start with a configuration file
//	pingora-server run --config /etc/pingora/config.yaml
//
//	# Serve the current directory without a configuration file
//	pingora-server run --root . --listen 127.0.0.1:8080
//
//	# Check configuration files without starting the server
//	pingora-server validate --config config.yaml
//
//	# List the modules in the pipeline
//	pingora-server modules
//
//	# Show version information
//	pingora-server version
package main

func main() {
	Execute()
}
