// proxycore is a software load-balancing control plane in the style of
// haproxy: it accepts frontend connections, switches them to backend
// pools by domain, and load-balances across each pool's servers with
// active health checking.
//
// Usage:
//
//	# Start with default configuration
//	proxycore run
//
//	# Start with a custom configuration file
//	proxycore run --config /path/to/config.yaml
//
//	# Validate a configuration file without starting
//	proxycore run --dry-run
//
//	# Show version information
//	proxycore version
package main

func main() {
	Execute()
}
