// Package integration runs the storage backends and the full storefront
// against PostgreSQL, MongoDB and Redis containers.
//
// Run with: go test -tags=integration ./tests/integration/...
package integration
