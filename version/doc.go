// Package version reports build information for flowkit binaries.
//
// Values are injected with -ldflags and completed from the Go build info
// when missing:
//
//	go build -ldflags "-X github.com/kbukum/flowkit/version.Version=1.2.0" ./cmd/flowkit
package version
