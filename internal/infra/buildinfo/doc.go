// Package buildinfo reports the version of the running binary.
//
// Release builds inject the values with ldflags:
//
//	go build -ldflags "-X github.com/yndnr/embedhttp/internal/infra/buildinfo.Version=v1.0.0"
//
// Values left at their defaults are filled from the module build
// information the Go toolchain embeds (VCS revision and time, Go version).
package buildinfo
