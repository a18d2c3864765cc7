//go:build tools

// Package tools lists the development tools used by this module.
// They run through `go run` or `go install` and are never linked into the binaries.
package tools

// mockgen regenerates the gomock doubles under internal/mocks:
//
//	go generate ./internal/mocks/...
//
// It is pinned in the go:generate directives to the go.uber.org/mock version in go.mod.
//
// Air gives live reload while working on the HTTP surface:
//
//	go install github.com/air-verse/air@v1.63.0
//	air
