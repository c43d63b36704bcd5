// Package modules contains the application's features.
//
// Each subdirectory is a module that implements the `module.Module` interface.
// Modules are listed in `internal/server/kernel.go` and are registered and
// booted by the server at startup.
package modules
