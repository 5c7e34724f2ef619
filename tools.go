//go:build tools

// Package tools pins the build and lint tooling run from Taskfile.yml.
package tools

import (
	_ "github.com/go-task/task/v3/cmd/task"
	_ "github.com/golangci/golangci-lint/v2/cmd/golangci-lint"
)
