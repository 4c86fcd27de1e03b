//go:build tools

// Package messenger pins the code generators used by go:generate, so that
// mockgen resolves to the version in go.mod.
package messenger

import (
	_ "go.uber.org/mock/mockgen"
)
