// Package main is the entry point of the webaccept binary.
package main

import (
	"context"

	"github.com/liuxd6825/webaccept/internal/cmd"
)

func main() {
	cmd.ExecuteWithGlobalState(cmd.NewGlobalState(context.Background()))
}
