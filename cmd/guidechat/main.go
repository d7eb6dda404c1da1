// Command guidechat is the entry point for the GuideChat document assistant.
// It provides a CLI interface (via Cobra) and an HTTP server exposing the
// REST/SSE chat API.
package main

import (
	"fmt"
	"os"

	"github.com/guidechat-ai/guidechat/cmd/guidechat/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
