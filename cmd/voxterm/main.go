// Package main is the entry point for the voxterm CLI.
//
// Usage:
//
//	voxterm [flags] <command> [subcommand] [args]
//
// Commands:
//
//	connect  - Start a live voice conversation
//	history  - Conversation history (list, usage, export, clear)
//	config   - Client settings (provider, key, model, voice, prompt, replay, gateway)
//	devices  - List audio devices
//	version  - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/voxterm/voxterm/cmd/voxterm/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
