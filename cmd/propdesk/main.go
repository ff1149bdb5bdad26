package main

import (
	"os"

	"github.com/wonny/propdesk/cmd/propdesk/commands"
)

// main is the entry point for the propdesk CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/propdesk [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
