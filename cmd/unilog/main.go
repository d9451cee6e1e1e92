package main

import (
	"os"

	"unilog/internal/commands"
)

// version is stamped by the build, -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := commands.Execute(version); err != nil {
		os.Exit(1)
	}
}
