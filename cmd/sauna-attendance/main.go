package main

import (
	"os"

	"github.com/baranekm/sauna-attendance/cmd/sauna-attendance/commands"
)

// Version information - set during build
var (
	version = "dev"
	commit  = "none"
)

func main() {
	commands.SetVersionInfo(version, commit)

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
