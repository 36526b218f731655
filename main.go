// Package main is the entry point for the ccmonitor CLI.
package main

import (
	"ccmonitor/cli/cmd"
)

func main() {
	cmd.Execute()
}
