package cmd

// Version is set at build time via -ldflags "-X ccmonitor/cli/cmd.Version=...".
var Version = "0.0.0-dev"
