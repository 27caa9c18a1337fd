// Package command defines the guardian command line.
//
// It uses urfave/cli/v2. The run command starts the daemon; the other
// commands provision tokens, inspect configuration and query a running
// daemon over its local HTTP API.
package command
