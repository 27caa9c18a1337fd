// Command guardian gates privileged local commands behind a hardware
// token.
//
// "guardian run" starts the daemon. It waits for the configured token,
// authenticates its key material and then executes the token's commands
// through the response scripts. The other subcommands inspect a running
// daemon, provision token volumes and validate configuration.
package main
