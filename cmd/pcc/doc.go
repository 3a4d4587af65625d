// Command pcc deploys and manages agents on Pipecat Cloud.
//
// The command tree is built with cobra. Every subcommand loads user settings
// through internal/config, talks to the control plane through internal/api,
// and prints human output to stdout with diagnostics on stderr. Deployments
// are resolved by internal/deployconfig and supervised by internal/deploy.
package main
