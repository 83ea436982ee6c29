// Package logger wraps zap for the rcas-setup commands.
//
// A global sugared logger writes console-formatted entries to stderr so that
// command output on stdout (manifests, reports) stays machine-readable.
// Services carry the logger in their context: WithName scopes it to a
// component, WithKV attaches fields, and the package-level helpers
// (Info, InfoKV, ErrorKV, ...) log through whatever the context holds.
package logger
