// Package installer installs, verifies and removes RCAS distributions.
//
// An installation places the package payload under <prefix>/lib/rcas, writes
// one launcher per console script to <prefix>/bin and records every written
// file with its checksum in <prefix>/lib/rcas/INSTALLED.yaml. Files are
// replaced atomically and verified against the descriptor checksums while
// being applied.
package installer
