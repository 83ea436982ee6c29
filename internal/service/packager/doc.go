// Package packager builds an RCAS distribution from a source tree.
//
// It validates the manifest, resolves the package modules and data globs,
// writes a reproducible archive and the descriptor that installers read.
package packager
