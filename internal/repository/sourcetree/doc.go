// Package sourcetree resolves a manifest against a checked-out source tree:
// which module files each package contributes and which resource files each
// package data glob selects.
package sourcetree
