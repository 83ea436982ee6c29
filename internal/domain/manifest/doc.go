// Package manifest describes what an RCAS distribution consists of: package
// identity and metadata, the console scripts it registers and the resource
// globs bundled with each package.
//
// Default returns the RCAS release record. Load overlays a TOML file on it.
package manifest
