// Package distribution defines the artifacts exchanged between building and
// installing: the descriptor that travels next to the archive, and the record
// an installation leaves behind.
//
// Descriptors are deterministic. Building the same tree twice yields the same
// bytes, including the ID, which is a name-based UUID over the content.
package distribution
