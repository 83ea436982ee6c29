// Package archive writes and reads the gzip-compressed tar payload of a
// distribution. Written archives are reproducible: entry order, timestamps,
// ownership and modes do not depend on the build host.
package archive
