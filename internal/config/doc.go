// Package config holds the rcas-setup settings: installation prefix,
// interpreter, distribution directory, HTTP listen address and object storage
// credentials.
//
// Settings are read from a YAML file and every key can be overridden through
// an RCAS_-prefixed environment variable (RCAS_PREFIX, RCAS_PUBLISH_BUCKET, ...).
package config
