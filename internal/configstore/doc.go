// Package configstore loads the per-project cajon configuration file
// (.cajon.toml or .cajon.yaml) into a validated, immutable Config. Unknown
// fields are rejected; defaults are derived from the working directory.
package configstore
