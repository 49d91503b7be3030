// Package cliconfig resolves indexcheck's command line configuration.
//
// Values are taken, in decreasing precedence, from explicitly set flags,
// INDEXCHECK_* environment variables, a TOML or YAML config file and the
// defaults of DefaultConfig.
package cliconfig
