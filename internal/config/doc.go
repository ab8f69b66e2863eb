// Package config provides configuration management for campuscrawl.
//
// Configuration is assembled in layers, each overriding the previous one:
//  1. Built-in defaults from NewConfig
//  2. The YAML configuration file (.campuscrawl in the current directory or
//     home directory, or an explicit --config path)
//  3. CAMPUSCRAWL_* environment variables, optionally loaded from a .env file
//  4. Command line flags
//
// The resulting Config is validated once with Validate before the crawl
// starts and is then passed to the frontier, fetcher and worker pool as a
// plain value. Nothing in this package holds global state.
package config
