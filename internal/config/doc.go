// Package config loads settings for the screening server and the screen CLI
// from defaults, an optional config.yaml, SCREENING_* environment variables
// and command-line flags, in increasing order of precedence.
package config
