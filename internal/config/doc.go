// Package config resolves harness settings from defaults, an optional YAML or
// CUE file, the environment (including a .env file) and explicit flags.
//
// Precedence, lowest first:
//
//	Default() < file (--config) < .env < KERNTEST_* variables < flags
//
// Flags are applied by the caller; this package only knows about the first
// four layers.
package config
