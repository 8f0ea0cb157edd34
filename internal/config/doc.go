// Package config provides configuration management for the gitupdate application.
//
// Settings are layered with viper, lowest precedence first:
//
//  1. built-in defaults
//  2. the user file, $XDG_CONFIG_HOME/gitupdate/config.toml
//  3. the project file, .gitupdate.toml in the repository root
//  4. GITUPDATE_* environment variables (GITUPDATE_REMOTE_BRANCH for remote.branch)
//  5. command-line flags, passed to Load as overrides
//
// A project file looks like:
//
//	[remote]
//	name = "origin"
//	branch = "main"
//
//	[breaking]
//	patterns = ["breaking.*change", "^removed?\\b"]
//
//	[update]
//	keep-local-changes = true
//
// Load only gathers values. Finalize resolves the repository path and the
// debug log location, compiles the breaking-change patterns and rejects
// branch or remote names git would read as options. Validation failures are
// *errors.ConfigError values matching ErrInvalidConfiguration.
package config
