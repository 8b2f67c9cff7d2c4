// Package config loads build settings from YAML or TOML files.
//
// Files may reference environment variables as ${VAR}. Durations are written
// as Go duration strings ("1s", "90s"). Unset keys keep their defaults, and
// XMATCH_VIZIER_URL / XMATCH_GAIA_TAP_URL override the service endpoints.
// Constraints are checked against an embedded CUE schema.
package config
