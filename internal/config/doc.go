// SPDX-License-Identifier: MPL-2.0

// Package config loads tzup configuration: a CUE file validated against an
// embedded schema, merged into viper on top of built-in defaults.
package config
