// SPDX-License-Identifier: MPL-2.0

// Package issue provides user-facing error context: ActionableError carries
// operation, resource and fix suggestions, while the Issue registry renders
// markdown cards for the known failure families.
package issue
