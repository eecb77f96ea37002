// SPDX-License-Identifier: MPL-2.0

// Package installer sequences the fetch, extract, compile and activate steps
// into the two public operations: installing an explicit release and
// ensuring the latest published release is active.
package installer
