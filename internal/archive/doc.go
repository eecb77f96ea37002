// SPDX-License-Identifier: MPL-2.0

// Package archive manages the on-disk lifecycle of release archives: ensuring
// a local copy exists (downloading at most once per release), verifying
// digests, and extracting the tar.gz contents into a per-release directory.
package archive
