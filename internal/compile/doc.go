// SPDX-License-Identifier: MPL-2.0

// Package compile drives the external zic compiler over the components of an
// extracted tzdata release, aggregating per-component results into an overall
// verdict and stamping successful output with a version marker.
package compile
