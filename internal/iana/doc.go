// SPDX-License-Identifier: MPL-2.0

// Package iana talks to the IANA time zone database distribution point:
// it resolves the latest published release token by scraping the
// time-zones page and downloads release archives. Network failures are
// reported as typed variants so callers never have to classify error text.
package iana
