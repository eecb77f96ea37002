// SPDX-License-Identifier: MPL-2.0

// Package activate owns the session-wide state of the running process: which
// compiled dataset is currently active (published through TZDIR) and the
// memoized result of latest-version resolution. State lives in an explicit
// Session value so tests can construct isolated sessions.
package activate
