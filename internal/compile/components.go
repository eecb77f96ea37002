// SPDX-License-Identifier: MPL-2.0

package compile

// Components is the fixed, ordered list of tzdata source files zic
// understands, one per geographic/region grouping.
var Components = []string{
	"africa",
	"antarctica",
	"asia",
	"australasia",
	"europe",
	"northamerica",
	"southamerica",
	"etcetera",
	"backward",
	"factory",
}

// optionalComponents may be absent from a release without that being
// noteworthy; they have been dropped from or merged into releases over the
// years.
var optionalComponents = map[string]struct{}{
	"etcetera": {},
	"backward": {},
	"factory":  {},
}

// Optional reports whether a component's absence from a release is expected.
func Optional(name string) bool {
	_, ok := optionalComponents[name]
	return ok
}
