// Package common holds small helpers shared by the definition loader and
// the schema package.
package common

import "strings"

// UnknownStr is returned by String methods for out-of-range enum values.
const UnknownStr = "unknown"

// UpperFirst returns s with its first byte upper-cased ("dateTime" -> "DateTime").
func UpperFirst(s string) string {
	if s == "" {
		return ""
	}

	return strings.ToUpper(s[:1]) + s[1:]
}

// LastSegment returns the part of a dotted name after the last dot
// ("Measure.Group.Population" -> "Population").
func LastSegment(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}

	return name
}

// First returns the first value of a list and whether there was one.
func First[S ~[]E, E any](s S) (E, bool) {
	var zero E
	if len(s) == 0 {
		return zero, false
	}

	return s[0], true
}

// IsSingle reports whether a list holds exactly one value, which is how a
// definition tells a plain field from a choice.
func IsSingle[S ~[]E, E any](s S) bool {
	return len(s) == 1
}
