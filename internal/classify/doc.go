// Package classify flags commits whose messages announce a breaking change.
//
// Patterns come from configuration and are compiled once into a PatternSet.
// Matching is case-insensitive and unanchored, so the default pattern
// "breaking.*change" matches "BREAKING CHANGE: drop v1 keys" as well as
// "fix breaking config change".
package classify
