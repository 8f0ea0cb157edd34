// Package constants provides application-wide constant values for gitupdate.
//
// It centralizes the fixed values that other packages must agree on: the
// snapshot commit's message and author identity, the backup ref and journal
// names, the default remote and branch, the default breaking-change patterns
// and the answers accepted as "yes" at a prompt.
package constants
