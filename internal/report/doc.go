// Package report renders update sessions for the user.
//
// A Reporter prints the remote being followed, the new commits with breaking
// ones highlighted, the untracked paths an update removed and a closing line
// for the outcome. Colour comes from fatih/color and follows its global
// NoColor switch, so output redirected to a file or run with NO_COLOR set is
// plain text.
package report
