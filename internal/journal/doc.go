// Package journal persists the rollback point of an in-flight update session.
//
// The journal is a small TOML file in the repository's git directory. It is
// written right after the snapshot commit is taken and removed when the
// session ends, whether it applied the update or rolled back. A journal found
// at startup means the previous session was interrupted; its CurrentHead tells
// the repair step which commit to rewind to.
package journal
