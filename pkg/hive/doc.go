// Package hive is the public, read-only entry point for parsing Windows NT
// registry hives: opening a primary hive file (optionally with its
// transaction logs replayed on top), navigating its key/value tree, and
// recovering structure from a hive too damaged to navigate top-down.
//
// Construction goes through Open or OpenBytes; everything else is reached
// through the returned types.Reader, with a couple of package-level
// extras (ApplyLogs, Scan, RecoverTree, WriteBaseBlock) for the workflows
// that fall outside that interface's scope.
package hive
