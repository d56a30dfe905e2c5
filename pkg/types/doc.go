// Package types defines the public, Go-idiomatic surface for reading,
// navigating, and recovering Windows Registry hive ("regf") files.
//
// This package only exposes interfaces and core types. Implementations live
// in internal packages (format decoding, overlay, transaction-log
// application, scanning) and are wired together by pkg/hive.
//
// Design goals:
//   - Zero-copy where safe; explicit copying where requested.
//   - Small, copyable handles (NodeID/ValueID) instead of large object graphs.
//   - Paranoid bounds checking; never panic on malformed input.
//   - Typed errors with stable categories (format/corrupt/unsupported/...).
//
// This package has no dependencies beyond the standard library.
package types
