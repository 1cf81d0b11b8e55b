// Package filesystem provides low-level filesystem utilities shared by the
// blob store, package map, and overlay: POSIX mode bit definitions, a
// synthetic stat record shape, and an atomic file-write helper.
package filesystem
