package blobstore

import "errors"

// ErrNotFound indicates that a blob is absent from the store. It is distinct
// from ErrIntegrity: a missing blob is never reported as a corrupted one.
var ErrNotFound = errors.New("blob not found")

// ErrIntegrity indicates that bytes on disk do not hash to the digest under
// which they were requested. This is raised only on full (verified) reads;
// it is never masked as ErrNotFound.
var ErrIntegrity = errors.New("blob integrity check failed")

// ErrTooLarge indicates that a put exceeded the store's configured maximum
// blob size.
var ErrTooLarge = errors.New("blob exceeds maximum size")
