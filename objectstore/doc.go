// Package objectstore keeps uploaded files and answers whether a stored file
// still exists.
//
// Stored names are the uploaded base name prefixed with a random UUID, so two
// uploads of the same file never collide. Upload returns a locator (a
// presigned URL for MinIO, a file:// URL for the local store); the stored name
// is recovered from a locator with FilenameFromLocator and doubles as the
// source identifier of the document extracted from the file.
//
// Every error returned by a Store is a *fault.Fault of one of the storage kinds.
package objectstore
