// Package store provides the byte-oriented blob storage backend for
// persisted state. Blobs are named, opaque, and written whole; there is
// no transactionality beyond the atomicity of a single write.
package store

// Store reads and writes named blobs.
type Store interface {
	// Read returns the blob contents, or an ErrBlobNotFound-coded
	// error if the blob does not exist.
	Read(name string) ([]byte, error)

	// Write replaces the blob contents. The write is complete when
	// the call returns.
	Write(name string, data []byte) error

	// Remove deletes the blob. Removing a missing blob is not an error.
	Remove(name string) error
}
