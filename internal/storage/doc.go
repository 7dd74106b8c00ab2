// Package storage is the blob store for uploaded PDFs and split parts.
//
// Local keeps objects under a root directory using slash-separated keys.
// Writes land in a temporary file and are renamed into place so readers never
// observe partial uploads. Delete treats a missing object as already deleted.
package storage
