// Package file provides the filesystem collaborators: reading and writing
// YAML documents, a JSON draft store and a directory-backed template store.
package file
