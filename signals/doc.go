// Package signals provides the fine-grained reactive substrate the form
// engine is built on: writable signals, memoized computed values with
// automatic dependency tracking, effects, untracked reads, and linked
// signals that reset when a reactive source changes.
//
// The implementation is a pull-based design around a per-Graph version
// clock: computed values cache their result together with the versions of
// the sources they read, and revalidate lazily on the next read. Effects
// are the only push element; they are re-run when a write invalidates one
// of their recorded dependencies.
//
// A Graph and everything created from it is not safe for concurrent use.
// Callers that share a Graph across goroutines must serialize access; the
// form engine does this with a single mutex at its API boundary.
package signals
