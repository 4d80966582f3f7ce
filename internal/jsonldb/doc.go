// Package jsonldb provides a generic JSONL-backed row file.
//
// # Overview
//
// [File] stores one JSON object per line. Nothing is cached: every call reads
// the file again, so external edits are always visible.
//
// # Strict Decoding
//
// [Decode] rejects any line that is not a JSON object or that lacks a key the
// row type's JSON Schema marks as required, and any line that is not valid
// UTF-8. Blank lines are malformed too. A single malformed line fails the whole
// read; it is never skipped. [Encode] refuses strings that are not valid UTF-8
// so every written row decodes back to the same value.
//
// # Atomic Rewrites
//
// [File.Rewrite] writes the full replacement to a temporary file in the same
// directory, syncs and closes it, then renames it over the original. A crash at
// any point leaves either the old or the new file, never a partial one.
//
// # Missing File
//
// Every [File] method reports an absent backing file as [ErrStoreNotFound],
// whichever I/O step noticed it. Use [File.Create] to create an empty file.
package jsonldb
