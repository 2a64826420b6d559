// Package collection manages a directory of book files.
//
// A Collection owns one directory. Every recognized book file in it is
// indexed by content hash, so adding the same bytes twice is a no-op
// regardless of where they were fetched from. Filenames collide often
// on the web (every second site has a book.pdf), so stored names get a
// numeric suffix when taken.
//
// Design decision: Adds are two-phase. The file is written to disk
// first and the in-memory index is updated only after the write
// succeeded, so a failed write never leaves the index pointing at a
// missing file. The inverse risk, a file on disk missing from the
// index, is repaired by the directory scan on the next Open.
package collection
