// Package commit finalizes finished encodes on disk.
//
// After ffmpeg exits cleanly the Committer waits a short settle delay, records
// the size change in the run totals and the encode journal, sends the
// per-file notification, and then swaps files: the original is removed and
// the temporary "-encoded.mp4" output takes the final name. A failed swap is
// never retried; it is written to the error journal for a human to resolve.
package commit
