// Package benchmark measures which encoder profiles actually work on this
// machine and how fast they are.
//
// Each profile is probed by encoding a synthetic lavfi colour source to the
// null muxer and reading ffmpeg's reported speed multiplier. Results are kept
// in a JSON cache keyed by profile; fresh successful entries are reused, while
// stale or failed ones are probed again. The cache file is rewritten
// atomically once per discovery.
package benchmark
