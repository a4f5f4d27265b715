// Package batch wires the encode pipeline together.
//
// Handler is the per-slot worker the scheduler invokes: it runs the
// idempotency check, synthesizes and runs the encode, streams progress, and
// hands successful output to the commit stage. Runner drives a whole run:
// capability discovery, slot selection, queueing, the scheduling loop, and
// the closing summary. Every outcome is written to the run history.
package batch
