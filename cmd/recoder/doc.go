// Package main hosts the recoder CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once per invocation, sets up
// structured logging, and hands the real work to the internal packages:
// batch runs, encoder benchmarks, run history queries, single-file
// inspection, and configuration scaffolding. Keep this package thin; new
// behaviour belongs in internal/ first and is surfaced here afterwards.
package main
