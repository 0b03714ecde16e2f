// Package benchpack holds the configuration surface of the benchpack
// CLI, a post-processing companion to the benchmark experiment
// automation. The automation fills a workspace with per-run artifacts
// (logs/<run-id>.log, results/<run-id>.tar.gz, working/<run-id>/);
// benchpack bundles those artifacts into per-test archives and
// migrates numeric run-ID suffixes to a uniform zero-padded width
// across archive member names and contents.
//
// The heavy lifting lives in the internal packages:
//
//   - internal/archive builds and extracts the tar.gz bundles
//   - internal/migrate rewrites run IDs to a target width
//   - internal/expconf parses and flattens the experiment config
//   - internal/watch archives runs as their results land
//
// See cmd/benchpack for the CLI wiring.
package benchpack
