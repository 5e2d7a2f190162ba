// Package tagger defines the adapter boundary between this service and the
// pluggable NLP tagger it drives. The tagger's own internals are out of
// scope; this package only describes the contract a worker child talks to
// and provides a few minimal implementations used for local operation and
// tests.
package tagger

import "context"

// Tagger is implemented by a pluggable tagging backend. A worker child
// calls Initialize exactly once after starting, then calls Process once
// per job for the rest of its lifetime.
type Tagger interface {
	// Initialize performs any one-time setup (loading models, warming
	// caches). It is called once per worker child, not once per job.
	Initialize() error

	// Process reads inputPath and writes the tagged result to outputPath.
	// It must honor ctx: when ctx is done, Process should return promptly
	// with ctx.Err(). The worker child (cmd/worker) calls Process with a
	// context that carries no deadline; the per-job deadline is enforced by
	// the supervisor killing the worker child.
	Process(ctx context.Context, inputPath, outputPath string) error

	// OutputExtension is the filename suffix Process's output carries,
	// e.g. ".tsv".
	OutputExtension() string

	// ProcessingSpeed is the per-tagger constant folded into the per-job
	// timeout formula.
	ProcessingSpeed() int
}
