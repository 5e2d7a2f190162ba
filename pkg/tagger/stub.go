package tagger

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// defaultOutputExtension and defaultProcessingSpeed mirror the original
// tagger base class's defaults.
const (
	defaultOutputExtension = ".tsv"
	defaultProcessingSpeed = 10000
)

// unimplementedMessage is the error a Failing tagger reports when built
// without a message of its own; it is the message a tagger author
// forgetting to override Process would have produced in the original base
// class.
const unimplementedMessage = "Did you forget to override process.py?"

// Echo is a minimal Tagger used for local operation and integration tests:
// it copies the input file to the output path unchanged. It stands in for
// a real NLP tagger wherever the processing logic itself is immaterial.
type Echo struct {
	Ext             string
	Speed           int
	InitializeCalls int
}

// NewEcho returns an Echo tagger with the default extension and speed.
func NewEcho() *Echo {
	return &Echo{Ext: defaultOutputExtension, Speed: defaultProcessingSpeed}
}

// Initialize records that it was called; Echo has no setup to do.
func (e *Echo) Initialize() error {
	e.InitializeCalls++
	return nil
}

// Process copies inputPath to outputPath.
func (e *Echo) Process(ctx context.Context, inputPath, outputPath string) error {
	in, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy input to output: %w", err)
	}
	return nil
}

// OutputExtension returns the configured extension.
func (e *Echo) OutputExtension() string { return e.Ext }

// ProcessingSpeed returns the configured processing speed constant.
func (e *Echo) ProcessingSpeed() int { return e.Speed }

// Slow is a Tagger that sleeps before copying input to output, used to
// exercise the supervisor's timeout and cancellation paths.
type Slow struct {
	Echo
	Delay time.Duration
}

// NewSlow returns a Slow tagger that sleeps for delay before processing.
func NewSlow(delay time.Duration) *Slow {
	return &Slow{Echo: Echo{Ext: defaultOutputExtension, Speed: defaultProcessingSpeed}, Delay: delay}
}

// Process waits for Delay, honoring ctx cancellation, then behaves like Echo.
func (s *Slow) Process(ctx context.Context, inputPath, outputPath string) error {
	select {
	case <-time.After(s.Delay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.Echo.Process(ctx, inputPath, outputPath)
}

// Failing is a Tagger whose Process always returns an error, used to
// exercise the error-path handling in the worker procedure.
type Failing struct {
	Ext     string
	Speed   int
	Message string
}

// NewFailing returns a Failing tagger that always errors with message.
func NewFailing(message string) *Failing {
	if message == "" {
		message = unimplementedMessage
	}
	return &Failing{Ext: defaultOutputExtension, Speed: defaultProcessingSpeed, Message: message}
}

// Initialize always succeeds; only Process fails.
func (f *Failing) Initialize() error { return nil }

// Process always returns an error carrying Message.
func (f *Failing) Process(ctx context.Context, inputPath, outputPath string) error {
	return fmt.Errorf("%s", f.Message)
}

// OutputExtension returns the configured extension.
func (f *Failing) OutputExtension() string { return f.Ext }

// ProcessingSpeed returns the configured processing speed constant.
func (f *Failing) ProcessingSpeed() int { return f.Speed }
