package tagger

import (
	"fmt"
	"time"
)

// Lookup builds the Tagger a worker child should load given the -tagger
// flag value. Real deployments would load a single compiled-in tagger;
// kind selection exists here so the same worker binary can run any of the
// local stand-ins used for manual testing and the scenarios in spec.
func Lookup(kind string) (Tagger, error) {
	switch kind {
	case "", "echo":
		return NewEcho(), nil
	case "slow":
		return NewSlow(10 * time.Second), nil
	case "failing":
		return NewFailing(""), nil
	default:
		return nil, fmt.Errorf("unknown tagger kind %q", kind)
	}
}
