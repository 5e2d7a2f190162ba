// Package main is the long-lived worker child the supervisor spawns and
// keeps warm. It performs the tagger's Initialize exactly once, then serves
// jobs one at a time over a line-based protocol on stdin/stdout: each line
// read is "id\tinputPath\toutputPath", and each line written back is either
// "OK" or "ERR <message>".
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/inl-tagging/tagqueue/pkg/tagger"
)

var taggerKind = flag.String("tagger", "echo", "Tagger implementation to load")

func main() {
	flag.Parse()

	t, err := tagger.Lookup(*taggerKind)
	if err != nil {
		log.Fatalf("worker: %v", err)
	}

	if err := t.Initialize(); err != nil {
		log.Fatalf("worker: tagger initialization failed: %v", err)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		_, inputPath, outputPath, err := parseRequest(line)
		if err != nil {
			fmt.Printf("ERR %s\n", err)
			continue
		}

		if err := t.Process(context.Background(), inputPath, outputPath); err != nil {
			fmt.Printf("ERR %s\n", err)
			continue
		}
		fmt.Println("OK")
	}

	if err := scanner.Err(); err != nil {
		log.Fatalf("worker: reading stdin: %v", err)
	}
}

// parseRequest splits a "id\tinputPath\toutputPath" request line.
func parseRequest(line string) (id, inputPath, outputPath string, err error) {
	parts := strings.SplitN(line, "\t", 3)
	if len(parts) != 3 {
		return "", "", "", fmt.Errorf("malformed request line %q", line)
	}
	return parts[0], parts[1], parts[2], nil
}
