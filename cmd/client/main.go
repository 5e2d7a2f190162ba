// Package main is a thin batch-upload CLI that drives the tagging service's
// HTTP API: upload one or more files, poll their status, and fetch each
// finished result. It is a convenience wrapper around the API, not part of
// the core service.
package main

import (
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

func main() {
	if len(os.Args) < 3 {
		printHelp()
		os.Exit(1)
	}

	baseURL := os.Args[1]
	command := os.Args[2]

	switch command {
	case "upload":
		if len(os.Args) < 4 {
			log.Fatal("usage: client <base-url> upload <file>...")
		}
		for _, path := range os.Args[3:] {
			id, err := upload(baseURL, path)
			if err != nil {
				log.Fatalf("upload %s: %v", path, err)
			}
			fmt.Printf("%s\t%s\n", path, id)
		}
	case "status":
		if len(os.Args) != 4 {
			log.Fatal("usage: client <base-url> status <id>")
		}
		body, err := getBody(baseURL + "/status/" + os.Args[3])
		if err != nil {
			log.Fatalf("status: %v", err)
		}
		fmt.Println(string(body))
	case "wait":
		if len(os.Args) != 4 {
			log.Fatal("usage: client <base-url> wait <id>")
		}
		if err := waitForResult(baseURL, os.Args[3]); err != nil {
			log.Fatalf("wait: %v", err)
		}
	case "fetch":
		if len(os.Args) != 5 {
			log.Fatal("usage: client <base-url> fetch <id> <dest>")
		}
		if err := fetch(baseURL, os.Args[3], os.Args[4]); err != nil {
			log.Fatalf("fetch: %v", err)
		}
	default:
		printHelp()
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("usage: client <base-url> <command> [args]")
	fmt.Println("  upload <file>...       upload one or more files, printing each job id")
	fmt.Println("  status <id>            print the raw JSON status for id")
	fmt.Println("  wait <id>              poll status until finished or error")
	fmt.Println("  fetch <id> <dest>      download a finished result to dest")
}

// upload posts path's contents to /input and returns the minted job id.
func upload(baseURL, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	body, writer := io.Pipe()
	mw := multipart.NewWriter(writer)

	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = mw.Close()
		}
		writer.CloseWithError(err)
	}()

	resp, err := http.Post(baseURL+"/input", mw.FormDataContentType(), body)
	if err != nil {
		return "", fmt.Errorf("post input: %w", err)
	}
	defer resp.Body.Close()

	reply, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("server returned %d: %s", resp.StatusCode, reply)
	}
	return string(reply), nil
}

func getBody(url string) ([]byte, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// waitForResult polls /status/<id> until the job reaches a terminal state.
func waitForResult(baseURL, id string) error {
	const pollInterval = time.Second
	for {
		body, err := getBody(baseURL + "/status/" + id)
		if err != nil {
			return err
		}
		fmt.Println(string(body))
		s := string(body)
		if strings.Contains(s, `"finished":true`) || strings.Contains(s, `"error":true`) || strings.Contains(s, "File not on server") {
			return nil
		}
		time.Sleep(pollInterval)
	}
}

// fetch downloads /output/<id> to dest.
func fetch(baseURL, id, dest string) error {
	resp, err := http.Get(baseURL + "/output/" + id)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, resp.Body)
	return err
}
