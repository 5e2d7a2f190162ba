package callback

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendResultHonorsKeepReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/result", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "job-1", r.FormValue("file_id"))
		w.Write([]byte(ReplyKeep))
	}))
	defer srv.Close()

	dir := t.TempDir()
	outputPath := filepath.Join(dir, "job-1.tsv")
	require.NoError(t, os.WriteFile(outputPath, []byte("tagged output"), 0o644))

	c := New(srv.URL)
	keep, err := c.SendResult(context.Background(), "job-1", outputPath)
	require.NoError(t, err)
	assert.True(t, keep)
}

func TestSendResultTreatsUnrecognizedReplyAsDelete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("something else entirely"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	outputPath := filepath.Join(dir, "job-2.tsv")
	require.NoError(t, os.WriteFile(outputPath, []byte("tagged output"), 0o644))

	c := New(srv.URL)
	keep, err := c.SendResult(context.Background(), "job-2", outputPath)
	require.NoError(t, err)
	assert.False(t, keep)
}

func TestUnconfiguredClientIsANoOp(t *testing.T) {
	c := New("")
	assert.False(t, c.Configured())

	keep, err := c.SendResult(context.Background(), "job-3", "/does/not/matter")
	require.NoError(t, err)
	assert.True(t, keep)

	require.NoError(t, c.SendError(context.Background(), "job-3", "boom"))
}

func TestSendErrorPostsFileIDAndMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/error", r.URL.Path)
		assert.Equal(t, "job-4", r.URL.Query().Get("file_id"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL)
	require.NoError(t, c.SendError(context.Background(), "job-4", "boom"))
}
