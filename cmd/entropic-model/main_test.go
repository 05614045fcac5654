package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumandas0/entropic-model/internal/mockapi"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ENTROPIC_MODEL_LOGGING_LEVEL", "error")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func newBackend(t *testing.T) (*mockapi.Store, string) {
	t.Helper()
	server := mockapi.NewServer(mockapi.Config{})
	server.Store().Upsert("books", []mockapi.Record{
		{"id": "1", "name": "Dune", "author": "Herbert"},
		{"id": "2", "name": "Emma", "author": "Austen"},
	})
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return server.Store(), ts.URL
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version: dev")
}

func TestFetchCommand(t *testing.T) {
	_, baseURL := newBackend(t)

	out, err := runCLI(t, "fetch", "1", "--base-url", baseURL, "-r", "books")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "Dune"`)
	assert.Contains(t, out, `"author": "Herbert"`)

	_, err = runCLI(t, "fetch", "99", "--base-url", baseURL, "-r", "books")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = runCLI(t, "fetch", "1", "--base-url", baseURL)
	assert.ErrorContains(t, err, "resource name is required")
}

func TestListCommand(t *testing.T) {
	store, baseURL := newBackend(t)
	store.Upsert("books", []mockapi.Record{{"id": "3", "name": "Pride, Prejudice", "author": "Austen"}})

	out, err := runCLI(t, "list", "--base-url", baseURL, "-r", "books", "--filter", "author=Austen")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "Emma"`)
	assert.Contains(t, out, `"name": "Pride, Prejudice"`)
	assert.NotContains(t, out, "Dune")

	out, err = runCLI(t, "list", "--base-url", baseURL, "-r", "books", "--filter", "name=Pride, Prejudice")
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "3"`)
	assert.NotContains(t, out, "Emma")

	_, err = runCLI(t, "list", "--base-url", baseURL, "-r", "books", "--filter", "broken")
	assert.ErrorContains(t, err, "expected key=value")
}

func TestValidateCommand(t *testing.T) {
	store, baseURL := newBackend(t)

	invalid := writeFile(t, "invalid.json", `{"name": ""}`)
	out, err := runCLI(t, "validate", invalid, "--rule", "name=required,max=255")
	assert.EqualError(t, err, "validation failed")
	assert.Contains(t, out, `"valid": false`)
	assert.Contains(t, out, "name failed on the 'required' rule")

	valid := writeFile(t, "valid.json", `{"name": "Persuasion", "author": "Austen"}`)
	out, err = runCLI(t, "validate", valid, "--rule", "name=required", "--submit",
		"--base-url", baseURL, "-r", "books")
	require.NoError(t, err)
	assert.Contains(t, out, `"valid": true`)
	assert.Contains(t, out, `"name": "Persuasion"`)
	assert.Equal(t, 3, store.Len("books"))
}

func TestParsePairs(t *testing.T) {
	pairs, err := parsePairs([]string{"a=1", " b =x=y", "a=2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "2", "b": "x=y"}, pairs)

	_, err = parsePairs([]string{"=1"})
	assert.Error(t, err)
}

func TestSeedStore(t *testing.T) {
	store := mockapi.NewStore()
	path := writeFile(t, "seed.json", `{"books": [{"id": "1"}, {"id": "2"}], "shelves": [{"id": "a"}]}`)

	require.NoError(t, seedStore(store, path))
	assert.Equal(t, 2, store.Len("books"))
	assert.Equal(t, 1, store.Len("shelves"))

	assert.Error(t, seedStore(store, writeFile(t, "bad.json", `[`)))
}

func TestStatusCommand(t *testing.T) {
	_, baseURL := newBackend(t)

	out, err := runCLI(t, "status", "--base-url", baseURL)
	require.NoError(t, err)
	assert.Contains(t, out, `"remote": "healthy"`)
	assert.Contains(t, out, `"circuit_breakers"`)
}
