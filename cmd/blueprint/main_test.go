package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const manifest = `
components:
  - path: greeting
    views:
      - name: main
        kind: ejs
        template: "<p><%= data.msg %></p>"
  - path: page
    root: page
    views:
      - name: home
        templateFile: home.html
        components:
          footer: greeting/main
`

func writeManifest(t *testing.T, body string, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "blueprint.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	for name, content := range files {
		full := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return path
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "want *ExitError, got %v", err)
	return exitErr.Code
}

func TestRunVersion(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), &out, []string{"version"}))
	assert.Contains(t, out.String(), "blueprint version "+version)
}

func TestRunUsage(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), &out, nil)
	assert.Equal(t, 2, exitCode(t, err))
	assert.Contains(t, out.String(), "Usage:")

	out.Reset()
	err = run(context.Background(), &out, []string{"bogus"})
	assert.Equal(t, 2, exitCode(t, err))

	out.Reset()
	require.NoError(t, run(context.Background(), &out, []string{"help"}))
	assert.Contains(t, out.String(), "prerender")
}

func TestRunPreRender(t *testing.T) {
	path := writeManifest(t, manifest, map[string]string{
		"page/home.html": `<main>{{ component "footer" }}</main>`,
	})

	var out bytes.Buffer
	err := run(context.Background(), &out, []string{"prerender", "-manifest", path, "-data", `{"msg":"hi"}`, "greeting/main"})
	require.NoError(t, err)
	assert.Equal(t, "<p>hi</p>\n", out.String())

	out.Reset()
	err = run(context.Background(), &out, []string{"prerender", "-manifest", path, "page/home"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), `<div data-prerender-stub="footer">footer</div>`)
}

func TestRunPreRenderArgs(t *testing.T) {
	path := writeManifest(t, manifest, nil)
	var out bytes.Buffer

	err := run(context.Background(), &out, []string{"prerender", "-manifest", path})
	assert.Equal(t, 2, exitCode(t, err))

	err = run(context.Background(), &out, []string{"prerender", "-manifest", path, "-data", "{", "greeting/main"})
	assert.Equal(t, 2, exitCode(t, err))

	err = run(context.Background(), &out, []string{"prerender", "-manifest", path, "nope"})
	assert.Equal(t, 2, exitCode(t, err))
}

func TestRunCheck(t *testing.T) {
	path := writeManifest(t, manifest, map[string]string{
		"page/home.html": `<main>{{ component "footer" }}</main>`,
	})
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), &out, []string{"check", "-manifest", path}))
	assert.Contains(t, out.String(), "ok: 2 views in 2 components")
}

func TestRunCheckReportsFailures(t *testing.T) {
	path := writeManifest(t, manifest, nil)
	var out bytes.Buffer
	err := run(context.Background(), &out, []string{"check", "-manifest", path})
	assert.Equal(t, 1, exitCode(t, err))
	assert.Contains(t, out.String(), "FAIL page/home")
}

func TestRunCheckUnknownFactory(t *testing.T) {
	path := writeManifest(t, `
components:
  - path: a
    views:
      - name: v
        template: x
        factories:
          - name: missing
`, nil)
	err := run(context.Background(), &bytes.Buffer{}, []string{"check", "-manifest", path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown factory "missing"`)
}
