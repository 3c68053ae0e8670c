package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/drgo/bibaux"
	"github.com/drgo/bibaux/internal/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const refs = `@string{aw = "Albert Einstein"}
@article{Einstein1920, author = aw, title = {Relativity}, year = 1920}
@book{Darwin1888, author = {Charles Darwin}, title = {The Descent of Man}, year = 1888}
@misc{Unused, title = {Unused}}
`

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestGenerate(t *testing.T) {
	logger = zap.NewNop()
	dir := writeFiles(t, map[string]string{
		"refs.bib":  refs,
		"paper.aux": "\\citation{Darwin1888,Einstein1920,Nobody}\n\\bibdata{refs}\n",
	})
	aux := filepath.Join(dir, "paper.aux")

	t.Run("bibdata fallback to stdout", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		g := generateFlags{sort: "key", showMissing: true}
		require.NoError(t, g.run(context.Background(), aux, &stdout, &stderr))
		out := stdout.String()
		assert.Contains(t, out, "@string{aw = {Albert Einstein}}")
		assert.Less(t, strings.Index(out, "@book{Darwin1888,"), strings.Index(out, "@article{Einstein1920,"))
		assert.NotContains(t, out, "Unused")
		assert.Contains(t, stderr.String(), "keys in LaTeX file: 3\n")
		assert.Contains(t, stderr.String(), "missing keys:\n  Nobody\n")
	})

	t.Run("output file", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		output := filepath.Join(dir, "out", "paper.bib")
		g := generateFlags{bib: []string{filepath.Join(dir, "refs.bib")}, output: output}
		require.NoError(t, g.run(context.Background(), aux, &stdout, &stderr))
		assert.Empty(t, stdout.String())
		data, err := os.ReadFile(output)
		require.NoError(t, err)
		assert.Contains(t, string(data), "@article{Einstein1920,")
		assert.NotContains(t, stderr.String(), "missing keys")
	})

	t.Run("errors", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		bib := []string{filepath.Join(dir, "refs.bib")}
		empty := filepath.Join(writeFiles(t, map[string]string{"e.aux": `\citation{Nobody}`}), "e.aux")
		assert.ErrorIs(t, generateFlags{bib: bib}.run(context.Background(), empty, &stdout, &stderr), errEmptyLibrary)
		assert.Error(t, generateFlags{}.run(context.Background(), empty, &stdout, &stderr), "no bibdata")
		assert.Error(t, generateFlags{bib: bib}.run(context.Background(), filepath.Join(dir, "none.aux"), &stdout, &stderr))
		assert.Error(t, generateFlags{bib: bib, sort: "title"}.run(context.Background(), aux, &stdout, &stderr))
		assert.Error(t, generateFlags{bib: []string{filepath.Join(dir, "none.bib")}}.run(context.Background(), aux, &stdout, &stderr))
	})
}

func TestBibDataFiles(t *testing.T) {
	dir := writeFiles(t, map[string]string{"paper.aux": `\bibdata{refs,more.bib,/abs/other}`})
	files, err := bibDataFiles(context.Background(), bibaux.Options{}, filepath.Join(dir, "paper.aux"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "refs.bib"),
		filepath.Join(dir, "more.bib"),
		"/abs/other.bib",
	}, files)
}

func TestRootCommand(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"refs.bib":    refs,
		"paper.aux":   `\citation{Einstein1920}`,
		"bibaux.yaml": "logging:\n  level: error\nsort: key\n",
	})
	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{
		"--config", filepath.Join(dir, "bibaux.yaml"),
		"generate", filepath.Join(dir, "paper.aux"),
		"--bib", filepath.Join(dir, "refs.bib"),
	})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		cfg = config.DefaultConfig()
		logger = zap.NewNop()
		genFlags = generateFlags{}
		configPath = ""
	})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	assert.Contains(t, stdout.String(), "@article{Einstein1920,")
	assert.Equal(t, "key", cfg.Sort)

	rootCmd.SetArgs([]string{"--config", filepath.Join(dir, "missing.yaml"), "check", filepath.Join(dir, "refs.bib")})
	assert.ErrorContains(t, rootCmd.ExecuteContext(context.Background()), "failed to read config file")
}

func TestCheck(t *testing.T) {
	logger = zap.NewNop()
	dir := writeFiles(t, map[string]string{
		"clean.bib": refs,
		"dup.bib":   "@misc{Twice, note = {1}}\n@misc{Twice, note = {2}}\n",
		"empty.bib": "nothing here\n",
	})
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	var out bytes.Buffer
	require.NoError(t, check(cmd, []string{filepath.Join(dir, "clean.bib")}, &out))
	assert.Equal(t, "no duplicate keys\n", out.String())

	out.Reset()
	err := check(cmd, []string{filepath.Join(dir, "clean.bib"), filepath.Join(dir, "dup.bib")}, &out)
	assert.ErrorIs(t, err, errDuplicateKeys)
	assert.Contains(t, out.String(), "[Twice] has 2 occurrences")

	out.Reset()
	require.NoError(t, check(cmd, []string{filepath.Join(dir, "empty.bib")}, &out))
	assert.Equal(t, "no entries\n", out.String())

	assert.Error(t, check(cmd, []string{filepath.Join(dir, "none.bib")}, &out))
}

func TestNewLogger(t *testing.T) {
	l, err := newLogger(config.LoggingConfig{Level: "warn", Format: "json"}, false)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	l, err = newLogger(config.LoggingConfig{Level: "warn", Format: "console"}, true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	_, err = newLogger(config.LoggingConfig{Level: "loud"}, false)
	assert.Error(t, err)
}

// syncBuffer lets the test read output while watch is still writing it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatch(t *testing.T) {
	defer goleak.VerifyNone(t)
	logger = zap.NewNop()
	dir := writeFiles(t, map[string]string{
		"refs.bib":  refs,
		"paper.aux": `\citation{Einstein1920}`,
	})
	aux := filepath.Join(dir, "paper.aux")
	g := generateFlags{bib: []string{filepath.Join(dir, "refs.bib")}}

	ctx, cancel := context.WithCancel(context.Background())
	var stdout, stderr syncBuffer
	done := make(chan error, 1)
	go func() {
		done <- watch(ctx, aux, g, 10*time.Millisecond, &stdout, &stderr)
	}()

	assert.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), "@article{Einstein1920,")
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(aux, []byte(`\citation{Darwin1888}`), 0o644))
	assert.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), "@book{Darwin1888,")
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatch_NestedDirectory(t *testing.T) {
	defer goleak.VerifyNone(t)
	logger = zap.NewNop()
	dir := writeFiles(t, map[string]string{
		"refs.bib":         refs,
		"paper.aux":        `\citation{Einstein1920}` + "\n" + `\@input{chapters/ch1.aux}`,
		"chapters/ch1.aux": `\citation{Unused}`,
	})
	g := generateFlags{bib: []string{filepath.Join(dir, "refs.bib")}}

	ctx, cancel := context.WithCancel(context.Background())
	var stdout, stderr syncBuffer
	done := make(chan error, 1)
	go func() {
		done <- watch(ctx, filepath.Join(dir, "paper.aux"), g, 10*time.Millisecond, &stdout, &stderr)
	}()

	assert.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), "@misc{Unused,")
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "chapters", "ch1.aux"), []byte(`\citation{Darwin1888}`), 0o644))
	assert.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), "@book{Darwin1888,")
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestAuxDirs(t *testing.T) {
	assert.Nil(t, auxDirs(nil))

	dir := writeFiles(t, map[string]string{
		"paper.aux":        `\@input{chapters/ch1.aux}` + "\n" + `\@input{./chapters/ch1.aux}`,
		"chapters/ch1.aux": `\citation{Einstein1920}`,
	})
	res, ok := bibaux.NewAuxParser(nil, bibaux.Options{}).Parse(context.Background(), filepath.Join(dir, "paper.aux"))
	require.True(t, ok)
	assert.Equal(t, []string{dir, filepath.Join(dir, "chapters")}, auxDirs(res))

	URL := "mem://localhost/bibaux/cmd/paper.aux"
	require.NoError(t, afs.New().Upload(context.Background(), URL, file.DefaultFileOsMode, strings.NewReader(`\citation{Einstein1920}`)))
	res, ok = bibaux.NewAuxParser(nil, bibaux.Options{}).Parse(context.Background(), URL)
	require.True(t, ok)
	assert.Empty(t, auxDirs(res))
}
