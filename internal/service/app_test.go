package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentrag/internal/config"
	"agentrag/internal/domain"
	"agentrag/internal/generation"
)

func newTestApp(t *testing.T, mutate func(*config.AppConfig)) *App {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	cfg.Chunker.Window, cfg.Chunker.Overlap = 200, 20
	if mutate != nil {
		mutate(cfg)
	}
	app, err := New(context.Background(), cfg, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	cfg.Chunker.Overlap = cfg.Chunker.Window
	_, err = New(context.Background(), cfg, Options{})
	assert.Error(t, err)
}

func TestNew_OpenAIWithoutKeyFails(t *testing.T) {
	t.Setenv("AGENTRAG_TEST_MISSING_KEY", "")
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	cfg.Generation.Type = "openai"
	cfg.Generation.OpenAI = &config.OpenAIChatConfig{APIKeyEnv: "AGENTRAG_TEST_MISSING_KEY"}
	_, err = New(context.Background(), cfg, Options{})
	assert.Error(t, err)
}

func TestExpandPaths(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "x")
	b := writeFile(t, dir, "b.md", "x")
	writeFile(t, dir, "c.xlsx", "x")

	got := ExpandPaths([]string{filepath.Join(dir, "*"), a})
	assert.Equal(t, []string{a, b}, got)
}

func TestIngestFilesThenAsk(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "shipping.txt", "Orders ship within two business days. Express shipping costs extra.")
	writeFile(t, dir, "returns.md", "# Returns\nItems may be returned within 30 days for a full refund.")
	writeFile(t, dir, "people.csv", "name,role\nAda,engineer\nGrace,admiral\n")
	writeFile(t, dir, "broken.docx", "not really a docx")

	app := newTestApp(t, nil)
	results, err := app.IngestFiles(context.Background(), []string{filepath.Join(dir, "*")})
	require.NoError(t, err)
	require.Len(t, results, 4)

	failed := 0
	for _, r := range results {
		if strings.HasSuffix(r.Path, "broken.docx") {
			assert.ErrorIs(t, r.Err, domain.ErrExtraction)
			failed++
			continue
		}
		require.NoError(t, r.Err, r.Path)
		assert.NotEmpty(t, r.ChunkIDs)
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, 3, app.Indexed())
	assert.Equal(t, "hashing-384", app.EmbedderName())

	ans, err := app.Ask(context.Background(), "How many days do I have to return items for a refund?")
	require.NoError(t, err)
	assert.Contains(t, ans.Answer, "30 days")
	require.NotEmpty(t, ans.SourceContext)
	assert.Contains(t, ans.SourceContext[0], "Source: returns.md, Type: txt_md")
	assert.NotEmpty(t, app.Transcript())
}

func TestIngestFiles_SkipsAlreadyIngested(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.txt", "Refunds are issued within five business days of receiving the return.")
	app := newTestApp(t, nil)

	first, err := app.IngestFiles(context.Background(), []string{path})
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.NoError(t, first[0].Err)
	assert.False(t, first[0].Skipped)
	indexed := app.Indexed()
	require.Positive(t, indexed)

	second, err := app.IngestFiles(context.Background(), []string{path})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.True(t, second[0].Skipped)
	assert.Empty(t, second[0].ChunkIDs)
	assert.Equal(t, indexed, app.Indexed())

	ans, err := app.Ask(context.Background(), "When are refunds issued?")
	require.NoError(t, err)
	assert.Len(t, ans.SourceContext, indexed)
}

func TestIngestFiles_FailedFileCanBeRetried(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.docx", "not a zip")
	app := newTestApp(t, nil)

	res, err := app.IngestFiles(context.Background(), []string{path})
	require.NoError(t, err)
	require.Error(t, res[0].Err)

	res, err = app.IngestFiles(context.Background(), []string{path})
	require.NoError(t, err)
	assert.False(t, res[0].Skipped)
	assert.ErrorIs(t, res[0].Err, domain.ErrExtraction)
}

func TestIngestFiles_NothingSupported(t *testing.T) {
	app := newTestApp(t, nil)
	_, err := app.IngestFiles(context.Background(), []string{filepath.Join(t.TempDir(), "*.xlsx")})
	assert.ErrorIs(t, err, ErrNoDocuments)
}

func TestAsk_EmptyIndex(t *testing.T) {
	app := newTestApp(t, nil)
	ans, err := app.Ask(context.Background(), "anything?")
	require.NoError(t, err)
	assert.Equal(t, generation.InsufficientInformation, ans.Answer)
}
