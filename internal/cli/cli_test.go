package cli

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentrag/internal/message"
)

// execute runs the root command with a quiet config and fresh flag state.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("log:\n  level: error\nchunker:\n  window: 200\n  overlap: 20\n"), 0o644))

	askFiles, askJSON, verbose = nil, false, false
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(append([]string{"--config", cfg}, args...))
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestAskCmd_RequiresExactlyOneArg(t *testing.T) {
	_, err := execute(t, "ask")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestAskCmd_HasFileFlag(t *testing.T) {
	flag := askCmd.Flags().Lookup("file")
	require.NotNil(t, flag)
	assert.Equal(t, "f", flag.Shorthand)
}

func TestIngestCmd_ReportsChunks(t *testing.T) {
	doc := writeDoc(t, "notes.txt", "The warehouse opens at nine. Deliveries arrive before noon.")
	out, err := execute(t, "ingest", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "ok   "+doc+" [txt_md] chunk 0")
	assert.Contains(t, out, "1 chunks indexed with hashing-384")
}

func TestIngestCmd_SkipsRepeatedName(t *testing.T) {
	a := writeDoc(t, "same.txt", "First copy of the notes.")
	b := writeDoc(t, "same.txt", "Second copy of the notes.")
	out, err := execute(t, "ingest", a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "ok   "+a)
	assert.Contains(t, out, "skip "+b+": already ingested")
	assert.Contains(t, out, "1 chunks indexed")
}

func TestIngestCmd_NoSupportedFiles(t *testing.T) {
	_, err := execute(t, "ingest", filepath.Join(t.TempDir(), "*.xlsx"))
	assert.Error(t, err)
}

func TestAskCmd_PrintsAnswerAndSources(t *testing.T) {
	doc := writeDoc(t, "hours.txt", "The warehouse opens at nine. Deliveries arrive before noon.")
	out, err := execute(t, "ask", "When does the warehouse open?", "--file", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "The warehouse opens at nine.")
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "Source: hours.txt, Type: txt_md, Chunk ID: 0")
}

func TestAskCmd_JSONTranscript(t *testing.T) {
	doc := writeDoc(t, "hours.txt", "The warehouse opens at nine.")
	out, err := execute(t, "ask", "When does the warehouse open?", "-f", doc, "--json")
	require.NoError(t, err)

	var types []message.Type
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		m, err := message.Decode([]byte(line))
		require.NoError(t, err, line)
		types = append(types, m.Type())
	}
	assert.Equal(t, []message.Type{
		message.TypeDocumentParsed,
		message.TypeIndexingComplete,
		message.TypeRetrievalResult,
		message.TypeFinalAnswer,
	}, types)
}

func TestChunkRange(t *testing.T) {
	assert.Equal(t, "no chunks", chunkRange(nil))
	assert.Equal(t, "chunk 4", chunkRange([]int{4}))
	assert.Equal(t, "chunks 2-5", chunkRange([]int{2, 3, 4, 5}))
}
