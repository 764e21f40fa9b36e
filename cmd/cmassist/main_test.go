package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/cmassist/internal/cli"
	"github.com/hyperjump/cmassist/internal/models"
)

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath, debugFlag = "", false
	retrieveTopK, retrieveThreshold, retrieveOutput = 0, -1, "text"
	ingestSample, ingestChangedOnly, ingestOutput = false, false, "text"
	statusOutput = "text"
	initForce = false

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	err := rootCmd.Execute()
	return buf.String(), err
}

// writeHashingConfig writes a config that keeps everything under dir and
// embeds with the offline hashing model.
func writeHashingConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	content := `storage:
  index_path: index
  knowledge_dir: knowledge
embedding:
  provider: hashing
  dimensions: 256
retrieval:
  top_k: 5
  similarity_threshold: 0.0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestVersionCmd(t *testing.T) {
	original := version
	version = "test-1.2.3"
	defer func() { version = original }()

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "cmassist version test-1.2.3")
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"ADKAR"}, "ADKAR"},
		{"multiple words", []string{"managing", "resistance"}, "managing resistance"},
		{"quoted phrase", []string{"managing resistance"}, "managing resistance"},
		{"blank args", []string{"  ", "  "}, ""},
		{"empty", []string{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildQuery(tt.args))
		})
	}
}

func TestLoadConfig_explicitPath(t *testing.T) {
	dir := t.TempDir()
	path := writeHashingConfig(t, dir)

	c, resolved, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, path, resolved)
	assert.Equal(t, "hashing", c.Embedding.Provider)
	assert.Equal(t, filepath.Join(dir, "index"), c.Storage.IndexPath)
	assert.Equal(t, filepath.Join(dir, "knowledge"), c.Storage.KnowledgeDir)
}

func TestLoadConfig_missingFile(t *testing.T) {
	_, _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestInitCmd_writesConfigOnce(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeHashingConfig(t, dir)
	target := filepath.Join(dir, "out", "cmassist.toml")

	out, err := execute(t, "--config", cfgPath, "init", target)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+target)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hashing")

	_, err = execute(t, "--config", cfgPath, "init", target)
	assert.Error(t, err, "init must not overwrite without --force")

	_, err = execute(t, "--config", cfgPath, "init", "--force", target)
	assert.NoError(t, err)
}

func TestIngestRetrieveStatus(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeHashingConfig(t, dir)

	out, err := execute(t, "--config", cfgPath, "ingest", "--sample", "-o", "json")
	require.NoError(t, err)
	jsonStart := strings.Index(out, "{")
	require.GreaterOrEqual(t, jsonStart, 0, out)
	var report models.IngestReport
	require.NoError(t, json.Unmarshal([]byte(out[jsonStart:]), &report))
	assert.Equal(t, 6, len(report.Files))
	assert.Zero(t, report.Failed)
	assert.Greater(t, report.Chunks, 0)

	out, err = execute(t, "--config", cfgPath, "retrieve",
		"Awareness", "Desire", "Knowledge", "Ability", "Reinforcement",
		"--top-k", "1", "-o", "json")
	require.NoError(t, err)
	var resp models.RetrieveResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Results, 1)
	assert.Contains(t, resp.Results[0].Chunk.Source(), "adkar_model.md")
	assert.Equal(t, "frameworks", resp.Results[0].Chunk.Metadata[models.MetaCategory])
	assert.Contains(t, resp.Context, "[Document 1] From ")
	assert.Equal(t, 1, resp.ChunkCount)

	out, err = execute(t, "--config", cfgPath, "ingest", "--changed-only", "-o", "json")
	require.NoError(t, err)
	var again models.IngestReport
	require.NoError(t, json.Unmarshal([]byte(out), &again))
	assert.Equal(t, 6, again.Skipped)
	assert.Zero(t, again.Chunks)

	out, err = execute(t, "--config", cfgPath, "status", "-o", "json")
	require.NoError(t, err)
	var st cli.Status
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, report.Chunks, st.ChunkCount)
	assert.Equal(t, 256, st.Dimensions)
	assert.Equal(t, "hashing-bow", st.Model)
	assert.Equal(t, 6, st.Sources)
	assert.Greater(t, st.DiskUsageBytes, int64(0))
}

func TestRetrieveCmd_rejectsBadOutput(t *testing.T) {
	cfgPath := writeHashingConfig(t, t.TempDir())
	_, err := execute(t, "--config", cfgPath, "retrieve", "kotter", "-o", "xml")
	assert.Error(t, err)
}
