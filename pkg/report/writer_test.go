package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xpulse/pkg/config"
	"xpulse/pkg/logger"
	"xpulse/pkg/models"
)

func sampleReport() *models.Report {
	return &models.Report{
		GeneratedAt: time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC),
		Period:      models.Period{From: "2026-01-01", To: "2026-08-30"},
		Keywords: []models.KeywordResult{
			{
				Keyword: "comarb",
				Posts: []models.PostRecord{
					{
						ID:        "1",
						Text:      "excelente 🎉",
						Sentiment: "positivo",
						Score:     0.675,
					},
				},
				Summary:    models.SentimentSummary{Positive: 1},
				TotalFound: 1,
			},
		},
	}
}

func TestWriteProducesPrettyJSON(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.OutputConfig{
		DataFile: filepath.Join(dir, "tweets_data.json"),
	}

	w := NewWriter(cfg, logger.NewTestLogger())
	require.NoError(t, w.Write(sampleReport()))

	data, err := os.ReadFile(cfg.DataFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  ", "report is indented")

	var decoded models.Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Keywords, 1)
	assert.Equal(t, "comarb", decoded.Keywords[0].Keyword)
	assert.Equal(t, 0.675, decoded.Keywords[0].Posts[0].Score)
	assert.Equal(t, "positivo", decoded.Keywords[0].Posts[0].Sentiment)
}

func TestWritePublishesSiteCopy(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.OutputConfig{
		DataFile: filepath.Join(dir, "tweets_data.json"),
		SiteDir:  filepath.Join(dir, "docs"),
	}

	w := NewWriter(cfg, logger.NewTestLogger())
	require.NoError(t, w.Write(sampleReport()))

	primary, err := os.ReadFile(cfg.DataFile)
	require.NoError(t, err)
	published, err := os.ReadFile(filepath.Join(cfg.SiteDir, "tweets_data.json"))
	require.NoError(t, err)
	assert.Equal(t, primary, published)
}

func TestWriteCreatesMissingDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.OutputConfig{
		DataFile: filepath.Join(dir, "nested", "deep", "report.json"),
	}

	w := NewWriter(cfg, logger.NewTestLogger())
	require.NoError(t, w.Write(sampleReport()))

	_, err := os.Stat(cfg.DataFile)
	assert.NoError(t, err)
}

func TestWriteSiteCopyFailureIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocked")
	require.NoError(t, os.WriteFile(blocker, []byte("file, not dir"), 0o644))

	cfg := &config.OutputConfig{
		DataFile: filepath.Join(dir, "tweets_data.json"),
		SiteDir:  blocker,
	}

	log := logger.NewTestLogger()
	w := NewWriter(cfg, log)
	require.NoError(t, w.Write(sampleReport()))
	assert.True(t, log.HasMessage("failed to publish site copy"))
}

func TestWriteUsesSpanishFieldNames(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.OutputConfig{DataFile: filepath.Join(dir, "out.json")}

	w := NewWriter(cfg, logger.NewTestLogger())
	require.NoError(t, w.Write(sampleReport()))

	data, err := os.ReadFile(cfg.DataFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"positivo"`)
	assert.Contains(t, string(data), `"sentiment_summary"`)
	assert.Contains(t, string(data), `"total_found"`)
}
