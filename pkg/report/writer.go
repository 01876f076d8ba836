package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"xpulse/pkg/config"
	"xpulse/pkg/logger"
	"xpulse/pkg/models"
)

// Writer persists a run's report as indented JSON, once at the configured
// data path and once under the published site directory so a static frontend
// can fetch it without a server-side step.
type Writer struct {
	cfg *config.OutputConfig
	log logger.Logger
}

// NewWriter creates a report writer for the given output configuration.
func NewWriter(cfg *config.OutputConfig, log logger.Logger) *Writer {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Writer{cfg: cfg, log: log}
}

// Write serializes the report to every configured destination. The data file
// is written first; the site copy is best effort and only logged on failure.
func (w *Writer) Write(report *models.Report) error {
	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	if err := writeFile(w.cfg.DataFile, payload); err != nil {
		return err
	}
	w.log.InfoWithFields("report written", map[string]interface{}{
		"path":     w.cfg.DataFile,
		"keywords": len(report.Keywords),
		"bytes":    len(payload),
	})

	if w.cfg.SiteDir != "" {
		siteCopy := filepath.Join(w.cfg.SiteDir, filepath.Base(w.cfg.DataFile))
		if err := writeFile(siteCopy, payload); err != nil {
			w.log.WithError(err).WithField("path", siteCopy).Warn("failed to publish site copy")
		}
	}

	return nil
}

func writeFile(path string, payload []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return nil
}
