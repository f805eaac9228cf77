package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mysql-drift-guard/internal/errors"
	"mysql-drift-guard/internal/schema"
)

// Artifact is an ordered sequence of DDL statements generated from one drift
// report. Once written to disk it is never mutated; new drift produces a new
// artifact.
type Artifact struct {
	Statements  []string            `json:"statements"`
	GeneratedAt time.Time           `json:"generated_at"`
	Description string              `json:"description"`
	Report      *schema.DriftReport `json:"report,omitempty"`
	Path        string              `json:"path,omitempty"`
}

// Filename returns the artifact's file name: a sortable timestamp prefix plus
// a short description, so multiple pending artifacts are unambiguously
// ordered.
func (a *Artifact) Filename() string {
	desc := strings.ReplaceAll(strings.ToLower(a.Description), " ", "_")
	if desc == "" {
		desc = "schema_drift"
	}
	return fmt.Sprintf("%s_%s.sql", a.GeneratedAt.Format("20060102150405"), desc)
}

// WriteArtifact persists the artifact under schemaDir and records the written
// path on the artifact.
func WriteArtifact(artifact *Artifact, schemaDir string) (string, error) {
	if len(artifact.Statements) == 0 {
		return "", errors.NewValidationError("artifact has no statements to write", nil)
	}

	if err := os.MkdirAll(schemaDir, 0755); err != nil {
		return "", errors.NewValidationError(fmt.Sprintf("failed to create schema directory %s", schemaDir), err)
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("-- Migration generated at %s\n", artifact.GeneratedAt.Format(time.RFC3339)))
	if artifact.Report != nil {
		builder.WriteString(fmt.Sprintf("-- Drift report %s, severity %s\n", artifact.Report.ID, artifact.Report.Severity))
	}
	builder.WriteString("\n")
	for _, stmt := range artifact.Statements {
		builder.WriteString(stmt)
		builder.WriteString(";\n\n")
	}

	path := filepath.Join(schemaDir, artifact.Filename())
	if err := os.WriteFile(path, []byte(builder.String()), 0644); err != nil {
		return "", errors.NewValidationError(fmt.Sprintf("failed to write migration artifact %s", path), err)
	}

	artifact.Path = path
	return path, nil
}

// LoadArtifact reads a persisted migration file and splits it back into
// ordered statements. Comment lines and blank statements are dropped.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewValidationError(fmt.Sprintf("failed to read migration artifact %s", path), err)
	}

	var statements []string
	for _, raw := range strings.Split(string(data), ";") {
		var lines []string
		for _, line := range strings.Split(raw, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "--") {
				continue
			}
			lines = append(lines, trimmed)
		}
		if len(lines) > 0 {
			statements = append(statements, strings.Join(lines, "\n"))
		}
	}

	if len(statements) == 0 {
		return nil, errors.NewValidationError(fmt.Sprintf("migration artifact %s contains no statements", path), nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.NewValidationError(fmt.Sprintf("failed to stat migration artifact %s", path), err)
	}

	artifact := &Artifact{
		Statements:  statements,
		GeneratedAt: info.ModTime(),
		Description: strings.TrimSuffix(filepath.Base(path), ".sql"),
		Path:        path,
	}

	// Prefer the timestamp embedded in the name when it conforms
	base := filepath.Base(path)
	if len(base) >= 14 {
		if ts, err := time.ParseInLocation("20060102150405", base[:14], time.Local); err == nil {
			artifact.GeneratedAt = ts
		}
	}

	return artifact, nil
}
