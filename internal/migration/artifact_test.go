package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestArtifactFilename(t *testing.T) {
	artifact := &Artifact{
		GeneratedAt: time.Date(2026, 8, 23, 12, 0, 0, 0, time.Local),
		Description: "schema drift",
	}

	if got := artifact.Filename(); got != "20260823120000_schema_drift.sql" {
		t.Errorf("Filename() = %q", got)
	}
}

func TestWriteAndLoadArtifactRoundTrip(t *testing.T) {
	dir := t.TempDir()

	artifact := &Artifact{
		Statements: []string{
			"CREATE TABLE `users` (\n  `id` bigint NOT NULL,\n  PRIMARY KEY (`id`)\n)",
			"ALTER TABLE `orders` ADD COLUMN `status` varchar(32) NOT NULL",
		},
		GeneratedAt: time.Date(2026, 8, 23, 12, 0, 0, 0, time.Local),
		Description: "schema drift",
	}

	path, err := WriteArtifact(artifact, dir)
	if err != nil {
		t.Fatalf("WriteArtifact failed: %v", err)
	}
	if artifact.Path != path {
		t.Errorf("Artifact path not recorded: %q vs %q", artifact.Path, path)
	}

	loaded, err := LoadArtifact(path)
	if err != nil {
		t.Fatalf("LoadArtifact failed: %v", err)
	}

	if len(loaded.Statements) != len(artifact.Statements) {
		t.Fatalf("Expected %d statements, got %d", len(artifact.Statements), len(loaded.Statements))
	}
	if !strings.Contains(loaded.Statements[0], "CREATE TABLE `users`") {
		t.Errorf("First statement lost: %q", loaded.Statements[0])
	}
	if !strings.HasPrefix(loaded.Statements[1], "ALTER TABLE `orders`") {
		t.Errorf("Second statement lost: %q", loaded.Statements[1])
	}
	if !loaded.GeneratedAt.Equal(artifact.GeneratedAt) {
		t.Errorf("Timestamp not recovered from file name: got %v, want %v",
			loaded.GeneratedAt, artifact.GeneratedAt)
	}
}

func TestLoadArtifactDropsComments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "20260823120000_manual.sql")

	content := "-- a header comment\n\nCREATE TABLE `t` (`id` int NOT NULL);\n-- trailing comment\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	loaded, err := LoadArtifact(path)
	if err != nil {
		t.Fatalf("LoadArtifact failed: %v", err)
	}
	if len(loaded.Statements) != 1 {
		t.Fatalf("Expected 1 statement, got %d: %v", len(loaded.Statements), loaded.Statements)
	}
	if strings.Contains(loaded.Statements[0], "--") {
		t.Errorf("Comment leaked into statement: %q", loaded.Statements[0])
	}
}

func TestLoadArtifactRejectsEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "20260823120000_empty.sql")

	if err := os.WriteFile(path, []byte("-- only comments\n"), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	if _, err := LoadArtifact(path); err == nil {
		t.Error("Expected error for an artifact without statements")
	}
}

func TestWriteArtifactRejectsEmpty(t *testing.T) {
	if _, err := WriteArtifact(&Artifact{}, t.TempDir()); err == nil {
		t.Error("Expected error for an artifact without statements")
	}
}
