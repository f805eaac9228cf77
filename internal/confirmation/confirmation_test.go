package confirmation

import (
	"bytes"
	"strings"
	"testing"

	"mysql-drift-guard/internal/display"
	"mysql-drift-guard/internal/migration"
)

func testArtifact() *migration.Artifact {
	return &migration.Artifact{
		Statements: []string{"CREATE TABLE `users` (`id` bigint NOT NULL)"},
	}
}

func newTestService(input string) (*Service, *bytes.Buffer) {
	var out bytes.Buffer
	disp := display.NewServiceWithWriter(&out)
	return NewServiceWithReader(disp, strings.NewReader(input)), &out
}

func TestConfirmMigrationAutoApprove(t *testing.T) {
	service, out := newTestService("")

	approved, err := service.ConfirmMigration(testArtifact(), true)
	if err != nil {
		t.Fatalf("ConfirmMigration failed: %v", err)
	}
	if !approved {
		t.Error("Expected auto-approval")
	}
	if !strings.Contains(out.String(), "Auto-approving") {
		t.Error("Expected auto-approval notice in output")
	}
}

func TestConfirmMigrationAnswers(t *testing.T) {
	tests := []struct {
		input    string
		approved bool
	}{
		{"y\n", true},
		{"yes\n", true},
		{"Y\n", true},
		{"n\n", false},
		{"no\n", false},
		{"\n", false}, // default is no
	}

	for _, tt := range tests {
		service, _ := newTestService(tt.input)

		approved, err := service.ConfirmMigration(testArtifact(), false)
		if err != nil {
			t.Fatalf("ConfirmMigration(%q) failed: %v", tt.input, err)
		}
		if approved != tt.approved {
			t.Errorf("ConfirmMigration(%q) = %v, want %v", tt.input, approved, tt.approved)
		}
	}
}

func TestConfirmMigrationDetailsThenApprove(t *testing.T) {
	service, out := newTestService("d\ny\n")

	approved, err := service.ConfirmMigration(testArtifact(), false)
	if err != nil {
		t.Fatalf("ConfirmMigration failed: %v", err)
	}
	if !approved {
		t.Error("Expected approval after viewing details")
	}
	if !strings.Contains(out.String(), "CREATE TABLE `users`") {
		t.Error("Expected statements to be shown after answering d")
	}
}

func TestConfirmMigrationInvalidInputReprompts(t *testing.T) {
	service, out := newTestService("maybe\nn\n")

	approved, err := service.ConfirmMigration(testArtifact(), false)
	if err != nil {
		t.Fatalf("ConfirmMigration failed: %v", err)
	}
	if approved {
		t.Error("Expected refusal after invalid input then n")
	}
	if !strings.Contains(out.String(), "Invalid input") {
		t.Error("Expected invalid input warning")
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input    string
		approved bool
	}{
		{"y\n", true},
		{"n\n", false},
		{"\n", false},
		{"anything\n", false},
	}

	for _, tt := range tests {
		service, _ := newTestService(tt.input)

		approved, err := service.Confirm("Delete 3 expired backups?")
		if err != nil {
			t.Fatalf("Confirm(%q) failed: %v", tt.input, err)
		}
		if approved != tt.approved {
			t.Errorf("Confirm(%q) = %v, want %v", tt.input, approved, tt.approved)
		}
	}
}
