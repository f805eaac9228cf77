package confirmation

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"mysql-drift-guard/internal/display"
	"mysql-drift-guard/internal/migration"
)

// Service prompts the user before destructive operations. An interrupt while
// waiting for input counts as a refusal.
type Service struct {
	display *display.Service
	reader  *bufio.Reader
}

// NewService creates a confirmation service reading from stdin
func NewService(displayService *display.Service) *Service {
	return NewServiceWithReader(displayService, os.Stdin)
}

// NewServiceWithReader creates a confirmation service reading from r
func NewServiceWithReader(displayService *display.Service, r io.Reader) *Service {
	if displayService == nil {
		displayService = display.NewService()
	}
	return &Service{
		display: displayService,
		reader:  bufio.NewReader(r),
	}
}

// ConfirmMigration shows the artifact's statements and asks for approval.
// Answering d re-displays the statements and prompts again.
func (s *Service) ConfirmMigration(artifact *migration.Artifact, autoApprove bool) (bool, error) {
	s.display.PrintHeader("Pending Migration")
	s.display.Info(fmt.Sprintf("%d statement(s) to apply", len(artifact.Statements)))

	if autoApprove {
		s.display.Success("Auto-approving migration")
		return true, nil
	}

	interruptChan := make(chan os.Signal, 1)
	signal.Notify(interruptChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interruptChan)

	for {
		inputChan := make(chan string, 1)
		errorChan := make(chan error, 1)

		go func() {
			input, err := s.prompt("Apply this migration? [y/N/d]: ")
			if err != nil {
				errorChan <- err
				return
			}
			inputChan <- input
		}()

		select {
		case <-interruptChan:
			s.display.Warning("Operation cancelled by user")
			return false, nil
		case err := <-errorChan:
			return false, fmt.Errorf("failed to read user input: %w", err)
		case input := <-inputChan:
			switch strings.ToLower(strings.TrimSpace(input)) {
			case "y", "yes":
				return true, nil
			case "n", "no", "":
				return false, nil
			case "d", "details":
				s.display.PrintSQL(artifact.Statements)
			default:
				s.display.Warning(fmt.Sprintf("Invalid input %q. Enter y, n, or d.", input))
			}
		}
	}
}

// Confirm asks a plain yes/no question, defaulting to no
func (s *Service) Confirm(question string) (bool, error) {
	input, err := s.prompt(fmt.Sprintf("%s [y/N]: ", question))
	if err != nil {
		return false, fmt.Errorf("failed to read user input: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (s *Service) prompt(message string) (string, error) {
	fmt.Print(message)
	input, err := s.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
