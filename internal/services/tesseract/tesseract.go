// Package tesseract wraps the external tesseract binary for label text
// recognition.
package tesseract

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"wsideid/internal/config"
	"wsideid/internal/services"
)

// Service runs the OCR binary against label images.
type Service struct {
	binary        string
	timeout       time.Duration
	commandRunner func(ctx context.Context, name string, args ...string) (string, error)
}

// NewService creates an OCR service with the given configuration.
func NewService(cfg config.OCR) *Service {
	return &Service{
		binary:  cfg.Binary,
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) (string, error)) {
	s.commandRunner = runner
}

// Available reports whether the OCR binary can be resolved.
func (s *Service) Available() bool {
	_, err := exec.LookPath(s.binary)
	return err == nil
}

// RecognizeLabel extracts the text printed on a label image. The returned
// text is whitespace-normalized; an empty string is a valid result meaning
// nothing was recognized.
func (s *Service) RecognizeLabel(ctx context.Context, imagePath string) (string, error) {
	runCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	output, err := s.run(runCtx, s.binary, imagePath, "stdout")
	if err != nil {
		return "", services.Wrap(services.ErrDecode, "tesseract", "recognize", imagePath, err)
	}
	return strings.Join(strings.Fields(output), " "), nil
}

func (s *Service) run(ctx context.Context, name string, args ...string) (string, error) {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.Output()
	if err != nil {
		detail := ""
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			detail = strings.TrimSpace(string(exitErr.Stderr))
		}
		if detail != "" {
			return "", fmt.Errorf("%s: %w: %s", name, err, detail)
		}
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return string(output), nil
}
