// Package state manages CLI state like the last quote ID.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	stateDir      = ".quotecraft"
	lastQuoteFile = "last-quote"
)

// getStatePath returns the path to the state directory.
func getStatePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, stateDir), nil
}

// SaveLastQuote saves the quote ID to ~/.quotecraft/last-quote so follow-up
// commands can omit it.
func SaveLastQuote(quoteID string) error {
	statePath, err := getStatePath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(statePath, 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	filePath := filepath.Join(statePath, lastQuoteFile)
	if err := os.WriteFile(filePath, []byte(quoteID+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to save last quote: %w", err)
	}

	return nil
}

// GetLastQuote reads the last quote ID from ~/.quotecraft/last-quote.
func GetLastQuote() (string, error) {
	statePath, err := getStatePath()
	if err != nil {
		return "", err
	}

	filePath := filepath.Join(statePath, lastQuoteFile)
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("no previous quote found")
		}
		return "", fmt.Errorf("failed to read last quote: %w", err)
	}

	quoteID := strings.TrimSpace(string(data))
	if quoteID == "" {
		return "", fmt.Errorf("last quote file is empty")
	}

	return quoteID, nil
}
