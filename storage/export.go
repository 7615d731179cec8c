package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"vote-admin/models"
)

// WriteElection writes the canonical serialized form of an election.
func WriteElection(w io.Writer, election *models.Election) error {
	if err := json.NewEncoder(w).Encode(election); err != nil {
		return fmt.Errorf("failed to encode election: %w", err)
	}
	return nil
}

// ReadElection parses an election from its canonical serialized form.
func ReadElection(r io.Reader) (*models.Election, error) {
	var election models.Election
	if err := json.NewDecoder(r).Decode(&election); err != nil {
		return nil, fmt.Errorf("failed to decode election: %w", err)
	}
	return &election, nil
}

// SaveElection writes the election to path. The recovery phrase is not part
// of an Election and is never written here.
func SaveElection(path string, election *models.Election) error {
	data, err := json.Marshal(election)
	if err != nil {
		return fmt.Errorf("failed to marshal election: %w", err)
	}

	// Write to temporary file first
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write election file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save election file: %w", err)
	}

	return nil
}

// LoadElection reads an election previously written by SaveElection.
func LoadElection(path string) (*models.Election, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	return ReadElection(file)
}

// LoadElectionData reads a full bundle, including the recovery phrase.
func LoadElectionData(path string) (*models.ElectionData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	var bundle models.ElectionData
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("failed to unmarshal election data: %w", err)
	}
	return &bundle, nil
}

// SaveElectionData writes a full bundle with owner-only permissions since it
// carries the recovery phrase.
func SaveElectionData(path string, bundle *models.ElectionData) error {
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal election data: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write election data: %w", err)
	}
	return nil
}
