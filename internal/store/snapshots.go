package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StepName identifies a save pipeline step for debug snapshots.
type StepName string

const (
	StepCapture StepName = "capture"
	StepExtract StepName = "extract"
	StepBlocks  StepName = "blocks"
	StepSummary StepName = "summary"
)

// SnapshotDirName is the cache subdirectory holding step snapshots
const SnapshotDirName = "steps"

// Snapshots writes the intermediate output of each pipeline step under a cache dir
type Snapshots struct {
	dir string
}

// NewSnapshots creates a snapshot writer rooted at dir
func NewSnapshots(dir string) *Snapshots {
	return &Snapshots{dir: dir}
}

// SummaryExchange is a summarizer prompt/response pair kept for debugging
type SummaryExchange struct {
	Timestamp time.Time `json:"timestamp"`
	Model     string    `json:"model"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	Error     string    `json:"error,omitempty"`
}

// stepDir returns the cache directory for a given step.
func (s *Snapshots) stepDir(step StepName) string {
	return filepath.Join(s.dir, string(step))
}

// generateFilename creates a timestamped filename with the given extension.
// Nanoseconds keep names unique and sortable when several saves run concurrently.
func generateFilename(ext string) string {
	return time.Now().Format("2006-01-02T15-04-05.000000000") + ext
}

// SaveJSON saves JSON-serializable data to the step's cache directory.
// Returns the path to the saved file.
func SaveJSON[T any](s *Snapshots, step StepName, data T) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal step output: %w", err)
	}
	return s.write(step, jsonData, ".json")
}

// SaveText saves text content (e.g. captured HTML) to the step's cache directory.
// Returns the path to the saved file.
func (s *Snapshots) SaveText(step StepName, content string, ext string) (string, error) {
	return s.write(step, []byte(content), ext)
}

func (s *Snapshots) write(step StepName, data []byte, ext string) (string, error) {
	dir := s.stepDir(step)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create step cache dir: %w", err)
	}

	path := filepath.Join(dir, generateFilename(ext))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write step output: %w", err)
	}
	return path, nil
}

// LoadLatestJSON loads the most recent JSON output of a step.
// Returns the data, the filepath it was loaded from, and any error.
func LoadLatestJSON[T any](s *Snapshots, step StepName) (T, string, error) {
	var zero T

	latestPath, err := s.LatestFile(step)
	if err != nil {
		return zero, "", err
	}

	data, err := LoadJSON[T](latestPath)
	if err != nil {
		return zero, "", err
	}

	return data, latestPath, nil
}

// LoadJSON loads JSON data from a specific file path.
func LoadJSON[T any](path string) (T, error) {
	var data T

	jsonData, err := os.ReadFile(path)
	if err != nil {
		return data, fmt.Errorf("failed to read step output: %w", err)
	}

	if err := json.Unmarshal(jsonData, &data); err != nil {
		return data, fmt.Errorf("failed to unmarshal step output: %w", err)
	}

	return data, nil
}

// LatestFile returns the path to the most recent file in a step's cache directory.
func (s *Snapshots) LatestFile(step StepName) (string, error) {
	entries, err := os.ReadDir(s.stepDir(step))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("no cached output for step %s", step)
		}
		return "", err
	}

	// os.ReadDir sorts by name, which is chronological for our timestamps
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, entry.Name())
		}
	}

	if len(files) == 0 {
		return "", fmt.Errorf("no cached output for step %s", step)
	}

	return filepath.Join(s.stepDir(step), files[len(files)-1]), nil
}
