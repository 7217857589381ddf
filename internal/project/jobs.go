// Package project persists packing jobs and their inputs on disk as
// JSON under the user's ~/.deeppack directory.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kittfreight/deeppack/internal/freight"
)

// Job couples a packing request with its result so a run can be
// reloaded, re-exported or re-run later.
type Job struct {
	Version   string          `json:"version"`
	CreatedAt string          `json:"created_at"`
	Request   freight.Request `json:"request"`
	Result    *freight.Result `json:"result,omitempty"`
}

// NewJob stamps a request/result pair with version and creation time.
func NewJob(req freight.Request, res *freight.Result) Job {
	return Job{
		Version:   "1.0.0",
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Request:   req,
		Result:    res,
	}
}

// DefaultJobsDir returns the directory jobs are stored in, which is
// ~/.deeppack/jobs.
func DefaultJobsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".deeppack", "jobs"), nil
}

// JobPath returns the file a job with the given ID is stored at.
func JobPath(dir, jobID string) string {
	return filepath.Join(dir, jobID+".json")
}

// SaveJob writes the job to the given path, creating parent directories
// as needed.
func SaveJob(path string, job Job) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadJob reads a job back from the given path.
func LoadJob(path string) (Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Job{}, err
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return Job{}, fmt.Errorf("failed to parse job file: %w", err)
	}
	if job.Version == "" {
		return Job{}, fmt.Errorf("invalid job file %s: missing version field", path)
	}
	return job, nil
}

// ListJobs returns the IDs of every job stored in dir, newest first by
// file name. A missing directory is an empty list, not an error.
func ListJobs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

// DeleteJob removes a stored job.
func DeleteJob(dir, jobID string) error {
	return os.Remove(JobPath(dir, jobID))
}
