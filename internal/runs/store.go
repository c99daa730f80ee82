// Package runs keeps one directory per scrape run with its results and the
// extracted reviews.
package runs

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Paladin4ick/ZoonParser/internal/zoon"
)

const (
	runFile     = "run.json"
	reviewsFile = "reviews.json"
	idLayout    = "20060102-150405"
)

type Run struct {
	ID         string        `json:"id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Listings   int           `json:"listings"`
	Unresolved int           `json:"unresolved"`
	OK         int           `json:"ok"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	Error      string        `json:"error,omitempty"`
	Results    []zoon.Result `json:"results"`
}

// NewRun records a finished summary. runErr is the error the run ended with, if any.
func NewRun(s zoon.Summary, runErr error) Run {
	ok, skipped, failed := s.Counts()
	r := Run{
		ID:         s.StartedAt.UTC().Format(idLayout),
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
		Listings:   s.Listings,
		Unresolved: s.Unresolved,
		OK:         ok,
		Skipped:    skipped,
		Failed:     failed,
		Results:    s.Results,
	}
	if runErr != nil {
		r.Error = runErr.Error()
	}
	return r
}

func (r Run) Reviews() []zoon.Review {
	reviews := make([]zoon.Review, 0, r.OK)
	for _, res := range r.Results {
		if res.Review != nil {
			reviews = append(reviews, *res.Review)
		}
	}
	return reviews
}

type Store struct {
	Root      string
	Retention time.Duration
}

func (s Store) EnsureDir() error {
	return os.MkdirAll(s.Root, 0o755)
}

func (s Store) RunDir(id string) string {
	return filepath.Join(s.Root, sanitizeID(id))
}

func (s Store) RunPath(id string) string {
	return filepath.Join(s.RunDir(id), runFile)
}

func (s Store) ReviewsPath(id string) string {
	return filepath.Join(s.RunDir(id), reviewsFile)
}

func (s Store) Load(id string) (Run, error) {
	b, err := os.ReadFile(s.RunPath(id))
	if err != nil {
		return Run{}, err
	}
	var r Run
	if err := json.Unmarshal(b, &r); err != nil {
		return Run{}, err
	}
	return r, nil
}

// Save writes run.json and reviews.json into the run's directory.
func (s Store) Save(r Run) error {
	r.ID = sanitizeID(r.ID)
	if r.ID == "" {
		return errors.New("run id required")
	}
	if err := os.MkdirAll(s.RunDir(r.ID), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.RunPath(r.ID), b, 0o644); err != nil {
		return err
	}
	b, err = json.MarshalIndent(r.Reviews(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.ReviewsPath(r.ID), b, 0o644)
}

// List returns saved runs, newest first. Unreadable directories are skipped.
func (s Store) List() ([]Run, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	list := make([]Run, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		r, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].StartedAt.After(list[j].StartedAt)
	})
	return list, nil
}

func (s Store) Remove(id string) error {
	if sanitizeID(id) == "" {
		return errors.New("run id required")
	}
	return os.RemoveAll(s.RunDir(id))
}

func (s Store) IsExpired(r Run) bool {
	if s.Retention <= 0 {
		return false
	}
	return time.Now().UTC().After(r.StartedAt.Add(s.Retention))
}

func (s Store) Prune() ([]Run, error) {
	list, err := s.List()
	if err != nil {
		return nil, err
	}
	removed := make([]Run, 0)
	for _, r := range list {
		if s.IsExpired(r) {
			if err := s.Remove(r.ID); err != nil {
				return removed, err
			}
			removed = append(removed, r)
		}
	}
	return removed, nil
}

func sanitizeID(id string) string {
	id = strings.TrimSpace(id)
	id = filepath.Base(id)
	if id == "." || id == string(filepath.Separator) {
		return ""
	}
	return id
}
