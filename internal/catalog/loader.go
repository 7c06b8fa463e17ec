// Package catalog loads the static problem bank and the topic curriculum
// from YAML, and picks the rotating daily problem.
package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/terra-clan/dsa-tracker/internal/models"
)

// Loader manages loading and caching of the problem bank
type Loader struct {
	mu         sync.RWMutex
	problems   map[string]*models.Problem
	order      []string
	curriculum []models.Topic
}

// NewLoader creates an empty problem bank
func NewLoader() *Loader {
	return &Loader{
		problems: make(map[string]*models.Problem),
	}
}

// LoadFromDir loads every YAML file in dir, in file name order
func (l *Loader) LoadFromDir(dir string) error {
	slog.Info("loading problem bank from directory", "dir", dir)

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	loaded := 0
	for _, file := range files {
		if err := l.LoadFromFile(file); err != nil {
			slog.Warn("failed to load problem file", "file", file, "error", err)
			continue
		}
		loaded++
	}

	slog.Info("problem bank loaded", "files", loaded, "total_files", len(files), "problems", l.Len())
	return nil
}

// LoadFromFile loads problems and an optional curriculum from one YAML file
func (l *Loader) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	return l.Load(data)
}

// Load parses a problem bank document
func (l *Loader) Load(data []byte) error {
	var bf bankFile
	if err := yaml.Unmarshal(data, &bf); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	curriculum := make([]models.Topic, 0, len(bf.Curriculum))
	for _, raw := range bf.Curriculum {
		t, ok := models.ParseTopic(raw)
		if !ok {
			return fmt.Errorf("unknown curriculum topic %q", raw)
		}
		curriculum = append(curriculum, t)
	}

	problems := make([]*models.Problem, 0, len(bf.Problems))
	for i, pf := range bf.Problems {
		p, err := pf.toProblem()
		if err != nil {
			return fmt.Errorf("problem %d: %w", i, err)
		}
		problems = append(problems, p)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(curriculum) > 0 {
		l.curriculum = curriculum
	}
	for _, p := range problems {
		if _, exists := l.problems[p.ID]; !exists {
			l.order = append(l.order, p.ID)
		}
		l.problems[p.ID] = p
	}
	return nil
}

// Add programmatically adds a problem
func (l *Loader) Add(p *models.Problem) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.problems[p.ID]; !exists {
		l.order = append(l.order, p.ID)
	}
	l.problems[p.ID] = p
}

// Get retrieves a problem by ID
func (l *Loader) Get(id string) *models.Problem {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.problems[id]
}

// Len returns the number of loaded problems
func (l *Loader) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}

// List returns problems matching filters in bank order
func (l *Loader) List(filters models.ProblemFilters) []*models.Problem {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*models.Problem, 0, len(l.order))
	for _, id := range l.order {
		p := l.problems[id]
		if filters.Difficulty != "" && p.Difficulty != filters.Difficulty {
			continue
		}
		if filters.Topic != "" && !p.HasTopic(filters.Topic) {
			continue
		}
		if filters.Platform != "" && !strings.EqualFold(p.Platform, filters.Platform) {
			continue
		}
		result = append(result, p)
	}
	return result
}

// Curriculum returns the topic study order, defaulting to models.AllTopics
func (l *Loader) Curriculum() []models.Topic {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.curriculum) == 0 {
		return models.AllTopics
	}
	return append([]models.Topic(nil), l.curriculum...)
}

// TodaysProblem returns the daily problem for date's calendar day in loc.
// The bank rotates one problem per day; nil when the bank is empty.
func (l *Loader) TodaysProblem(date time.Time, loc *time.Location) *models.Problem {
	if loc == nil {
		loc = time.Local
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.order) == 0 {
		return nil
	}
	y, m, d := date.In(loc).Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
	idx := int(day % int64(len(l.order)))
	if idx < 0 {
		idx += len(l.order)
	}
	return l.problems[l.order[idx]]
}

// --- YAML file structs ---

// bankFile represents the YAML structure of a problem bank file
type bankFile struct {
	Curriculum []string      `yaml:"curriculum"`
	Problems   []problemFile `yaml:"problems"`
}

type problemFile struct {
	ID         string   `yaml:"id"`
	Title      string   `yaml:"title"`
	Platform   string   `yaml:"platform"`
	URL        string   `yaml:"url"`
	Difficulty string   `yaml:"difficulty"`
	Topics     []string `yaml:"topics"`
}

func (pf problemFile) toProblem() (*models.Problem, error) {
	if pf.ID == "" {
		return nil, fmt.Errorf("id is required")
	}
	if pf.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	difficulty, ok := models.ParseDifficulty(pf.Difficulty)
	if !ok {
		return nil, fmt.Errorf("invalid difficulty %q", pf.Difficulty)
	}

	topics := make([]models.Topic, 0, len(pf.Topics))
	for _, raw := range pf.Topics {
		t, ok := models.ParseTopic(raw)
		if !ok {
			return nil, fmt.Errorf("unknown topic %q", raw)
		}
		topics = append(topics, t)
	}

	return &models.Problem{
		ID:         pf.ID,
		Title:      pf.Title,
		Platform:   pf.Platform,
		URL:        pf.URL,
		Difficulty: difficulty,
		Topics:     topics,
	}, nil
}
