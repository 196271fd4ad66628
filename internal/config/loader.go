package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/santhoshkumr96/orchestapi/internal/domain/runrec"
	"github.com/santhoshkumr96/orchestapi/internal/domain/suite"
	apperrors "github.com/santhoshkumr96/orchestapi/pkg/errors"
)

// LoadFile reads one YAML fixture file, decodes it, and validates it
// (struct tags, then cross-references, then each domain type's own
// Validate()). FileDoc paths are resolved relative to path's directory.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewValidationError("config", "reading "+path+": "+err.Error(), err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.NewValidationError("config", "parsing "+path+": "+err.Error(), err)
	}

	if err := validateDocument(&doc); err != nil {
		return nil, err
	}

	baseDir := filepath.Dir(path)
	for _, ed := range doc.Environments {
		if _, err := toEnvironment(ed, baseDir); err != nil {
			return nil, err
		}
	}
	for _, sd := range doc.Suites {
		if _, err := toSuite(sd); err != nil {
			return nil, err
		}
	}

	return &doc, nil
}

// Store is an in-memory SuiteSource/Store backed by the YAML fixture
// files it was loaded from: the engine's substitute for a persistence
// layer. It implements scheduler.SuiteSource and
// scheduler.Store.
type Store struct {
	mu sync.RWMutex

	environments map[string]*suite.Environment
	suites       map[string]*suite.TestSuite
	schedules    map[string]runrec.RunSchedule
	scheduleFile map[string]string
}

// LoadDir loads every *.yaml/*.yml file directly under dir and merges
// them into one Store. Duplicate environment/suite/schedule IDs across
// files are rejected the same as within one file.
func LoadDir(dir string) (*Store, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperrors.NewValidationError("config", "reading directory "+dir+": "+err.Error(), err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	return LoadFiles(paths...)
}

// LoadFiles loads and merges the given fixture files into one Store.
func LoadFiles(paths ...string) (*Store, error) {
	st := &Store{
		environments: make(map[string]*suite.Environment),
		suites:       make(map[string]*suite.TestSuite),
		schedules:    make(map[string]runrec.RunSchedule),
		scheduleFile: make(map[string]string),
	}

	for _, path := range paths {
		doc, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		baseDir := filepath.Dir(path)

		for _, ed := range doc.Environments {
			if _, exists := st.environments[ed.ID]; exists {
				return nil, apperrors.NewValidationError("environments", fmt.Sprintf("duplicate environment id %q across fixture files", ed.ID), nil)
			}
			env, err := toEnvironment(ed, baseDir)
			if err != nil {
				return nil, err
			}
			st.environments[ed.ID] = env
		}

		for _, sd := range doc.Suites {
			if _, exists := st.suites[sd.ID]; exists {
				return nil, apperrors.NewValidationError("suites", fmt.Sprintf("duplicate suite id %q across fixture files", sd.ID), nil)
			}
			def, err := toSuite(sd)
			if err != nil {
				return nil, err
			}
			st.suites[sd.ID] = def
		}

		for _, scd := range doc.Schedules {
			if _, exists := st.schedules[scd.ID]; exists {
				return nil, apperrors.NewValidationError("schedules", fmt.Sprintf("duplicate schedule id %q across fixture files", scd.ID), nil)
			}
			st.schedules[scd.ID] = toSchedule(scd)
			st.scheduleFile[scd.ID] = path
		}
	}

	return st, nil
}

// Suite implements scheduler.SuiteSource.
func (s *Store) Suite(id string) (*suite.TestSuite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.suites[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("suite", id, nil)
	}
	return def, nil
}

// Environment implements scheduler.SuiteSource.
func (s *Store) Environment(id string) (*suite.Environment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	env, ok := s.environments[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("environment", id, nil)
	}
	return env, nil
}

// Schedules returns every schedule currently known to the store, sorted
// by ID for deterministic iteration (e.g. Scheduler.LoadAll at process
// start).
func (s *Store) Schedules() []runrec.RunSchedule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]runrec.RunSchedule, 0, len(s.schedules))
	for _, sc := range s.schedules {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Save implements scheduler.Store: it updates the in-memory schedule
// record and rewrites the NextRunAt/LastRunAt fields of its entry in the
// YAML fixture file it was loaded from, leaving every other document in
// that file untouched.
func (s *Store) Save(sched runrec.RunSchedule) error {
	s.mu.Lock()
	path, ok := s.scheduleFile[sched.ID]
	s.schedules[sched.ID] = sched
	s.mu.Unlock()
	if !ok {
		return apperrors.NewNotFoundError("schedule", sched.ID, nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	for i := range doc.Schedules {
		if doc.Schedules[i].ID != sched.ID {
			continue
		}
		doc.Schedules[i].Active = sched.Active
		doc.Schedules[i].NextRunAt = formatTimeOrEmpty(sched.NextRunAt)
		doc.Schedules[i].LastRunAt = formatTimeOrEmpty(sched.LastRunAt)
		break
	}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}
