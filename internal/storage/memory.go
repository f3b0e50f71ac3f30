package storage

import (
	"context"
	"sort"
	"sync"

	"neurorig/internal/model"
)

type MemoryStore struct {
	mu         sync.RWMutex
	runs       map[string]model.Run
	layouts    map[string][]model.DeviceLayout
	recordings map[string]map[string]model.Recording
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs = make(map[string]model.Run)
	s.layouts = make(map[string][]model.DeviceLayout)
	s.recordings = make(map[string]map[string]model.Recording)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	return run, ok, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Run, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

func (s *MemoryStore) SaveLayouts(_ context.Context, runID string, layouts []model.DeviceLayout) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.layouts[runID] = append([]model.DeviceLayout(nil), layouts...)
	return nil
}

func (s *MemoryStore) GetLayouts(_ context.Context, runID string) ([]model.DeviceLayout, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	layouts, ok := s.layouts[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]model.DeviceLayout(nil), layouts...), true, nil
}

func (s *MemoryStore) SaveRecording(_ context.Context, rec model.Recording) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byDevice, ok := s.recordings[rec.RunID]
	if !ok {
		byDevice = make(map[string]model.Recording)
		s.recordings[rec.RunID] = byDevice
	}
	byDevice[rec.Device] = rec
	return nil
}

func (s *MemoryStore) GetRecording(_ context.Context, runID, device string) (model.Recording, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.recordings[runID][device]
	return rec, ok, nil
}

func (s *MemoryStore) ListRecordings(_ context.Context, runID string) ([]model.Recording, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byDevice := s.recordings[runID]
	out := make([]model.Recording, 0, len(byDevice))
	for _, rec := range byDevice {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Device < out[j].Device })
	return out, nil
}
