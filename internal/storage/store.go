package storage

import (
	"context"

	"neurorig/internal/model"
)

// Store persists experiment runs, device layouts and recordings.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.Run) error
	GetRun(ctx context.Context, id string) (model.Run, bool, error)
	ListRuns(ctx context.Context) ([]model.Run, error)
	SaveLayouts(ctx context.Context, runID string, layouts []model.DeviceLayout) error
	GetLayouts(ctx context.Context, runID string) ([]model.DeviceLayout, bool, error)
	SaveRecording(ctx context.Context, rec model.Recording) error
	GetRecording(ctx context.Context, runID, device string) (model.Recording, bool, error)
	ListRecordings(ctx context.Context, runID string) ([]model.Recording, error)
}
