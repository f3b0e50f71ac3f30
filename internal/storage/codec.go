package storage

import (
	"encoding/json"
	"errors"

	"neurorig/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func Versioned() model.VersionedRecord {
	return model.VersionedRecord{
		SchemaVersion: CurrentSchemaVersion,
		CodecVersion:  CurrentCodecVersion,
	}
}

func EncodeRun(r model.Run) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRun(data []byte) (model.Run, error) {
	var run model.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return model.Run{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.Run{}, err
	}
	return run, nil
}

func EncodeLayouts(layouts []model.DeviceLayout) ([]byte, error) {
	return json.Marshal(layouts)
}

func DecodeLayouts(data []byte) ([]model.DeviceLayout, error) {
	var layouts []model.DeviceLayout
	if err := json.Unmarshal(data, &layouts); err != nil {
		return nil, err
	}
	for _, layout := range layouts {
		if err := checkVersion(layout.VersionedRecord); err != nil {
			return nil, err
		}
	}
	return layouts, nil
}

func EncodeRecording(r model.Recording) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRecording(data []byte) (model.Recording, error) {
	var rec model.Recording
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.Recording{}, err
	}
	if err := checkVersion(rec.VersionedRecord); err != nil {
		return model.Recording{}, err
	}
	return rec, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
