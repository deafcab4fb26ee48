package selection

import (
	"context"
	"encoding/json"
	"errors"

	"SectorSentinel/internal/model"
	"SectorSentinel/internal/storage"
)

// StateKey is the blob key the selection is persisted under.
const StateKey = "selection"

// DefaultTickers are activated when no selection has ever been saved.
var DefaultTickers = []string{"XLB", "XLE", "XLF"}

type state struct {
	ActiveSectors []model.Sector `json:"activeSectors"`
}

// LoadState reads the saved selection. A missing blob yields the default
// selection; a corrupt one yields an empty selection and the decode error.
func LoadState(ctx context.Context, blobs storage.BlobStore) ([]model.Sector, error) {
	data, err := blobs.Get(ctx, StateKey)
	if errors.Is(err, storage.ErrNotFound) {
		return defaultSelection(), nil
	}
	if err != nil {
		return nil, err
	}
	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return []model.Sector{}, err
	}
	if st.ActiveSectors == nil {
		return []model.Sector{}, nil
	}
	return st.ActiveSectors, nil
}

// SaveState writes the selection as {"activeSectors": [...]}.
func SaveState(ctx context.Context, blobs storage.BlobStore, active []model.Sector) error {
	data, err := json.Marshal(state{ActiveSectors: active})
	if err != nil {
		return err
	}
	return blobs.Set(ctx, StateKey, data)
}

func defaultSelection() []model.Sector {
	out := make([]model.Sector, 0, len(DefaultTickers))
	for _, t := range DefaultTickers {
		if s, ok := model.Lookup(t); ok {
			out = append(out, s)
		}
	}
	return out
}
