package model

// DifficultyVariant is one charted difficulty of a map version.
type DifficultyVariant struct {
	Characteristic string `json:"characteristic"`
	Difficulty     string `json:"difficulty"`
	Notes          int    `json:"notes"`
}

// MapMetadata is what the metadata source knows about a map hash.
type MapMetadata struct {
	Hash         string              `json:"hash"`
	ExternalID   string              `json:"id" validate:"required"`
	BPM          float64             `json:"bpm" validate:"gt=0"`
	Difficulties []DifficultyVariant `json:"diffs" validate:"min=1"`
}

// Variant returns the difficulty matching characteristic and label, or nil.
func (m *MapMetadata) Variant(characteristic, label string) *DifficultyVariant {
	if m == nil {
		return nil
	}
	for i := range m.Difficulties {
		d := &m.Difficulties[i]
		if d.Characteristic == characteristic && d.Difficulty == label {
			return d
		}
	}
	return nil
}
