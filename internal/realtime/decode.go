package realtime

import (
	"encoding/json"
	"fmt"

	apigen "github.com/ensigniasec/cleaner-client/internal/api-gen"
	"github.com/ensigniasec/cleaner-client/internal/validate"
)

// Decode unmarshals the payload of ev into T and validates it.
func Decode[T any](ev Event) (T, error) {
	var out T
	if err := json.Unmarshal(ev.Data, &out); err != nil {
		return out, fmt.Errorf("realtime: decode %s: %w", ev.Type, err)
	}
	if err := validate.Struct(out); err != nil {
		return out, fmt.Errorf("realtime: invalid %s: %w", ev.Type, err)
	}
	return out, nil
}

func DecodeSystemUpdate(ev Event) (apigen.SystemUpdate, error) {
	return Decode[apigen.SystemUpdate](ev)
}

func DecodeScanProgress(ev Event) (apigen.ScanProgress, error) {
	return Decode[apigen.ScanProgress](ev)
}

func DecodeScanComplete(ev Event) (apigen.ScanComplete, error) {
	return Decode[apigen.ScanComplete](ev)
}

func DecodeCleaningProgress(ev Event) (apigen.CleaningProgress, error) {
	return Decode[apigen.CleaningProgress](ev)
}

func DecodeCleaningComplete(ev Event) (apigen.CleaningComplete, error) {
	return Decode[apigen.CleaningComplete](ev)
}

func DecodeSystemAlert(ev Event) (apigen.SystemAlert, error) {
	return Decode[apigen.SystemAlert](ev)
}
