package store

import (
	"encoding/json"
	"fmt"

	"github.com/kiranshivaraju/hookqueue/pkg/models"
)

// resultEnvelope is the JSON shape of the results column. Exactly one of the
// fields is meaningful: Error for failed jobs, Value otherwise.
type resultEnvelope struct {
	Value json.RawMessage  `json:"value,omitempty"`
	Error *models.JobError `json:"error,omitempty"`
}

// encodeResult serializes a job result for the results column. Errors are
// stored as structured error objects; everything else as a JSON value.
func encodeResult(result any) ([]byte, error) {
	var env resultEnvelope
	switch v := result.(type) {
	case *models.JobError:
		env.Error = v
	case error:
		env.Error = models.AsJobError(v, models.CodeJobFailed)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode result: %w", err)
		}
		env.Value = raw
	}
	return json.Marshal(env)
}

// decodeResult is the inverse of encodeResult. A NULL column decodes to nil.
func decodeResult(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var env resultEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	if env.Error != nil {
		return env.Error, nil
	}
	if len(env.Value) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(env.Value, &v); err != nil {
		return nil, fmt.Errorf("decode result value: %w", err)
	}
	return v, nil
}
