package judgeapi

import (
	"errors"
	"reflect"
	"strings"

	"github.com/goccy/go-json"
)

// Record is one submission as the judge API returns it. Contest and task
// metadata are repeated on every record. Pointer fields distinguish an
// absent or null value from zero.
type Record struct {
	ID          *int64 `json:"id"`
	EpochSecond *int64 `json:"epoch_second"`

	ContestID               *string `json:"contest_id"`
	ContestTitle            string  `json:"contest_title"`
	ContestRatedRange       string  `json:"contest_rated_range"`
	ContestStartEpochSecond *int64  `json:"contest_start_epoch_second"`
	ContestDurationSecond   *int64  `json:"contest_duration_second"`
	ProblemID               *string `json:"problem_id"`
	ProblemTitle            string  `json:"problem_title"`
	ProblemIndex            string  `json:"problem_index"`
	UserID                  *string `json:"user_id"`

	Language      *string  `json:"language"`
	Point         *float64 `json:"point"`
	Length        *int     `json:"length"`
	Result        *string  `json:"result"`
	ExecutionTime *int     `json:"execution_time"` // ms
	Memory        *int     `json:"memory"`         // KB

	// Raw is the record's original JSON, kept for diagnostics.
	Raw json.RawMessage `json:"-"`
	// DecodeErr is set when the element did not decode cleanly. The other
	// fields are then incomplete and must not be trusted.
	DecodeErr error `json:"-"`
}

// DecodeErrField names the JSON key that failed to decode, or "" when the
// error does not point at one.
func (r Record) DecodeErrField() string {
	var typeErr *json.UnmarshalTypeError
	if !errors.As(r.DecodeErr, &typeErr) || typeErr.Field == "" {
		return ""
	}
	name := typeErr.Field
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	// The decoder reports Go field names; map back to the wire key.
	if f, ok := reflect.TypeOf(Record{}).FieldByName(name); ok {
		if key, _, _ := strings.Cut(f.Tag.Get("json"), ","); key != "" && key != "-" {
			return key
		}
	}
	return name
}

// PageRequest asks for submissions at or after FromEpochSecond.
type PageRequest struct {
	FromEpochSecond int64
}

// DecodePage parses a JSON array of records, keeping each element's raw bytes.
func DecodePage(body []byte) ([]Record, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(raws))
	for _, raw := range raws {
		var rec Record
		// A record with wrongly typed fields still goes through so the
		// normalizer can reject it with context instead of failing the page.
		if err := json.Unmarshal(raw, &rec); err != nil {
			rec = Record{DecodeErr: err}
			var idOnly struct {
				ID *int64 `json:"id"`
			}
			if json.Unmarshal(raw, &idOnly) == nil {
				rec.ID = idOnly.ID
			}
		}
		rec.Raw = raw
		records = append(records, rec)
	}
	return records, nil
}
