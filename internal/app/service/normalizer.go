package service

import (
	"math"
	"strings"
	"time"

	"judge_mirror/internal/common"
	"judge_mirror/internal/domain/model"
	"judge_mirror/internal/platform/judgeapi"
)

// Permanent practice contests run for decades; anything past a century is
// bad data and would overflow time.Duration further on.
const maxContestDurationSecond = 100 * 365 * 24 * 60 * 60

// Normalize splits one denormalized judge record into the rows it implies.
// It performs no I/O. Records missing a required field yield a
// *common.MalformedRecordError.
func Normalize(rec judgeapi.Record) (model.Entities, error) {
	var id int64
	if rec.ID != nil {
		id = *rec.ID
	}
	malformed := func(field, reason string) (model.Entities, error) {
		return model.Entities{}, &common.MalformedRecordError{SubmissionID: id, Field: field, Reason: reason, Raw: rec.Raw}
	}

	if rec.DecodeErr != nil {
		if field := rec.DecodeErrField(); field != "" {
			return malformed(field, "has the wrong type")
		}
		return malformed("record", "does not decode: "+rec.DecodeErr.Error())
	}
	if rec.ID == nil {
		return malformed("id", "is required")
	}
	if id <= 0 {
		return malformed("id", "must be positive")
	}
	if rec.EpochSecond == nil {
		return malformed("epoch_second", "is required")
	}
	contestID, ok := requiredString(rec.ContestID)
	if !ok {
		return malformed("contest_id", "is required")
	}
	if rec.ContestStartEpochSecond == nil {
		return malformed("contest_start_epoch_second", "is required")
	}
	if rec.ContestDurationSecond == nil {
		return malformed("contest_duration_second", "is required")
	}
	if *rec.ContestDurationSecond < 0 {
		return malformed("contest_duration_second", "must not be negative")
	}
	if *rec.ContestDurationSecond > maxContestDurationSecond {
		return malformed("contest_duration_second", "is implausibly long")
	}
	taskID, ok := requiredString(rec.ProblemID)
	if !ok {
		return malformed("problem_id", "is required")
	}
	userID, ok := requiredString(rec.UserID)
	if !ok {
		return malformed("user_id", "is required")
	}
	language, ok := requiredString(rec.Language)
	if !ok {
		return malformed("language", "is required")
	}
	if rec.Point == nil {
		return malformed("point", "is required")
	}
	if math.IsNaN(*rec.Point) || math.IsInf(*rec.Point, 0) {
		return malformed("point", "must be finite")
	}
	if rec.Length == nil {
		return malformed("length", "is required")
	}
	if *rec.Length < 0 {
		return malformed("length", "must not be negative")
	}
	status, ok := requiredString(rec.Result)
	if !ok {
		return malformed("result", "is required")
	}

	start := time.Unix(*rec.ContestStartEpochSecond, 0).UTC()
	return model.Entities{
		Contest: model.Contest{
			ID:         contestID,
			Name:       strings.TrimSpace(rec.ContestTitle),
			RatedRange: strings.TrimSpace(rec.ContestRatedRange),
			StartAt:    start,
			EndAt:      start.Add(time.Duration(*rec.ContestDurationSecond) * time.Second),
		},
		Task: model.Task{
			ID:   taskID,
			Name: strings.TrimSpace(rec.ProblemTitle),
		},
		ContestTask: model.ContestTask{
			ContestID: contestID,
			TaskID:    taskID,
			Alphabet:  strings.TrimSpace(rec.ProblemIndex),
		},
		User: model.User{ID: userID},
		Submission: model.Submission{
			ID:             id,
			ContestID:      contestID,
			TaskID:         taskID,
			UserID:         userID,
			SubmittedAt:    time.Unix(*rec.EpochSecond, 0).UTC(),
			LanguageName:   language,
			Score:          *rec.Point,
			CodeSize:       *rec.Length,
			Status:         status,
			ExecutionTime:  copyInt(rec.ExecutionTime),
			MemoryConsumed: copyInt(rec.Memory),
		},
	}, nil
}

func requiredString(p *string) (string, bool) {
	if p == nil {
		return "", false
	}
	s := strings.TrimSpace(*p)
	return s, s != ""
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
