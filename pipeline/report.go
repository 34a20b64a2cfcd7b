package pipeline

import (
	"time"

	"github.com/letmevibethatforyou/blastx"
)

// Stage names a step of the batch pipeline.
type Stage string

const (
	StageSearch  Stage = "search"
	StageExtract Stage = "extract"
)

// Outcome is the result of one stage for one sequence.
type Outcome struct {
	ID    string
	Stage Stage
	// Code is blastx.ErrCodeUnknown on success.
	Code blastx.ErrorCode
	Err  error
	// Attempts is the number of status checks made. Search stage only.
	Attempts int
	// Rows is the number of extracted rows. Extract stage only.
	Rows     int
	Duration time.Duration
}

// OK reports whether the stage succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Report collects the outcomes of a batch run in processing order.
type Report struct {
	RunID    string
	Outcomes []Outcome
}

// Failed returns the failed outcomes.
func (r Report) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			failed = append(failed, o)
		}
	}
	return failed
}

// Succeeded returns the ids that completed stage, in processing order.
func (r Report) Succeeded(stage Stage) []string {
	var ids []string
	for _, o := range r.Outcomes {
		if o.Stage == stage && o.OK() {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

// Counts returns the number of succeeded and failed outcomes.
func (r Report) Counts() (ok, failed int) {
	for _, o := range r.Outcomes {
		if o.OK() {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}

func (r *Report) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
}
