// Package outcome normalizes the status vocabularies of every report source
// into a single four-valued taxonomy.
package outcome

import "fmt"

// Outcome is the shared classification of a run, job or test result.
type Outcome int

const (
	Pass Outcome = iota
	Fail
	Error
	Incomplete
)

var outcomeNames = map[Outcome]string{
	Pass:       "pass",
	Fail:       "fail",
	Error:      "error",
	Incomplete: "incomplete",
}

func (o Outcome) String() string {
	return outcomeNames[o]
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", o.String())), nil
}

// UnrecognizedStatusError reports a status string outside the known
// vocabulary of a source. Misclassifying CI status silently would defeat the
// whole report, so callers are expected to abort on it.
type UnrecognizedStatusError struct {
	Source string
	Status string
}

func (e *UnrecognizedStatusError) Error() string {
	return fmt.Sprintf("unrecognized %s status %q", e.Source, e.Status)
}

// FromWorkflowConclusion maps a hosted-workflow run or job conclusion.
func FromWorkflowConclusion(conclusion string) (Outcome, error) {
	switch conclusion {
	case "success":
		return Pass, nil
	case "failure":
		return Fail, nil
	case "timed_out":
		return Error, nil
	case "neutral", "action_required", "cancelled", "skipped", "stale":
		return Incomplete, nil
	}
	return 0, &UnrecognizedStatusError{Source: "workflow conclusion", Status: conclusion}
}

// FromBuildStatus maps a third-party build or job status.
func FromBuildStatus(status string) (Outcome, error) {
	switch status {
	case "success":
		return Pass, nil
	case "failed":
		return Fail, nil
	case "cancelled":
		return Incomplete, nil
	}
	return 0, &UnrecognizedStatusError{Source: "build", Status: status}
}

// FromReturnCode maps a per-test result code. Only Pass and Fail exist at
// this granularity.
func FromReturnCode(code int) Outcome {
	if code == 0 {
		return Pass
	}
	return Fail
}

// Tally accumulates outcome counts across sources.
type Tally struct {
	Pass       int `json:"pass"`
	Fail       int `json:"fail"`
	Error      int `json:"error"`
	Incomplete int `json:"incomplete"`
}

func (t *Tally) Count(o Outcome) {
	switch o {
	case Pass:
		t.Pass++
	case Fail:
		t.Fail++
	case Error:
		t.Error++
	case Incomplete:
		t.Incomplete++
	}
}

func (t *Tally) Merge(other Tally) {
	t.Pass += other.Pass
	t.Fail += other.Fail
	t.Error += other.Error
	t.Incomplete += other.Incomplete
}

func (t Tally) Total() int {
	return t.Pass + t.Fail + t.Error + t.Incomplete
}
