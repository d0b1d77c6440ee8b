// Package report aggregates the three source fetchers' outputs into one
// immutable report model and renders it.
package report

import (
	"fmt"
	"time"

	"github.com/cidaily/cidaily/internal/cidaily/outcome"
	"github.com/cidaily/cidaily/internal/cidaily/source/clientresult"
	"github.com/cidaily/cidaily/internal/cidaily/source/hosted"
	"github.com/cidaily/cidaily/internal/cidaily/source/thirdparty"
)

// Report is the full aggregate of one daily pass. It is built once by
// Aggregate and only read afterwards.
type Report struct {
	Repo          string
	GeneratedAt   time.Time
	Window        time.Duration
	Workflows     []string // expected workflow files
	Runs          []hosted.WorkflowRun
	ClientRecords []clientresult.Record
	KnownClients  []string
	ThirdParty    []thirdparty.Build
}

// Aggregate builds the report model from the fetchers' outputs and the
// externally supplied roster of known clients.
func Aggregate(repo string, window time.Duration, workflows, knownClients []string,
	runs []hosted.WorkflowRun, records []clientresult.Record, builds []thirdparty.Build) *Report {
	return &Report{
		Repo:          repo,
		GeneratedAt:   time.Now().UTC(),
		Window:        window,
		Workflows:     workflows,
		Runs:          runs,
		ClientRecords: records,
		KnownClients:  knownClients,
		ThirdParty:    builds,
	}
}

// HostedTally counts job outcomes across all workflow runs.
func (r *Report) HostedTally() outcome.Tally {
	var t outcome.Tally
	for _, run := range r.Runs {
		for _, job := range run.Jobs {
			t.Count(job.Outcome)
		}
	}
	return t
}

// ClientTally counts per-test outcomes across all client runs. Each
// ClientError contributes exactly one synthetic Error: the pipeline failure
// itself is the reportable event.
func (r *Report) ClientTally() outcome.Tally {
	var t outcome.Tally
	for _, rec := range r.ClientRecords {
		switch rec := rec.(type) {
		case *clientresult.ClientRun:
			for _, o := range rec.Results {
				t.Count(o)
			}
		case *clientresult.ClientError:
			t.Count(outcome.Error)
		}
	}
	return t
}

// ThirdPartyTally counts job outcomes across all third-party builds.
func (r *Report) ThirdPartyTally() outcome.Tally {
	var t outcome.Tally
	for _, b := range r.ThirdParty {
		for _, j := range b.Jobs {
			t.Count(j.Outcome)
		}
	}
	return t
}

// Tally is the report-wide outcome count.
func (r *Report) Tally() outcome.Tally {
	t := r.HostedTally()
	t.Merge(r.ClientTally())
	t.Merge(r.ThirdPartyTally())
	return t
}

// AbsentWorkflows returns the expected workflow files with no run in the
// window, in configuration order.
func (r *Report) AbsentWorkflows() []string {
	seen := make(map[string]bool, len(r.Runs))
	for _, run := range r.Runs {
		seen[run.File] = true
	}
	var absent []string
	for _, file := range r.Workflows {
		if !seen[file] {
			absent = append(absent, file)
		}
	}
	return absent
}

// AbsentClients returns the known client identifiers with neither a run nor
// an error record in the window, in roster order. A silent client usually
// means its scheduling broke, which no explicit failure would surface.
func (r *Report) AbsentClients() []string {
	seen := make(map[string]bool, len(r.ClientRecords))
	for _, rec := range r.ClientRecords {
		seen[rec.Client()] = true
	}
	var absent []string
	for _, id := range r.KnownClients {
		if !seen[id] {
			absent = append(absent, id)
		}
	}
	return absent
}

// Absences is the combined count of absent workflow files and clients.
func (r *Report) Absences() int {
	return len(r.AbsentWorkflows()) + len(r.AbsentClients())
}

// Subject builds the one-line summary of the report.
func (r *Report) Subject() string {
	t := r.Tally()
	if t.Total() == 0 {
		return fmt.Sprintf("%s daily summary: NOTHING", r.Repo)
	}
	subject := fmt.Sprintf("%s daily summary: %d pass, %d fail, %d error, %d incomplete",
		r.Repo, t.Pass, t.Fail, t.Error, t.Incomplete)
	if n := r.Absences(); n > 0 {
		subject += fmt.Sprintf(", %d absent", n)
	}
	return subject
}
