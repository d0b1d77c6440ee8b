// Package hosted fetches the last day of activity from the hosted workflow
// runner: one set of runs per named workflow file, with their jobs.
package hosted

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/cidaily/cidaily/internal/cidaily/outcome"
)

// WorkflowRun is one hosted workflow execution retained for the report.
type WorkflowRun struct {
	File      string          `json:"file"`
	Name      string          `json:"name"`
	RunNumber int             `json:"runNumber"`
	URL       string          `json:"url"`
	CreatedAt time.Time       `json:"createdAt"`
	Outcome   outcome.Outcome `json:"outcome"`
	Jobs      []JobRecord     `json:"jobs"`
}

// JobRecord is the leaf unit of execution inside a workflow run.
type JobRecord struct {
	Name        string          `json:"name"`
	URL         string          `json:"url"`
	CompletedAt time.Time       `json:"completedAt"`
	Duration    time.Duration   `json:"duration"`
	Outcome     outcome.Outcome `json:"outcome"`
}

// runEvents are the trigger types that produce reportable runs. Pushes and
// pull requests are the regular development noise and stay out of the daily
// summary.
var runEvents = map[string]bool{
	"schedule":          true,
	"workflow_dispatch": true,
}

// Fetcher retrieves the runs of a fixed list of workflow files created after
// the cutoff.
type Fetcher struct {
	API       *API
	Workflows []string
	Cutoff    time.Time
}

// Fetch returns the retained runs of every configured workflow file, newest
// first within each file. Any transport or classification failure aborts the
// whole fetch.
func (f *Fetcher) Fetch() ([]WorkflowRun, error) {
	var out []WorkflowRun
	for _, file := range f.Workflows {
		runs, err := f.API.RunsSince(file, f.Cutoff)
		if err != nil {
			return nil, errors.Wrapf(err, "listing runs of %s", file)
		}
		log.Debugf("workflow %s: %d completed runs in window", file, len(runs))
		for _, r := range runs {
			if !runEvents[r.Event] {
				continue
			}
			o, err := outcome.FromWorkflowConclusion(r.Conclusion)
			if err != nil {
				return nil, errors.Wrapf(err, "run %d of %s", r.ID, file)
			}
			jobs, err := f.fetchJobs(r.ID)
			if err != nil {
				return nil, errors.Wrapf(err, "run %d of %s", r.ID, file)
			}
			out = append(out, WorkflowRun{
				File:      file,
				Name:      r.Name,
				RunNumber: r.RunNumber,
				URL:       r.HTMLURL,
				CreatedAt: r.CreatedAt.Time,
				Outcome:   o,
				Jobs:      jobs,
			})
		}
	}
	return out, nil
}

func (f *Fetcher) fetchJobs(runID int64) ([]JobRecord, error) {
	jobs, err := f.API.ListJobs(runID)
	if err != nil {
		return nil, err
	}
	records := make([]JobRecord, 0, len(jobs))
	for _, j := range jobs {
		o, err := outcome.FromWorkflowConclusion(j.Conclusion)
		if err != nil {
			return nil, errors.Wrapf(err, "job %q", j.Name)
		}
		rec := JobRecord{
			Name:        j.Name,
			URL:         j.HTMLURL,
			CompletedAt: j.CompletedAt.Time,
			Outcome:     o,
		}
		if !j.StartedAt.IsZero() && !j.CompletedAt.IsZero() {
			rec.Duration = j.CompletedAt.Sub(j.StartedAt.Time)
		}
		records = append(records, rec)
	}
	return records, nil
}
