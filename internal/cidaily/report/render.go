package report

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"

	vfs "github.com/cidaily/cidaily/internal/assets"
	"github.com/cidaily/cidaily/internal/cidaily/outcome"
	"github.com/cidaily/cidaily/internal/cidaily/source/clientresult"
	"github.com/cidaily/cidaily/internal/cidaily/source/hosted"
)

const bodyTemplatePath = "data/templates/report/body.html"

type bodyView struct {
	Repo        string
	GeneratedAt string
	Window      string
	Tally       outcome.Tally
	Absent      []string
	Workflows   []workflowView
	Clients     []clientView
	ThirdParty  []buildView
	Runtimes    []runtimeView
}

type workflowView struct {
	File      string
	Name      string
	RunNumber int
	URL       string
	CreatedAt string
	Outcome   string
	Jobs      []jobView
}

type jobView struct {
	Name     string
	URL      string
	Outcome  string
	Duration string
}

type clientView struct {
	// Anchor is set only on the first record per client identifier, used
	// for cross-referencing inside the document.
	Anchor      string
	ClientID    string
	Build       int
	When        string
	URL         string
	IsError     bool
	PassCount   int
	FailCount   int
	FailedTests []string
}

type buildView struct {
	ID         int64
	Version    string
	FinishedAt string
	Outcome    string
	Jobs       []jobView
}

type runtimeView struct {
	File string
	Jobs int
	Min  string
	Mean string
	P90  string
	Max  string
}

// Render produces the subject line and the self-contained HTML body. The
// output is deterministic for identical report content.
func (r *Report) Render() (string, string, error) {
	raw, err := fs.ReadFile(vfs.GetData(), bodyTemplatePath)
	if err != nil {
		return "", "", errors.Wrapf(err, "couldn't read template %s", bodyTemplatePath)
	}
	tmpl, err := template.New("body").Parse(string(raw))
	if err != nil {
		return "", "", errors.Wrap(err, "couldn't parse body template")
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, r.view()); err != nil {
		return "", "", errors.Wrap(err, "couldn't render body template")
	}
	return r.Subject(), buf.String(), nil
}

func (r *Report) view() bodyView {
	view := bodyView{
		Repo:        r.Repo,
		GeneratedAt: r.GeneratedAt.Format(time.RFC1123),
		Window:      r.Window.String(),
		Tally:       r.Tally(),
		Absent:      append(r.AbsentWorkflows(), r.AbsentClients()...),
		Workflows:   make([]workflowView, 0, len(r.Runs)),
		Clients:     make([]clientView, 0, len(r.ClientRecords)),
		ThirdParty:  make([]buildView, 0, len(r.ThirdParty)),
		Runtimes:    runtimeRows(r.Runs),
	}

	for _, run := range r.Runs {
		wv := workflowView{
			File:      run.File,
			Name:      run.Name,
			RunNumber: run.RunNumber,
			URL:       run.URL,
			CreatedAt: run.CreatedAt.Format(time.RFC1123),
			Outcome:   run.Outcome.String(),
			Jobs:      make([]jobView, 0, len(run.Jobs)),
		}
		for _, job := range run.Jobs {
			wv.Jobs = append(wv.Jobs, jobView{
				Name:     job.Name,
				URL:      job.URL,
				Outcome:  job.Outcome.String(),
				Duration: formatSeconds(job.Duration.Seconds()),
			})
		}
		view.Workflows = append(view.Workflows, wv)
	}

	anchored := map[string]bool{}
	for _, rec := range r.ClientRecords {
		cv := clientView{
			ClientID: rec.Client(),
			Build:    rec.BuildNumber(),
			When:     rec.When().Format(time.RFC1123),
		}
		if !anchored[rec.Client()] {
			anchored[rec.Client()] = true
			cv.Anchor = "client-" + rec.Client()
		}
		switch rec := rec.(type) {
		case *clientresult.ClientRun:
			cv.URL = rec.ArtifactURL
			for name, o := range rec.Results {
				if o == outcome.Pass {
					cv.PassCount++
					continue
				}
				cv.FailCount++
				cv.FailedTests = append(cv.FailedTests, name)
			}
			sort.Strings(cv.FailedTests)
		case *clientresult.ClientError:
			cv.URL = rec.URL
			cv.IsError = true
		}
		view.Clients = append(view.Clients, cv)
	}

	for _, b := range r.ThirdParty {
		bv := buildView{
			ID:         b.ID,
			Version:    b.Version,
			FinishedAt: b.FinishedAt.Format(time.RFC1123),
			Outcome:    b.Outcome.String(),
			Jobs:       make([]jobView, 0, len(b.Jobs)),
		}
		for _, j := range b.Jobs {
			bv.Jobs = append(bv.Jobs, jobView{Name: j.Name, Outcome: j.Outcome.String()})
		}
		view.ThirdParty = append(view.ThirdParty, bv)
	}

	return view
}

// runtimeRows summarizes job durations per workflow file.
func runtimeRows(runs []hosted.WorkflowRun) []runtimeView {
	durations := map[string][]float64{}
	var order []string
	for _, run := range runs {
		if _, ok := durations[run.File]; !ok {
			order = append(order, run.File)
		}
		for _, job := range run.Jobs {
			if job.Duration > 0 {
				durations[run.File] = append(durations[run.File], job.Duration.Seconds())
			}
		}
	}

	var rows []runtimeView
	for _, file := range order {
		d := durations[file]
		if len(d) == 0 {
			continue
		}
		min, _ := stats.Min(d)
		mean, _ := stats.Mean(d)
		p90, _ := stats.Percentile(d, 90)
		max, _ := stats.Max(d)
		rows = append(rows, runtimeView{
			File: file,
			Jobs: len(d),
			Min:  formatSeconds(min),
			Mean: formatSeconds(mean),
			P90:  formatSeconds(p90),
			Max:  formatSeconds(max),
		})
	}
	return rows
}

func formatSeconds(s float64) string {
	if s <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.1fs", s)
}
