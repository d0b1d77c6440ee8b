package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cidaily/cidaily/internal/cidaily/outcome"
	"github.com/cidaily/cidaily/internal/cidaily/source/clientresult"
	"github.com/cidaily/cidaily/internal/cidaily/source/hosted"
	"github.com/cidaily/cidaily/internal/cidaily/source/thirdparty"
)

var testTime = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

func testReport() *Report {
	return &Report{
		Repo:        "org/proj",
		GeneratedAt: testTime,
		Window:      24 * time.Hour,
		Workflows:   []string{"ci.yml", "nightly.yml"},
		Runs: []hosted.WorkflowRun{
			{
				File: "ci.yml", Name: "CI", RunNumber: 42, URL: "https://ci.example/runs/10",
				CreatedAt: testTime, Outcome: outcome.Pass,
				Jobs: []hosted.JobRecord{
					{Name: "build", URL: "https://ci.example/jobs/100", Outcome: outcome.Pass, Duration: 10 * time.Minute},
					{Name: "test", URL: "https://ci.example/jobs/101", Outcome: outcome.Fail, Duration: 30 * time.Minute},
				},
			},
		},
		ClientRecords: []clientresult.Record{
			&clientresult.ClientRun{
				ClientID: "alpha", Build: 42, CreatedAt: testTime,
				ArtifactURL: "https://ci.example/artifacts/900",
				Results: map[string]outcome.Outcome{
					"boot": outcome.Pass,
					"net":  outcome.Fail,
				},
			},
			&clientresult.ClientError{
				ClientID: "alpha", Build: 41, CreatedAt: testTime.Add(-time.Hour),
				URL: "https://ci.example/runs/20",
			},
		},
		KnownClients: []string{"alpha", "beta"},
		ThirdParty: []thirdparty.Build{
			{
				ID: 304, Version: "7.2.1-r304", FinishedAt: testTime, Outcome: outcome.Fail,
				Jobs: []thirdparty.Job{
					{BuildID: 304, ID: 1, Name: "compile", Outcome: outcome.Pass},
					{BuildID: 304, ID: 2, Name: "smoke", Outcome: outcome.Incomplete},
				},
			},
		},
	}
}

func TestTallies(t *testing.T) {
	r := testReport()
	assert.Equal(t, outcome.Tally{Pass: 1, Fail: 1}, r.HostedTally())
	// the ClientError contributes exactly one synthetic Error
	assert.Equal(t, outcome.Tally{Pass: 1, Fail: 1, Error: 1}, r.ClientTally())
	assert.Equal(t, outcome.Tally{Pass: 1, Incomplete: 1}, r.ThirdPartyTally())
	assert.Equal(t, outcome.Tally{Pass: 3, Fail: 2, Error: 1, Incomplete: 1}, r.Tally())
}

func TestAbsences(t *testing.T) {
	r := testReport()
	assert.Equal(t, []string{"nightly.yml"}, r.AbsentWorkflows())
	assert.Equal(t, []string{"beta"}, r.AbsentClients())
	assert.Equal(t, 2, r.Absences())

	// a client with only an error record is present
	r.KnownClients = []string{"alpha"}
	assert.Nil(t, r.AbsentClients())
	assert.Equal(t, 1, r.Absences())
}

func TestSubject(t *testing.T) {
	r := testReport()
	assert.Equal(t, "org/proj daily summary: 3 pass, 2 fail, 1 error, 1 incomplete, 2 absent", r.Subject())

	r.Workflows = []string{"ci.yml"}
	r.KnownClients = []string{"alpha"}
	assert.Equal(t, "org/proj daily summary: 3 pass, 2 fail, 1 error, 1 incomplete", r.Subject())
}

func TestSubjectNothing(t *testing.T) {
	r := &Report{Repo: "org/proj", GeneratedAt: testTime, Window: 24 * time.Hour}
	assert.Equal(t, "org/proj daily summary: NOTHING", r.Subject())

	// absent sources alone do not change a NOTHING subject
	r.Workflows = []string{"ci.yml"}
	r.KnownClients = []string{"alpha"}
	assert.Equal(t, "org/proj daily summary: NOTHING", r.Subject())
}

func TestAbsenceCountsWithMissingClient(t *testing.T) {
	r := testReport()
	before := r.Absences()
	r.KnownClients = append(r.KnownClients, "gamma")
	assert.Equal(t, before+1, r.Absences())
	assert.Contains(t, r.Subject(), "3 absent")
}

func TestAggregate(t *testing.T) {
	r := Aggregate("org/proj", 24*time.Hour, []string{"ci.yml"}, []string{"alpha"}, nil, nil, nil)
	assert.Equal(t, "org/proj", r.Repo)
	assert.Equal(t, 24*time.Hour, r.Window)
	assert.False(t, r.GeneratedAt.IsZero())
	assert.Equal(t, 2, r.Absences())
}
