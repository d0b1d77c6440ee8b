// Package clientresult fetches the result bundles uploaded by the
// self-reporting client fleet and correlates each one back to its client and
// build number.
package clientresult

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/cidaily/cidaily/internal/cidaily/outcome"
	"github.com/cidaily/cidaily/internal/cidaily/source/hosted"
)

const (
	// DefaultWorkflow is the workflow file that ingests client uploads.
	DefaultWorkflow = "handle-result.yml"

	branchPrefix = "result-"
	resultSuffix = ".rc"
)

// ContractViolationError reports a broken invariant of the upstream result
// pipeline, such as a malformed result branch name or an unexpected artifact
// count. The conventions are assumed inviolable; when one breaks, failing
// loudly beats guessing.
type ContractViolationError struct {
	Reason string
	Detail string
}

func (e *ContractViolationError) Error() string {
	return fmt.Sprintf("contract violation: %s: %s", e.Reason, e.Detail)
}

// Record is one client-reported entry of the report: either a ClientRun or a
// ClientError.
type Record interface {
	Client() string
	BuildNumber() int
	When() time.Time
}

// ClientRun is one successfully processed client result bundle.
type ClientRun struct {
	ClientID    string                     `json:"clientId"`
	Build       int                        `json:"build"`
	CreatedAt   time.Time                  `json:"createdAt"`
	ArtifactURL string                     `json:"artifactUrl"`
	Results     map[string]outcome.Outcome `json:"results"`
}

func (r *ClientRun) Client() string   { return r.ClientID }
func (r *ClientRun) BuildNumber() int { return r.Build }
func (r *ClientRun) When() time.Time  { return r.CreatedAt }

// ClientError is a client run whose result-processing step itself failed. It
// carries no per-test data and is surfaced separately from failing tests.
type ClientError struct {
	ClientID  string    `json:"clientId"`
	Build     int       `json:"build"`
	CreatedAt time.Time `json:"createdAt"`
	URL       string    `json:"url"`
}

func (r *ClientError) Client() string   { return r.ClientID }
func (r *ClientError) BuildNumber() int { return r.Build }
func (r *ClientError) When() time.Time  { return r.CreatedAt }

// ParseResultBranch splits a result branch name of the form
// result-<clientId>-<buildNumber>. Client identifiers may themselves contain
// hyphens; the build number is the final segment.
func ParseResultBranch(branch string) (string, int, error) {
	rest, found := strings.CutPrefix(branch, branchPrefix)
	if !found {
		return "", 0, &ContractViolationError{Reason: "unexpected result branch name", Detail: branch}
	}
	sep := strings.LastIndex(rest, "-")
	if sep <= 0 || sep == len(rest)-1 {
		return "", 0, &ContractViolationError{Reason: "unexpected result branch name", Detail: branch}
	}
	build, err := strconv.Atoi(rest[sep+1:])
	if err != nil {
		return "", 0, &ContractViolationError{Reason: "non-numeric build number in result branch", Detail: branch}
	}
	return rest[:sep], build, nil
}

// Fetcher retrieves the runs of the result-handling workflow created after
// the cutoff and resolves each one into a ClientRun or a ClientError.
type Fetcher struct {
	API      *hosted.API
	Workflow string
	Cutoff   time.Time
}

// Fetch returns one Record per retained run, newest first.
func (f *Fetcher) Fetch() ([]Record, error) {
	workflow := f.Workflow
	if workflow == "" {
		workflow = DefaultWorkflow
	}
	runs, err := f.API.RunsSince(workflow, f.Cutoff)
	if err != nil {
		return nil, errors.Wrapf(err, "listing runs of %s", workflow)
	}
	log.Debugf("result workflow %s: %d completed runs in window", workflow, len(runs))

	records := make([]Record, 0, len(runs))
	for _, r := range runs {
		clientID, build, err := ParseResultBranch(r.HeadBranch)
		if err != nil {
			return nil, err
		}
		o, err := outcome.FromWorkflowConclusion(r.Conclusion)
		if err != nil {
			return nil, errors.Wrapf(err, "result run %d", r.ID)
		}
		if o != outcome.Pass {
			// The client's own result processing broke; report the run as a
			// pipeline failure, not as failing tests.
			records = append(records, &ClientError{
				ClientID:  clientID,
				Build:     build,
				CreatedAt: r.CreatedAt.Time,
				URL:       r.HTMLURL,
			})
			continue
		}
		run, err := f.collectRun(r, clientID, build)
		if err != nil {
			return nil, err
		}
		records = append(records, run)
	}
	return records, nil
}

func (f *Fetcher) collectRun(r hosted.Run, clientID string, build int) (*ClientRun, error) {
	artifacts, err := f.API.ListArtifacts(r.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "result run %d", r.ID)
	}
	if len(artifacts) != 1 {
		return nil, &ContractViolationError{
			Reason: "expected exactly one result artifact",
			Detail: fmt.Sprintf("run %d has %d", r.ID, len(artifacts)),
		}
	}
	blob, err := f.API.DownloadArtifact(artifacts[0].ArchiveDownloadURL)
	if err != nil {
		return nil, errors.Wrapf(err, "result run %d", r.ID)
	}
	results, err := scanResults(blob)
	if err != nil {
		return nil, errors.Wrapf(err, "result run %d", r.ID)
	}
	return &ClientRun{
		ClientID:    clientID,
		Build:       build,
		CreatedAt:   r.CreatedAt.Time,
		ArtifactURL: artifacts[0].ArchiveDownloadURL,
		Results:     results,
	}, nil
}
