package hosted

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/cidaily/cidaily/internal/cidaily/source"
)

const (
	// DefaultBaseURL points to the hosted workflow runner API.
	DefaultBaseURL = "https://api.github.com"

	runsPerPage = 100
)

// API is a read-only client for the hosted workflow runner endpoints used by
// the report: run listing per workflow file, job listing per run, and
// artifact metadata/download.
type API struct {
	BaseURL string
	Repo    string
	Client  *http.Client

	// Token is an opaque bearer credential supplied by the environment.
	Token string
}

func NewAPI(baseURL, repo, token string) *API {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &API{
		BaseURL: baseURL,
		Repo:    repo,
		Token:   token,
		Client:  source.NewHTTPClient(),
	}
}

// Run is one workflow run as returned by the run-list endpoint.
type Run struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	RunNumber  int         `json:"run_number"`
	Event      string      `json:"event"`
	Status     string      `json:"status"`
	Conclusion string      `json:"conclusion"`
	HeadBranch string      `json:"head_branch"`
	HTMLURL    string      `json:"html_url"`
	CreatedAt  source.Time `json:"created_at"`
}

type runListResponse struct {
	TotalCount   int   `json:"total_count"`
	WorkflowRuns []Run `json:"workflow_runs"`
}

// Job is one job of a run as returned by the job-list endpoint.
type Job struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Status      string      `json:"status"`
	Conclusion  string      `json:"conclusion"`
	HTMLURL     string      `json:"html_url"`
	StartedAt   source.Time `json:"started_at"`
	CompletedAt source.Time `json:"completed_at"`
}

type jobListResponse struct {
	TotalCount int   `json:"total_count"`
	Jobs       []Job `json:"jobs"`
}

// Artifact is the metadata of one uploaded run artifact.
type Artifact struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	ArchiveDownloadURL string `json:"archive_download_url"`
}

type artifactListResponse struct {
	TotalCount int        `json:"total_count"`
	Artifacts  []Artifact `json:"artifacts"`
}

// RunsSince returns the completed runs of a workflow file created after the
// cutoff, newest first. The endpoint returns runs ordered by descending
// creation time, so scanning stops at the first run at or before the cutoff
// instead of filtering the whole history.
func (a *API) RunsSince(workflowFile string, cutoff time.Time) ([]Run, error) {
	var out []Run
	for page := 1; ; page++ {
		url := fmt.Sprintf("%s/repos/%s/actions/workflows/%s/runs?per_page=%d&page=%d",
			a.BaseURL, a.Repo, workflowFile, runsPerPage, page)
		body, err := a.get(url)
		if err != nil {
			return nil, err
		}
		rl := runListResponse{}
		if err := json.Unmarshal(body, &rl); err != nil {
			return nil, errors.Wrapf(err, "couldn't unmarshal run list for %s", workflowFile)
		}
		if len(rl.WorkflowRuns) == 0 {
			return out, nil
		}
		for _, r := range rl.WorkflowRuns {
			if !r.CreatedAt.After(cutoff) {
				return out, nil
			}
			if r.Status != "completed" {
				continue
			}
			out = append(out, r)
		}
	}
}

// ListJobs returns the jobs of a run in listing order.
func (a *API) ListJobs(runID int64) ([]Job, error) {
	url := fmt.Sprintf("%s/repos/%s/actions/runs/%d/jobs?per_page=%d", a.BaseURL, a.Repo, runID, runsPerPage)
	body, err := a.get(url)
	if err != nil {
		return nil, err
	}
	jl := jobListResponse{}
	if err := json.Unmarshal(body, &jl); err != nil {
		return nil, errors.Wrapf(err, "couldn't unmarshal job list for run %d", runID)
	}
	return jl.Jobs, nil
}

// ListArtifacts returns the artifact metadata attached to a run.
func (a *API) ListArtifacts(runID int64) ([]Artifact, error) {
	url := fmt.Sprintf("%s/repos/%s/actions/runs/%d/artifacts", a.BaseURL, a.Repo, runID)
	body, err := a.get(url)
	if err != nil {
		return nil, err
	}
	al := artifactListResponse{}
	if err := json.Unmarshal(body, &al); err != nil {
		return nil, errors.Wrapf(err, "couldn't unmarshal artifact list for run %d", runID)
	}
	return al.Artifacts, nil
}

// DownloadArtifact fetches the artifact archive behind the download URL.
func (a *API) DownloadArtifact(url string) ([]byte, error) {
	return a.get(url)
}

func (a *API) get(url string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't create request for %s", url)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if a.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.Token)
	}

	res, err := a.Client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't call URL %s", url)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't read response body from %s", url)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, errors.Errorf("invalid status code %d from %s", res.StatusCode, url)
	}
	return body, nil
}
