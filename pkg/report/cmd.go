// Package report implements the `report` subcommand: one batch pass that
// fetches the last day of CI activity, aggregates it and writes the report.
package report

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/cidaily/cidaily/internal/cidaily/metrics"
	"github.com/cidaily/cidaily/internal/cidaily/report"
	"github.com/cidaily/cidaily/internal/cidaily/roster"
	"github.com/cidaily/cidaily/internal/cidaily/source/clientresult"
	"github.com/cidaily/cidaily/internal/cidaily/source/hosted"
	"github.com/cidaily/cidaily/internal/cidaily/source/thirdparty"
)

// tokenEnvVar is the environment variable (or .env entry) holding the bearer
// credential for the hosted workflow API.
const tokenEnvVar = "cidaily_token"

type options struct {
	repo           string
	apiURL         string
	thirdPartyURL  string
	workflows      []string
	resultWorkflow string
	clientsFile    string
	window         time.Duration
	output         string
	chartsDir      string
	xlsxFile       string
}

func NewCmdReport() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate the daily CI status report",
		Long: `Fetches the last day of activity from the hosted workflows, the
client result uploads and the third-party build service, and writes the
aggregated report`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run()
		},
	}

	cmd.Flags().StringVar(&o.repo, "repo", "", "repository the report covers (owner/name)")
	cmd.Flags().StringVar(&o.apiURL, "api-url", hosted.DefaultBaseURL, "base URL of the hosted workflow API")
	cmd.Flags().StringVar(&o.thirdPartyURL, "thirdparty-url", "", "base URL of the third-party build API")
	cmd.Flags().StringSliceVar(&o.workflows, "workflows", nil, "workflow files included in the report")
	cmd.Flags().StringVar(&o.resultWorkflow, "result-workflow", clientresult.DefaultWorkflow, "workflow file that ingests client results")
	cmd.Flags().StringVar(&o.clientsFile, "clients-file", "", "roster of known client machines (yaml)")
	cmd.Flags().DurationVar(&o.window, "window", 24*time.Hour, "lookback window")
	cmd.Flags().StringVar(&o.output, "output", "cidaily-report.html", "report body destination")
	cmd.Flags().StringVar(&o.chartsDir, "charts-dir", "", "also write an outcome chart page into this directory")
	cmd.Flags().StringVar(&o.xlsxFile, "xlsx-file", "", "also export the report as a spreadsheet")

	for _, flag := range []string{"repo", "workflows", "clients-file", "thirdparty-url"} {
		if err := cmd.MarkFlagRequired(flag); err != nil {
			log.Warnf("Unable to mark flag %s required", flag)
		}
	}
	return cmd
}

func (o *options) run() error {
	ros, err := roster.Load(o.clientsFile)
	if err != nil {
		return err
	}

	token := viper.GetString(tokenEnvVar)
	if token == "" {
		log.Warn("no API token in environment, calling the hosted API anonymously")
	}

	cutoff := time.Now().UTC().Add(-o.window)
	log.Infof("Reporting on %s activity since %s", o.repo, cutoff.Format(time.RFC3339))

	// Each fetcher owns its own API client and session; they only share the
	// cutoff. The aggregator consumes their outputs after all are complete.
	hf := &hosted.Fetcher{
		API:       hosted.NewAPI(o.apiURL, o.repo, token),
		Workflows: o.workflows,
		Cutoff:    cutoff,
	}
	cf := &clientresult.Fetcher{
		API:      hosted.NewAPI(o.apiURL, o.repo, token),
		Workflow: o.resultWorkflow,
		Cutoff:   cutoff,
	}
	tf := &thirdparty.Fetcher{
		API:    thirdparty.NewAPI(o.thirdPartyURL),
		Cutoff: cutoff,
	}

	var (
		runs    []hosted.WorkflowRun
		records []clientresult.Record
		builds  []thirdparty.Build
	)
	timers := metrics.NewTimers()
	eg := &errgroup.Group{}
	eg.Go(func() error {
		defer timers.Observe("fetch/hosted")()
		var err error
		runs, err = hf.Fetch()
		return err
	})
	eg.Go(func() error {
		defer timers.Observe("fetch/clients")()
		var err error
		records, err = cf.Fetch()
		return err
	})
	eg.Go(func() error {
		defer timers.Observe("fetch/thirdparty")()
		var err error
		builds, err = tf.Fetch()
		return err
	})
	if err := eg.Wait(); err != nil {
		// No partial report: a loud failure is worth more than a silently
		// incomplete summary.
		return err
	}
	timers.Log()

	rep := report.Aggregate(o.repo, o.window, o.workflows, ros.IDs(), runs, records, builds)
	subject, body, err := rep.Render()
	if err != nil {
		return err
	}

	if err := os.WriteFile(o.output, []byte(body), 0644); err != nil {
		return errors.Wrapf(err, "couldn't write report body to %s", o.output)
	}
	log.Infof("Report body saved to %s", o.output)

	if o.chartsDir != "" {
		if err := rep.WriteCharts(o.chartsDir); err != nil {
			return err
		}
	}
	if o.xlsxFile != "" {
		if err := rep.SaveXLSX(o.xlsxFile); err != nil {
			return err
		}
		log.Infof("Spreadsheet saved to %s", o.xlsxFile)
	}

	fmt.Println(subject)
	return nil
}
