package run

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/redhat-openshift-ecosystem/covreport/internal/config"
	"github.com/redhat-openshift-ecosystem/covreport/internal/coverage"
	"github.com/redhat-openshift-ecosystem/covreport/internal/metrics"
	"github.com/redhat-openshift-ecosystem/covreport/internal/publish"
	"github.com/redhat-openshift-ecosystem/covreport/internal/report"
)

// CommentPublisher creates or updates the pull request comment.
type CommentPublisher interface {
	Publish(ctx context.Context, body string) (publish.Action, error)
}

// ObjectUploader stores the report file remotely.
type ObjectUploader interface {
	Upload(path string, meta map[string]string, dryRun bool) (string, error)
}

type RunOptions struct {
	config *config.Config
	stdout io.Writer
	timers metrics.Timers

	newCommentPublisher func(ctx context.Context, cfg *config.GitHub) (CommentPublisher, error)
	newObjectUploader   func(cfg *config.Storage) (ObjectUploader, error)
}

func NewRunOptions(cfg *config.Config) *RunOptions {
	return &RunOptions{
		config: cfg,
		stdout: os.Stdout,
		timers: metrics.NewTimers(),
		newCommentPublisher: func(ctx context.Context, cfg *config.GitHub) (CommentPublisher, error) {
			return publish.NewGitHub(ctx, cfg)
		},
		newObjectUploader: func(cfg *config.Storage) (ObjectUploader, error) {
			return publish.NewS3Uploader(cfg)
		},
	}
}

// Run reads the CSV, writes the Markdown report and then runs the optional
// outputs. Failures after the report is written never remove it, and a failed
// export does not prevent publishing.
func (r *RunOptions) Run(ctx context.Context) error {
	cfg := r.config
	r.timers.Add("total")
	defer func() {
		r.timers.Stop()
		r.timers.Add("total")
		r.timers.Log()
	}()

	r.timers.Set("read")
	agg, err := coverage.AggregateFile(cfg.InputPath)
	if err != nil {
		return errors.WithMessage(err, "unable to read coverage")
	}
	s := agg.Summarize()
	log.Debugf("Read %d rows: %d packages, %d classes", agg.Rows, s.Packages, s.Classes)
	log.Infof("Line coverage %s (%d/%d), class coverage min=%.2f%% median=%.2f%% mean=%.2f%% max=%.2f%%",
		s.Overall.PercentString(), s.Overall.Covered, s.Overall.Total,
		s.MinClass, s.MedianClass, s.MeanClass, s.MaxClass)

	r.timers.Set("render")
	markdown, err := report.Markdown(agg.Packages, agg.Classes)
	if err != nil {
		return err
	}
	if err := writeFile(cfg.OutputPath, markdown); err != nil {
		return err
	}
	log.Infof("Report generated successfully at: %s", cfg.OutputPath)

	r.timers.Set("export")
	exportErr := r.runExports(agg, markdown)
	if exportErr != nil {
		log.Errorf("Export failed: %v", exportErr)
	}

	r.timers.Set("publish")
	if err := r.runPublish(ctx, markdown); err != nil {
		return errors.WithMessagef(err, "report written to %s, publish failed", cfg.OutputPath)
	}
	if exportErr != nil {
		return errors.WithMessagef(exportErr, "report written to %s, export failed", cfg.OutputPath)
	}
	return nil
}

func (r *RunOptions) runExports(agg *coverage.Aggregate, markdown string) error {
	cfg := r.config
	if cfg.Preview {
		out, err := report.Preview(markdown)
		if err != nil {
			return err
		}
		fmt.Fprint(r.stdout, out)
	}
	if cfg.XLSXPath != "" {
		if err := ensureDir(cfg.XLSXPath); err != nil {
			return err
		}
		if err := report.WriteXLSX(cfg.XLSXPath, agg.Packages, agg.Classes); err != nil {
			return err
		}
	}
	if cfg.ChartPath != "" {
		if err := ensureDir(cfg.ChartPath); err != nil {
			return err
		}
		if err := report.WriteChart(cfg.ChartPath, cfg.Title, agg.Packages); err != nil {
			return err
		}
	}
	return nil
}

func (r *RunOptions) runPublish(ctx context.Context, markdown string) error {
	cfg := r.config
	if gh := cfg.GitHub; gh != nil {
		if cfg.DryRun {
			log.Warnf("DRY-RUN mode: skipping comment on %s/%s#%d", gh.Owner, gh.Repo, gh.PullRequest)
		} else {
			publisher, err := r.newCommentPublisher(ctx, gh)
			if err != nil {
				return err
			}
			action, err := publisher.Publish(ctx, report.Comment(gh.Marker, cfg.Title, markdown))
			if err != nil {
				return err
			}
			log.Infof("Coverage report %s on %s/%s#%d", action, gh.Owner, gh.Repo, gh.PullRequest)
		}
	}

	if st := cfg.Storage; st != nil {
		uploader, err := r.newObjectUploader(st)
		if err != nil {
			return err
		}
		meta := map[string]string{"title": cfg.Title, "input": cfg.InputPath}
		if cfg.GitHub != nil {
			meta["repository"] = cfg.GitHub.Owner + "/" + cfg.GitHub.Repo
			meta["pullRequest"] = strconv.Itoa(cfg.GitHub.PullRequest)
		}
		if _, err := uploader.Upload(cfg.OutputPath, meta, cfg.DryRun); err != nil {
			return err
		}
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "unable to create directory %s", dir)
	}
	return nil
}

func writeFile(path, content string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return errors.Wrapf(err, "unable to write report %s", path)
	}
	return nil
}
