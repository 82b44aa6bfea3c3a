package run

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redhat-openshift-ecosystem/covreport/internal/config"
	"github.com/redhat-openshift-ecosystem/covreport/internal/coverage"
	"github.com/redhat-openshift-ecosystem/covreport/internal/publish"
)

const sampleCSV = `GROUP,PACKAGE,CLASS,INSTRUCTION_MISSED,INSTRUCTION_COVERED,LINE_MISSED,LINE_COVERED
app,com.acme,Foo,10,40,2,8
app,com.acme,Bar,0,50,0,10
`

type fakePublisher struct {
	bodies []string
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, body string) (publish.Action, error) {
	if f.err != nil {
		return "", f.err
	}
	f.bodies = append(f.bodies, body)
	if len(f.bodies) == 1 {
		return publish.ActionCreated, nil
	}
	return publish.ActionUpdated, nil
}

type fakeUploader struct {
	paths []string
	meta  map[string]string
}

func (f *fakeUploader) Upload(path string, meta map[string]string, _ bool) (string, error) {
	f.paths = append(f.paths, path)
	f.meta = meta
	return "s3://bucket/" + filepath.Base(path), nil
}

func newTestRun(t *testing.T, cfg *config.Config, pub *fakePublisher, up *fakeUploader) (*RunOptions, *bytes.Buffer) {
	t.Helper()
	var stdout bytes.Buffer
	r := NewRunOptions(cfg)
	r.stdout = &stdout
	r.newCommentPublisher = func(_ context.Context, _ *config.GitHub) (CommentPublisher, error) {
		return pub, nil
	}
	r.newObjectUploader = func(_ *config.Storage) (ObjectUploader, error) {
		return up, nil
	}
	return r, &stdout
}

func writeInput(t *testing.T) (input, dir string) {
	t.Helper()
	dir = t.TempDir()
	input = filepath.Join(dir, "jacoco.csv")
	require.NoError(t, os.WriteFile(input, []byte(sampleCSV), 0644))
	return input, dir
}

func TestRunWritesReport(t *testing.T) {
	input, dir := writeInput(t)
	output := filepath.Join(dir, "nested", "out", "coverage.md")

	r, stdout := newTestRun(t, &config.Config{InputPath: input, OutputPath: output, Title: "Backend"}, nil, nil)
	require.NoError(t, r.Run(context.Background()))

	content, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(content), "| com.acme | 90.00% | 18 | 20 |")
	assert.Contains(t, string(content), "  | com.acme.Foo | 80.00% | 8 | 10 |")
	assert.Empty(t, stdout.String())
}

func TestRunMissingInput(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "coverage.md")

	r, _ := newTestRun(t, &config.Config{InputPath: filepath.Join(dir, "missing.csv"), OutputPath: output}, nil, nil)
	err := r.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, coverage.ErrFileNotFound))

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr), "no report is written")
}

func TestRunPublishes(t *testing.T) {
	input, dir := writeInput(t)
	cfg := &config.Config{
		InputPath:  input,
		OutputPath: filepath.Join(dir, "coverage.md"),
		Title:      "Backend",
		GitHub: &config.GitHub{
			Owner: "acme", Repo: "widgets", PullRequest: 7,
			Marker: "<!-- coverage-report:" + input + " -->",
		},
		Storage: &config.Storage{Bucket: "reports", Key: "uploads/coverage.md"},
	}
	pub := &fakePublisher{}
	up := &fakeUploader{}
	r, _ := newTestRun(t, cfg, pub, up)

	require.NoError(t, r.Run(context.Background()))
	require.Len(t, pub.bodies, 1)
	assert.Contains(t, pub.bodies[0], cfg.GitHub.Marker+"\n# Backend\n\n## Coverage Report\n")
	assert.Equal(t, []string{cfg.OutputPath}, up.paths)
	assert.Equal(t, "acme/widgets", up.meta["repository"])
	assert.Equal(t, "7", up.meta["pullRequest"])
}

func TestRunPublishFailureKeepsReport(t *testing.T) {
	input, dir := writeInput(t)
	output := filepath.Join(dir, "coverage.md")
	cfg := &config.Config{
		InputPath:  input,
		OutputPath: output,
		GitHub:     &config.GitHub{Owner: "acme", Repo: "widgets", PullRequest: 7, Marker: "<!-- m -->"},
	}
	pub := &fakePublisher{err: &publish.AuthError{StatusCode: 401, Message: "Bad credentials"}}
	r, _ := newTestRun(t, cfg, pub, nil)

	err := r.Run(context.Background())
	require.Error(t, err)
	var authErr *publish.AuthError
	assert.True(t, errors.As(err, &authErr))
	assert.Contains(t, err.Error(), "publish failed")

	content, readErr := os.ReadFile(output)
	require.NoError(t, readErr)
	assert.Contains(t, string(content), "## Coverage Report")
}

func TestRunDryRunSkipsComment(t *testing.T) {
	input, dir := writeInput(t)
	cfg := &config.Config{
		InputPath:  input,
		OutputPath: filepath.Join(dir, "coverage.md"),
		DryRun:     true,
		GitHub:     &config.GitHub{Owner: "acme", Repo: "widgets", PullRequest: 7, Marker: "<!-- m -->"},
	}
	pub := &fakePublisher{err: errors.New("must not be called")}
	r, _ := newTestRun(t, cfg, pub, nil)

	assert.NoError(t, r.Run(context.Background()))
}

func TestRunExportFailureStillPublishes(t *testing.T) {
	input, dir := writeInput(t)
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))
	cfg := &config.Config{
		InputPath:  input,
		OutputPath: filepath.Join(dir, "coverage.md"),
		Title:      "Backend",
		XLSXPath:   filepath.Join(blocker, "coverage.xlsx"),
		GitHub:     &config.GitHub{Owner: "acme", Repo: "widgets", PullRequest: 7, Marker: "<!-- m -->"},
	}
	pub := &fakePublisher{}
	r, _ := newTestRun(t, cfg, pub, nil)

	err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export failed")
	assert.Len(t, pub.bodies, 1, "the comment is published even when an export fails")
	assert.FileExists(t, cfg.OutputPath)
}

func TestRunExports(t *testing.T) {
	input, dir := writeInput(t)
	cfg := &config.Config{
		InputPath:  input,
		OutputPath: filepath.Join(dir, "coverage.md"),
		Title:      "Backend",
		Preview:    true,
		XLSXPath:   filepath.Join(dir, "exports", "coverage.xlsx"),
		ChartPath:  filepath.Join(dir, "exports", "coverage.html"),
	}
	r, stdout := newTestRun(t, cfg, nil, nil)

	require.NoError(t, r.Run(context.Background()))
	assert.Contains(t, stdout.String(), "com.acme")
	assert.FileExists(t, cfg.XLSXPath)
	assert.FileExists(t, cfg.ChartPath)
}
