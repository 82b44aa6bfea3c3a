// Package config resolves, once at startup, every setting the pipeline needs:
// command line flags, environment and the git remote of the working copy.
package config

import (
	"fmt"
	"net/url"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/redhat-openshift-ecosystem/covreport/internal/report"
)

const (
	DefaultTitle    = "Coverage Report"
	DefaultS3Region = "us-east-1"
	EnvGitHubToken  = "GITHUB_TOKEN"

	s3KeyPrefix = "uploads/"
)

// ErrConfig is returned when required settings are missing or malformed.
var ErrConfig = errors.New("configuration error")

// Input holds the raw values read from flags and environment.
type Input struct {
	InputPath    string
	OutputPath   string
	Title        string
	PullRequest  int
	Repo         string
	GitHubToken  string
	GitHubAPIURL string
	Retries      int
	XLSXPath     string
	ChartPath    string
	Preview      bool
	S3Bucket     string
	S3Region     string
	S3Key        string
	DryRun       bool
}

// Config is the resolved configuration.
type Config struct {
	InputPath  string
	OutputPath string
	Title      string
	XLSXPath   string
	ChartPath  string
	Preview    bool
	DryRun     bool

	// GitHub is set only when a pull request was requested.
	GitHub *GitHub
	// Storage is set only when a bucket was requested.
	Storage *Storage
}

// GitHub holds what the comment publisher needs.
type GitHub struct {
	Token       string
	Owner       string
	Repo        string
	PullRequest int
	Marker      string
	APIURL      string
	Retries     int
}

// Storage holds the object storage destination of the Markdown report.
type Storage struct {
	Bucket string
	Region string
	Key    string
}

// RemoteURLFunc returns the URL of the origin remote.
type RemoteURLFunc func() (string, error)

// GitRemoteURL reads remote.origin.url from the git configuration of the
// current directory.
func GitRemoteURL() (string, error) {
	out, err := exec.Command("git", "config", "--get", "remote.origin.url").Output()
	if err != nil {
		return "", errors.Wrap(err, "unable to read git remote.origin.url")
	}
	return strings.TrimSpace(string(out)), nil
}

// Resolve validates the input and builds the configuration. Publishing
// settings are checked here, before any network call.
func Resolve(in Input, remoteURL RemoteURLFunc) (*Config, error) {
	if in.InputPath == "" || in.OutputPath == "" {
		return nil, errors.Wrap(ErrConfig, "input CSV and output Markdown paths are required")
	}
	cfg := &Config{
		InputPath:  in.InputPath,
		OutputPath: in.OutputPath,
		Title:      in.Title,
		XLSXPath:   in.XLSXPath,
		ChartPath:  in.ChartPath,
		Preview:    in.Preview,
		DryRun:     in.DryRun,
	}
	if cfg.Title == "" {
		cfg.Title = DefaultTitle
	}

	if in.PullRequest != 0 {
		gh, err := resolveGitHub(in, remoteURL)
		if err != nil {
			return nil, err
		}
		cfg.GitHub = gh
	}

	if in.S3Bucket != "" {
		st, err := resolveStorage(in)
		if err != nil {
			return nil, err
		}
		cfg.Storage = st
	}
	return cfg, nil
}

func resolveGitHub(in Input, remoteURL RemoteURLFunc) (*GitHub, error) {
	if in.PullRequest < 0 {
		return nil, errors.Wrapf(ErrConfig, "invalid pull request number %d", in.PullRequest)
	}
	if in.GitHubToken == "" {
		return nil, errors.Wrapf(ErrConfig, "%s environment variable is required when using --pr", EnvGitHubToken)
	}

	repo := in.Repo
	if repo == "" {
		if remoteURL == nil {
			return nil, errors.Wrap(ErrConfig, "--repo is required when no git remote is available")
		}
		remote, err := remoteURL()
		if err != nil {
			return nil, errors.Wrapf(ErrConfig, "unable to get repository info, use --repo: %v", err)
		}
		repo, err = RepoFromRemote(remote)
		if err != nil {
			return nil, err
		}
		log.Debugf("Using repository %s from git remote %s", repo, remote)
	}
	owner, name, err := SplitRepo(repo)
	if err != nil {
		return nil, err
	}

	return &GitHub{
		Token:       in.GitHubToken,
		Owner:       owner,
		Repo:        name,
		PullRequest: in.PullRequest,
		Marker:      report.Marker(in.InputPath),
		APIURL:      in.GitHubAPIURL,
		Retries:     in.Retries,
	}, nil
}

// resolveStorage defaults the object key to uploads/<report file name>. A
// custom key must end with the report file name.
func resolveStorage(in Input) (*Storage, error) {
	st := &Storage{
		Bucket: in.S3Bucket,
		Region: in.S3Region,
		Key:    in.S3Key,
	}
	if st.Region == "" {
		st.Region = DefaultS3Region
	}
	filename := filepath.Base(in.OutputPath)
	if st.Key == "" {
		st.Key = s3KeyPrefix + filename
	} else if !strings.HasSuffix(st.Key, filename) {
		return nil, errors.Wrapf(ErrConfig, "object key must end with the report name %s", filename)
	}
	return st, nil
}

// SplitRepo splits "owner/name".
func SplitRepo(repo string) (owner, name string, err error) {
	parts := strings.Split(repo, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.Wrapf(ErrConfig, "repository must be in the format owner/repo, got %q", repo)
	}
	return parts[0], parts[1], nil
}

// RepoFromRemote extracts "owner/name" from a remote URL. Both the scp-like
// form (git@github.com:owner/name.git) and URLs are accepted.
func RepoFromRemote(remote string) (string, error) {
	remote = strings.TrimSpace(remote)
	if !strings.Contains(remote, "://") {
		if at := strings.Index(remote, "@"); at >= 0 {
			if colon := strings.Index(remote[at:], ":"); colon >= 0 {
				remote = fmt.Sprintf("ssh://%s/%s", remote[:at+colon], remote[at+colon+1:])
			}
		}
	}
	u, err := url.Parse(remote)
	if err != nil || u.Host == "" {
		return "", errors.Wrapf(ErrConfig, "unable to parse git remote %q", remote)
	}
	repo := strings.TrimSuffix(strings.Trim(u.Path, "/"), ".git")
	if _, _, err := SplitRepo(repo); err != nil {
		return "", err
	}
	return repo, nil
}
