// Package publish sends a rendered coverage report to remote services: a
// pull request comment on GitHub, and an object storage bucket.
package publish

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v29/github"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/redhat-openshift-ecosystem/covreport/internal/config"
)

const (
	defaultConnTimeoutSec = 30
	commentsPerPage       = 100
	maxErrorBodySize      = 64 * 1024
)

type noRetryKey struct{}

// Action tells what Publish did with the comment.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
)

// AuthError is returned when the API rejects the credentials (401/403).
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("github authentication failed (%d): %s", e.StatusCode, e.Message)
}

// NotFoundError is returned when the repository or the pull request does not exist.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("github resource not found: %s", e.Message)
}

// RemoteError is any other non-2xx answer of the API.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("GitHub API error: %d - %s", e.StatusCode, e.Body)
}

// GitHub publishes reports as issue comments of a single pull request.
type GitHub struct {
	cfg    *config.GitHub
	client *github.Client
}

// NewGitHub creates the API client authenticated with the configured token. An
// empty APIURL targets api.github.com; retries are disabled unless Retries > 0.
func NewGitHub(ctx context.Context, cfg *config.GitHub) (*GitHub, error) {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.Retries
	retryClient.CheckRetry = checkRetry
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.HTTPClient.Timeout = defaultConnTimeoutSec * time.Second
	retryLogger := log.New()
	retryLogger.SetLevel(log.WarnLevel)
	retryClient.Logger = retryLogger

	ctx = context.WithValue(ctx, oauth2.HTTPClient, retryClient.StandardClient())
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}))
	httpClient.Transport = &errorBodyTransport{base: httpClient.Transport}

	client := github.NewClient(httpClient)
	if cfg.APIURL != "" {
		baseURL := cfg.APIURL
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, errors.Wrapf(config.ErrConfig, "invalid GitHub API URL %q: %v", cfg.APIURL, err)
		}
		client.BaseURL = u
	}

	return &GitHub{cfg: cfg, client: client}, nil
}

// Publish creates the comment, or replaces the body of the comment already
// carrying the marker. body must contain the marker for the next run to find it.
func (g *GitHub) Publish(ctx context.Context, body string) (Action, error) {
	if !strings.Contains(body, g.cfg.Marker) {
		return "", errors.Errorf("comment body does not contain the marker %s", g.cfg.Marker)
	}

	existing, err := g.FindComment(ctx, g.cfg.Marker)
	if err != nil {
		return "", errors.WithMessage(err, "unable to list pull request comments")
	}

	comment := &github.IssueComment{Body: &body}
	if existing != nil {
		log.Debugf("Updating comment %d on %s/%s#%d", existing.GetID(), g.cfg.Owner, g.cfg.Repo, g.cfg.PullRequest)
		_, resp, err := g.client.Issues.EditComment(ctx, g.cfg.Owner, g.cfg.Repo, existing.GetID(), comment)
		if err != nil {
			return "", errors.WithMessage(classify(resp, err), "unable to update comment")
		}
		return ActionUpdated, nil
	}

	log.Debugf("Creating comment on %s/%s#%d", g.cfg.Owner, g.cfg.Repo, g.cfg.PullRequest)
	// Creates are never retried.
	ctx = context.WithValue(ctx, noRetryKey{}, true)
	_, resp, err := g.client.Issues.CreateComment(ctx, g.cfg.Owner, g.cfg.Repo, g.cfg.PullRequest, comment)
	if err != nil {
		return "", errors.WithMessage(classify(resp, err), "unable to create comment")
	}
	return ActionCreated, nil
}

// FindComment walks every page of the pull request comments and returns the
// first one whose body contains the marker, or nil.
func (g *GitHub) FindComment(ctx context.Context, marker string) (*github.IssueComment, error) {
	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: commentsPerPage},
	}
	for {
		comments, resp, err := g.client.Issues.ListComments(ctx, g.cfg.Owner, g.cfg.Repo, g.cfg.PullRequest, opts)
		if err != nil {
			return nil, classify(resp, err)
		}
		for _, c := range comments {
			if strings.Contains(c.GetBody(), marker) {
				return c, nil
			}
		}
		if resp.NextPage == 0 {
			return nil, nil
		}
		opts.Page = resp.NextPage
	}
}

// checkRetry is the default retry policy, except for requests whose context
// is marked with noRetryKey.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Value(noRetryKey{}) != nil {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// errorBody keeps the raw bytes of a non-2xx response, which go-github drops
// unless they decode as JSON.
type errorBody struct {
	*bytes.Reader
	raw []byte
}

func (b *errorBody) Close() error { return nil }

type errorBodyTransport struct {
	base http.RoundTripper
}

func (t *errorBodyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil || resp.StatusCode < 300 {
		return resp, err
	}
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	resp.Body.Close()
	if readErr != nil {
		log.Debugf("unable to read error body of %s %s: %v", req.Method, req.URL, readErr)
	}
	resp.Body = &errorBody{Reader: bytes.NewReader(raw), raw: raw}
	return resp, nil
}

// classify maps a failed API call to AuthError, NotFoundError or RemoteError.
// Errors without a response (network, context) are returned wrapped.
func classify(resp *github.Response, err error) error {
	if resp == nil || resp.Response == nil {
		return errors.Wrap(err, "github request failed")
	}
	message := err.Error()
	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Message != "" {
		message = errResp.Message
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{StatusCode: resp.StatusCode, Message: message}
	case http.StatusNotFound:
		return &NotFoundError{Message: message}
	default:
		body := message
		if eb, ok := resp.Body.(*errorBody); ok && len(bytes.TrimSpace(eb.raw)) > 0 {
			body = string(bytes.TrimSpace(eb.raw))
		}
		return &RemoteError{StatusCode: resp.StatusCode, Body: body}
	}
}
