package report

import (
	"github.com/charmbracelet/glamour"
	"github.com/pkg/errors"
)

const previewWordWrap = 120

// Preview renders the Markdown for a terminal.
func Preview(markdown string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(previewWordWrap),
	)
	if err != nil {
		return "", errors.Wrap(err, "unable to create terminal renderer")
	}
	out, err := r.Render(markdown)
	if err != nil {
		return "", errors.Wrap(err, "unable to render preview")
	}
	return out, nil
}
