package assets

import (
	"embed"
	"io/fs"
	"path"
	"text/template"

	"github.com/pkg/errors"
)

const templatesDir = "templates"

//go:embed templates
var efs embed.FS

// Templates parses every file under templates/ into one set. Each template
// is named after its file name, e.g. "coverage.md.tmpl".
func Templates(funcs template.FuncMap) (*template.Template, error) {
	set := template.New(templatesDir).Funcs(funcs)
	err := fs.WalkDir(efs, templatesDir, func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		content, err := efs.ReadFile(name)
		if err != nil {
			return err
		}
		if _, err := set.New(path.Base(name)).Parse(string(content)); err != nil {
			return errors.Wrapf(err, "unable to parse template %s", name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}
