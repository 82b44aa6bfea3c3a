package parse

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jacoco.csv")
	require.NoError(t, os.WriteFile(path, []byte("PACKAGE,CLASS,LINE_MISSED,LINE_COVERED\n"+
		"com.acme,Foo,2,8\n"+
		"com.acme,Bar,0,10\n"), 0644))

	var out bytes.Buffer
	cmd := NewCmdParse()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{path, "--classes"})
	require.NoError(t, cmd.Execute())

	got := out.String()
	assert.Contains(t, got, "- Rows: 2\n")
	assert.Contains(t, got, "- Lines: 18/20 (90.00%)\n")
	assert.Contains(t, got, "com.acme.Foo")
	assert.Contains(t, got, "80.00%")
	assert.Contains(t, got, "MISSED")

	var pkgFields []string
	for _, line := range strings.Split(got, "\n") {
		if fields := strings.Fields(line); len(fields) > 0 && fields[0] == "com.acme" {
			pkgFields = fields
		}
	}
	assert.Equal(t, []string{"com.acme", "90.00%", "18", "2", "20"}, pkgFields)
}

func TestParseCommandMissingFile(t *testing.T) {
	cmd := NewCmdParse()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "missing.csv")})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file not found")
}
