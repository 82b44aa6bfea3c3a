package main

import (
	cmd "github.com/redhat-openshift-ecosystem/covreport/cmd/covreport"
)

func main() {
	cmd.Execute()
}
