package cmd

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	logwriter "github.com/sirupsen/logrus/hooks/writer"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/redhat-openshift-ecosystem/covreport/internal/config"
	"github.com/redhat-openshift-ecosystem/covreport/pkg/cmd/parse"
	"github.com/redhat-openshift-ecosystem/covreport/pkg/run"
	"github.com/redhat-openshift-ecosystem/covreport/pkg/version"
)

const envPrefix = "covreport"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "covreport <input-csv> <output-md>",
	Short: "JaCoCo coverage report generator",
	Long: `covreport turns a JaCoCo CSV report into a Markdown summary (package table and
collapsible class table) and can post it as a comment on a GitHub pull request,
updating the same comment on later runs.`,
	Example: `  covreport target/site/jacoco/jacoco.csv coverage/report.md
  GITHUB_TOKEN=... covreport target/site/jacoco/jacoco.csv coverage/report.md --title "Backend" --pr 42 --repo acme/widgets`,
	Args:          cobra.ExactArgs(2),
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Validate logging level
		loglevel := viper.GetString("log-level")
		logrusLevel, err := log.ParseLevel(loglevel)
		if err != nil {
			log.Fatal(err)
		}
		log.SetLevel(logrusLevel)

		// Additional log options
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp: true,
		})
		log.SetOutput(os.Stderr)

		logFile := viper.GetString("log-file")
		if logFile == "" {
			return
		}
		fdLog, err := os.OpenFile(logFile, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
		if err != nil {
			log.Errorf("error opening file %s: %v", logFile, err)
			return
		}
		log.AddHook(&logwriter.Hook{
			Writer:    fdLog,
			LogLevels: log.AllLevels,
		})
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Resolve(inputFromFlags(args), config.GitRemoteURL)
		if err != nil {
			return err
		}
		return run.NewRunOptions(cfg).Run(cmd.Context())
	},
}

// inputFromFlags collects the flag and environment values bound in viper.
func inputFromFlags(args []string) config.Input {
	return config.Input{
		InputPath:    args[0],
		OutputPath:   args[1],
		Title:        viper.GetString("title"),
		PullRequest:  viper.GetInt("pr"),
		Repo:         viper.GetString("repo"),
		GitHubToken:  viper.GetString("github-token"),
		GitHubAPIURL: viper.GetString("github-api-url"),
		Retries:      viper.GetInt("retries"),
		XLSXPath:     viper.GetString("xlsx"),
		ChartPath:    viper.GetString("chart"),
		Preview:      viper.GetBool("preview"),
		S3Bucket:     viper.GetString("s3-bucket"),
		S3Region:     viper.GetString("s3-region"),
		S3Key:        viper.GetString("s3-key"),
		DryRun:       viper.GetBool("dry-run"),
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func initBindFlag(flag string) {
	err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag))
	if err != nil {
		log.Warnf("Unable to bind flag %s\n", flag)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("log-level", "info", "logging level")
	flags.String("log-file", "", "also write logs to this file")
	flags.String("title", config.DefaultTitle, "title of the pull request comment")
	flags.Int("pr", 0, "pull request number to post the comment to (requires GITHUB_TOKEN)")
	flags.String("repo", "", "repository in format owner/repo (defaults to the origin remote)")
	flags.String("github-api-url", "", "GitHub API base URL, for GitHub Enterprise")
	flags.Int("retries", 0, "retries of failed GitHub API calls")
	flags.String("xlsx", "", "also save the tables as a spreadsheet in this path")
	flags.String("chart", "", "also save an HTML chart of package coverage in this path")
	flags.Bool("preview", false, "print the report rendered for the terminal")
	flags.String("s3-bucket", "", "also upload the Markdown report to this S3 bucket")
	flags.String("s3-region", config.DefaultS3Region, "region of the S3 bucket")
	flags.String("s3-key", "", "object key of the uploaded report (default uploads/<output name>)")
	flags.Bool("dry-run", false, "skip the remote calls, logging what would be published")
	for _, f := range []string{
		"log-level", "log-file", "title", "pr", "repo", "github-api-url", "retries",
		"xlsx", "chart", "preview", "s3-bucket", "s3-region", "s3-key", "dry-run",
	} {
		initBindFlag(f)
	}
	if err := viper.BindEnv("github-token", config.EnvGitHubToken); err != nil {
		log.Warnf("Unable to bind env %s", config.EnvGitHubToken)
	}

	// Link in child commands
	rootCmd.AddCommand(parse.NewCmdParse())
	rootCmd.AddCommand(version.NewCmdVersion())
}

// initConfig reads in ENV variables if set, e.g. COVREPORT_S3_BUCKET for --s3-bucket.
func initConfig() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}
