package main

import (
	"context"
	"os"

	"github.com/fenilmodi00/ipo-gmp-alert/config"
	"github.com/fenilmodi00/ipo-gmp-alert/jobs"
	"github.com/fenilmodi00/ipo-gmp-alert/services"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	envFile string
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "gmp-alert",
	Short: "Email a digest of open IPOs with a high grey market premium",
	Long: `gmp-alert fetches the investorgain GMP report, keeps SME issues at or above
60% GMP and mainboard issues at or above 20% GMP that have not closed yet,
and emails the matches as one HTML digest.`,
	SilenceUsage: true,
	RunE:         runAlert,
}

func init() {
	rootCmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the digest to stdout instead of sending email")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logrus.WithError(err).Error("gmp-alert failed")
		os.Exit(1)
	}
}

func runAlert(cmd *cobra.Command, _ []string) error {
	cfg := config.LoadConfig(envFile)
	setupLogging(cfg.LogLevel)

	fetcher := services.NewGMPService(cfg.GMPAPIURL, cfg.FetchTimeout)
	notifier := services.NewEmailNotifier(cfg.Mail())

	job := jobs.NewGMPAlertJob(fetcher, notifier, cfg.Recipients())
	if dryRun {
		job.EnableDryRun(cmd.OutOrStdout())
	}

	result, err := job.Run(cmd.Context())
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"run_id":   result.RunID,
		"outcome":  result.Outcome,
		"fetched":  result.Fetched,
		"matched":  result.Matched,
		"duration": result.Duration,
	}).Info("GMP alert run finished")
	return nil
}

func setupLogging(level string) {
	logrus.SetOutput(os.Stdout)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.WithField("log_level", level).Warn("Unknown LOG_LEVEL, using info")
		parsed = logrus.InfoLevel
	}
	logrus.SetLevel(parsed)
}
