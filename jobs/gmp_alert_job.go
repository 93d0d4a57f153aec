package jobs

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fenilmodi00/ipo-gmp-alert/models"
	"github.com/fenilmodi00/ipo-gmp-alert/services"
	"github.com/fenilmodi00/ipo-gmp-alert/shared"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// IPOFetcher returns the validated upstream IPO records
type IPOFetcher interface {
	FetchIPOs(ctx context.Context) ([]models.IPORecord, error)
}

// Notifier delivers a rendered digest
type Notifier interface {
	Send(ctx context.Context, subject, body string, recipients []string, isHTML bool) error
}

// MetricsReporter is implemented by dependencies that keep their own ServiceMetrics
type MetricsReporter interface {
	Metrics() *shared.ServiceMetrics
}

// Outcome is how a successful run ended
type Outcome string

const (
	OutcomeNotified            Outcome = "notified"
	OutcomeNoMatches           Outcome = "no_matches"
	OutcomeNotificationSkipped Outcome = "notification_skipped"
	OutcomeDryRun              Outcome = "dry_run"
)

// RunResult summarizes one run
type RunResult struct {
	RunID    string
	Outcome  Outcome
	Fetched  int
	Matched  int
	Duration time.Duration
}

// GMPAlertJob runs fetch, filter, render and notify once per invocation
type GMPAlertJob struct {
	fetcher    IPOFetcher
	notifier   Notifier
	recipients []string
	now        func() time.Time
	dryRun     io.Writer
	render     func([]models.IPORecord, time.Time) (*models.Digest, error)
	metrics    *shared.ServiceMetrics
}

// NewGMPAlertJob creates a new GMP alert job
func NewGMPAlertJob(fetcher IPOFetcher, notifier Notifier, recipients []string) *GMPAlertJob {
	return &GMPAlertJob{
		fetcher:    fetcher,
		notifier:   notifier,
		recipients: recipients,
		now:        time.Now,
		render:     services.RenderDigest,
		metrics:    shared.NewServiceMetrics("GMPAlertJob"),
	}
}

// SetClock replaces the clock used to decide "today"
func (j *GMPAlertJob) SetClock(now func() time.Time) {
	j.now = now
}

// EnableDryRun writes the digest to w instead of emailing it
func (j *GMPAlertJob) EnableDryRun(w io.Writer) {
	j.dryRun = w
}

// Metrics returns the run metrics
func (j *GMPAlertJob) Metrics() *shared.ServiceMetrics {
	return j.metrics
}

// Run executes the job. Fetch and delivery failures abort the run; no email
// is sent unless every earlier step succeeded.
func (j *GMPAlertJob) Run(ctx context.Context) (result *RunResult, err error) {
	startTime := time.Now()
	result = &RunResult{RunID: uuid.NewString()}
	logger := logrus.WithFields(logrus.Fields{
		"component": "GMPAlertJob",
		"run_id":    result.RunID,
	})

	defer func() {
		result.Duration = time.Since(startTime)
		j.metrics.RecordRequest(err == nil, result.Duration)
		j.logMetrics(logger)
	}()

	logger.Info("Starting GMP alert job")

	records, err := j.fetcher.FetchIPOs(ctx)
	if err != nil {
		logger.WithError(err).Error("GMP alert job failed: could not fetch GMP data")
		return result, fmt.Errorf("fetch GMP data: %w", err)
	}
	result.Fetched = len(records)
	j.metrics.AddCounter("records_fetched", int64(len(records)))

	today := services.DateOf(j.now())
	matched, stats := services.FilterIPOsWithStats(records, today)
	result.Matched = len(matched)
	j.metrics.AddCounter("records_matched", int64(len(matched)))

	logger.WithFields(logrus.Fields{
		"total":            stats.Total,
		"matched":          stats.Matched,
		"closed":           stats.Closed,
		"below_threshold":  stats.BelowThreshold,
		"unknown_category": stats.UnknownCategory,
	}).Info("Filtered IPOs")

	if len(matched) == 0 {
		logger.Info("No IPOs matched your criteria today.")
		result.Outcome = OutcomeNoMatches
		return result, nil
	}

	digest, err := j.render(matched, today)
	if err != nil {
		logger.WithError(err).Error("GMP alert job failed: could not render digest")
		return result, fmt.Errorf("render GMP digest: %w", err)
	}
	subject := services.DigestSubject(today)

	if j.dryRun != nil {
		if _, err = fmt.Fprintln(j.dryRun, digest.HTML); err != nil {
			return result, fmt.Errorf("write dry-run digest: %w", err)
		}
		logger.WithField("subject", subject).Info("Dry run: digest written, email not sent")
		result.Outcome = OutcomeDryRun
		return result, nil
	}

	if len(j.recipients) == 0 {
		logger.Warn("NOTIFY_EMAILS environment variable not set; skipping email.")
		result.Outcome = OutcomeNotificationSkipped
		return result, nil
	}

	if err = j.notifier.Send(ctx, subject, digest.HTML, j.recipients, true); err != nil {
		logger.WithError(err).Error("GMP alert job failed: could not send email")
		return result, fmt.Errorf("send GMP alert: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"matched":    len(matched),
		"recipients": len(j.recipients),
	}).Info("GMP alert email sent")
	result.Outcome = OutcomeNotified
	return result, nil
}

// logMetrics summarizes the job metrics and those of its fetcher and notifier
func (j *GMPAlertJob) logMetrics(logger *logrus.Entry) {
	j.metrics.LogSummary(logger)
	for _, dependency := range []interface{}{j.fetcher, j.notifier} {
		if reporter, ok := dependency.(MetricsReporter); ok && reporter.Metrics() != nil {
			reporter.Metrics().LogSummary(logger)
		}
	}
}
