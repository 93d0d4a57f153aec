package jobs

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fenilmodi00/ipo-gmp-alert/config"
	"github.com/fenilmodi00/ipo-gmp-alert/models"
	"github.com/fenilmodi00/ipo-gmp-alert/services"
	"github.com/fenilmodi00/ipo-gmp-alert/shared"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

type fakeFetcher struct {
	records []models.IPORecord
	err     error
	calls   int
}

func (f *fakeFetcher) FetchIPOs(context.Context) ([]models.IPORecord, error) {
	f.calls++
	return f.records, f.err
}

type sentMessage struct {
	subject    string
	body       string
	recipients []string
	isHTML     bool
}

type fakeNotifier struct {
	sent []sentMessage
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, subject, body string, recipients []string, isHTML bool) error {
	f.sent = append(f.sent, sentMessage{subject: subject, body: body, recipients: recipients, isHTML: isHTML})
	return f.err
}

var runDay = time.Date(2026, time.October, 17, 9, 30, 0, 0, time.Local)

func fixedClock() time.Time { return runDay }

func sampleRecords() []models.IPORecord {
	return []models.IPORecord{
		{
			models.FieldName:       "Alpha SME Ltd",
			models.FieldCategory:   "SME",
			models.FieldGMP:        "&#8377;50 (65.00%)",
			models.FieldCloseISO:   "2026-10-20",
			models.FieldDetailPath: "/gmp/alpha-sme/1/",
		},
		{
			models.FieldName:     "Beta Mainboard Ltd",
			models.FieldCategory: "IPO",
			models.FieldGMP:      "&#8377;12 (10.00%)",
			models.FieldCloseISO: "2026-10-20",
		},
	}
}

type recordingMailSender struct {
	messages []*mail.Msg
}

func (r *recordingMailSender) DialAndSendWithContext(_ context.Context, messages ...*mail.Msg) error {
	r.messages = append(r.messages, messages...)
	return nil
}

func metricsSummaryFor(hook *test.Hook, serviceName string) *logrus.Entry {
	for _, entry := range hook.AllEntries() {
		if entry.Message == "Service metrics summary" && entry.Data["service_name"] == serviceName {
			return entry
		}
	}
	return nil
}

func newTestJob(fetcher IPOFetcher, notifier Notifier, recipients []string) *GMPAlertJob {
	job := NewGMPAlertJob(fetcher, notifier, recipients)
	job.SetClock(fixedClock)
	return job
}

func TestRunSendsDigestForMatches(t *testing.T) {
	fetcher := &fakeFetcher{records: sampleRecords()}
	notifier := &fakeNotifier{}
	recipients := []string{"a@example.com", "b@example.com"}

	result, err := newTestJob(fetcher, notifier, recipients).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, OutcomeNotified, result.Outcome)
	assert.Equal(t, 2, result.Fetched)
	assert.Equal(t, 1, result.Matched)
	assert.NotEmpty(t, result.RunID)

	require.Len(t, notifier.sent, 1)
	sent := notifier.sent[0]
	assert.Equal(t, "🚨 GMP IPO Alert - 17-Oct-2026", sent.subject)
	assert.Equal(t, recipients, sent.recipients)
	assert.True(t, sent.isHTML)
	assert.Contains(t, sent.body, "Alpha SME Ltd")
	assert.NotContains(t, sent.body, "Beta Mainboard Ltd")
	assert.Contains(t, sent.body, "<p><b>IPO:</b> No entries found.</p>")
}

func TestRunNoMatchesSendsNothing(t *testing.T) {
	records := []models.IPORecord{
		{models.FieldName: "Closed SME", models.FieldCategory: "SME", models.FieldGMP: "(90%)", models.FieldCloseISO: "2026-10-16"},
		{models.FieldName: "Weak IPO", models.FieldCategory: "IPO", models.FieldGMP: "(19.99%)", models.FieldCloseISO: "2026-10-18"},
	}
	notifier := &fakeNotifier{}
	hook := test.NewGlobal()
	defer hook.Reset()

	result, err := newTestJob(&fakeFetcher{records: records}, notifier, []string{"a@example.com"}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, OutcomeNoMatches, result.Outcome)
	assert.Empty(t, notifier.sent)

	found := false
	for _, entry := range hook.AllEntries() {
		if entry.Message == "No IPOs matched your criteria today." {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRunSkipsEmailWithoutRecipients(t *testing.T) {
	notifier := &fakeNotifier{}

	result, err := newTestJob(&fakeFetcher{records: sampleRecords()}, notifier, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, OutcomeNotificationSkipped, result.Outcome)
	assert.Equal(t, 1, result.Matched)
	assert.Empty(t, notifier.sent)
}

func TestRunFetchFailureAbortsBeforeNotify(t *testing.T) {
	fetchErr := shared.NewServiceError(shared.ErrorCategoryNetwork, shared.CodeFetchFailed, "boom", "GMPService", "Fetch", nil)
	notifier := &fakeNotifier{}
	job := newTestJob(&fakeFetcher{err: fetchErr}, notifier, []string{"a@example.com"})

	result, err := job.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, fetchErr)
	assert.Empty(t, notifier.sent)
	assert.Empty(t, result.Outcome)
	assert.EqualValues(t, 1, job.Metrics().FailedRequests)
}

func TestRunBlockedResponseSendsNothing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html>captcha</html>"))
	}))
	defer server.Close()

	notifier := &fakeNotifier{}
	fetcher := services.NewGMPService(server.URL, 5*time.Second)
	hook := test.NewGlobal()
	defer hook.Reset()

	_, err := newTestJob(fetcher, notifier, []string{"a@example.com"}).Run(context.Background())
	require.Error(t, err)
	assert.True(t, shared.IsCategory(err, shared.ErrorCategoryBlocked))
	assert.Equal(t, shared.CodeNonJSONResponse, shared.CodeOf(err))
	assert.Empty(t, notifier.sent)

	summary := metricsSummaryFor(hook, "GMPService")
	require.NotNil(t, summary, "fetcher metrics were not summarized")
	assert.Equal(t, int64(1), summary.Data["blocked_responses"])
	assert.NotEmpty(t, summary.Data["run_id"])
}

func TestRunSummarizesNotifierMetrics(t *testing.T) {
	sender := &recordingMailSender{}
	notifier := services.NewEmailNotifierWithSender(config.MailSettings{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "alerts@example.com",
		Password: "app-secret",
	}, func(config.MailSettings) (services.MailSender, error) {
		return sender, nil
	})
	hook := test.NewGlobal()
	defer hook.Reset()

	result, err := newTestJob(&fakeFetcher{records: sampleRecords()}, notifier, []string{"a@example.com", "b@example.com"}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotified, result.Outcome)
	assert.Len(t, sender.messages, 1)

	summary := metricsSummaryFor(hook, "EmailNotifier")
	require.NotNil(t, summary, "notifier metrics were not summarized")
	assert.Equal(t, int64(1), summary.Data["successful_requests"])
	assert.Equal(t, int64(2), summary.Data["recipients"])
}

func TestRunEndToEndThroughGMPService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"reportTableData":[
			{"Name":"Alpha SME Ltd","~IPO_Category":"SME","GMP":"&#8377;50 (65.00%)","~Srt_Close":"2026-10-17","~urlrewrite_folder_name":"/gmp/alpha/1/"},
			{"Name":"Beta Ltd","~IPO_Category":"IPO","GMP":"&#8377;12 (10.00%)","~Srt_Close":"2026-10-20"}
		]}`))
	}))
	defer server.Close()

	notifier := &fakeNotifier{}
	fetcher := services.NewGMPService(server.URL, 5*time.Second)

	result, err := newTestJob(fetcher, notifier, []string{"a@example.com"}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, OutcomeNotified, result.Outcome)
	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0].body, `href="https://www.investorgain.com/gmp/alpha/1/"`)
	assert.NotContains(t, notifier.sent[0].body, "Beta Ltd")
}

func TestRunDeliveryFailureIsReported(t *testing.T) {
	deliveryErr := shared.NewServiceError(shared.ErrorCategoryDelivery, shared.CodeSendFailed, "rejected", "EmailNotifier", "Send", errors.New("535"))
	notifier := &fakeNotifier{err: deliveryErr}

	result, err := newTestJob(&fakeFetcher{records: sampleRecords()}, notifier, []string{"a@example.com"}).Run(context.Background())
	require.Error(t, err)
	assert.True(t, shared.IsCategory(err, shared.ErrorCategoryDelivery))
	assert.Len(t, notifier.sent, 1)
	assert.Empty(t, result.Outcome)
}

func TestRunRenderFailureIsLogged(t *testing.T) {
	notifier := &fakeNotifier{}
	job := newTestJob(&fakeFetcher{records: sampleRecords()}, notifier, []string{"a@example.com"})
	renderErr := errors.New("template exploded")
	job.render = func([]models.IPORecord, time.Time) (*models.Digest, error) {
		return nil, renderErr
	}
	hook := test.NewGlobal()
	defer hook.Reset()

	result, err := job.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, renderErr)
	assert.Empty(t, notifier.sent)

	var logged *logrus.Entry
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.ErrorLevel && entry.Message == "GMP alert job failed: could not render digest" {
			logged = entry
		}
	}
	require.NotNil(t, logged)
	assert.Equal(t, result.RunID, logged.Data["run_id"])
	assert.Equal(t, renderErr, logged.Data[logrus.ErrorKey])
}

func TestRunDryRunWritesDigest(t *testing.T) {
	notifier := &fakeNotifier{}
	var out bytes.Buffer
	job := newTestJob(&fakeFetcher{records: sampleRecords()}, notifier, []string{"a@example.com"})
	job.EnableDryRun(&out)

	result, err := job.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, OutcomeDryRun, result.Outcome)
	assert.Empty(t, notifier.sent)
	assert.Contains(t, out.String(), "<h2>🚀 IPOs with High GMP</h2>")
	assert.Contains(t, out.String(), "Alpha SME Ltd")
}
