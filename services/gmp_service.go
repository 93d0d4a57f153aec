package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fenilmodi00/ipo-gmp-alert/models"
	"github.com/fenilmodi00/ipo-gmp-alert/shared"
	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
)

const (
	gmpServiceName = "GMPService"

	// diagnosticExcerptLength bounds how much of a rejected body is surfaced to operators
	diagnosticExcerptLength = 300

	maxResponseBodySize = 32 << 20

	reportTableDataKey = "reportTableData"
)

// GMPService fetches the investorgain live GMP report
type GMPService struct {
	url     string
	timeout time.Duration
	metrics *shared.ServiceMetrics
	logger  *logrus.Entry
}

// NewGMPService creates a GMP service for the given report URL
func NewGMPService(url string, timeout time.Duration) *GMPService {
	return &GMPService{
		url:     url,
		timeout: timeout,
		metrics: shared.NewServiceMetrics(gmpServiceName),
		logger:  logrus.WithField("component", gmpServiceName),
	}
}

// Metrics returns the fetch metrics collected by this service
func (s *GMPService) Metrics() *shared.ServiceMetrics {
	return s.metrics
}

// Fetch performs the single GET against the report endpoint and returns the raw payload
func (s *GMPService) Fetch(ctx context.Context) (*models.GMPPayload, error) {
	startTime := time.Now()

	collector := colly.NewCollector(
		colly.UserAgent(shared.BrowserUserAgent),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
		colly.StdlibContext(ctx),
	)
	collector.SetRequestTimeout(s.timeout)
	collector.MaxBodySize = maxResponseBodySize

	var payload *models.GMPPayload
	var decodeErr error

	collector.OnRequest(func(r *colly.Request) {
		shared.SetBrowserLikeHeaders(r.Headers)
		s.logger.WithField("url", r.URL.String()).Debug("Requesting GMP report")
	})

	collector.OnResponse(func(r *colly.Response) {
		body, err := shared.DecodeResponseBody(r.Headers.Get("Content-Encoding"), r.Body)
		if err != nil {
			decodeErr = err
			return
		}
		payload = &models.GMPPayload{
			StatusCode:  r.StatusCode,
			ContentType: r.Headers.Get("Content-Type"),
			Body:        body,
		}
	})

	err := collector.Visit(s.url)
	if err == nil {
		err = decodeErr
	}
	if err == nil && payload == nil {
		err = errors.New("no response received")
	}
	s.metrics.RecordRequest(err == nil, time.Since(startTime))

	if err != nil {
		return nil, shared.NewServiceError(
			shared.ErrorCategoryNetwork,
			shared.CodeFetchFailed,
			"failed to fetch GMP report",
			gmpServiceName,
			"Fetch",
			err,
		)
	}

	s.logger.WithFields(logrus.Fields{
		"status_code":  payload.StatusCode,
		"content_type": payload.ContentType,
		"bytes":        len(payload.Body),
		"elapsed":      time.Since(startTime),
	}).Info("Fetched GMP report")

	return payload, nil
}

// FetchIPOs fetches the report and validates it into IPO records
func (s *GMPService) FetchIPOs(ctx context.Context) ([]models.IPORecord, error) {
	payload, err := s.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	records, err := ValidateGMPResponse(payload)
	if err != nil {
		if shared.IsCategory(err, shared.ErrorCategoryBlocked) {
			s.metrics.AddCounter("blocked_responses", 1)
		}
		return nil, err
	}

	s.metrics.AddCounter("records_fetched", int64(len(records)))
	return records, nil
}

// ValidateGMPResponse separates a genuine report from an anti-bot page.
// A non-JSON content type or an undecodable body is a blocked response; a
// well-formed body without reportTableData is an empty, valid result.
func ValidateGMPResponse(payload *models.GMPPayload) ([]models.IPORecord, error) {
	logger := logrus.WithField("component", gmpServiceName)
	excerpt := bodyExcerpt(payload.Body)

	if !strings.Contains(strings.ToLower(payload.ContentType), "json") {
		logger.WithFields(logrus.Fields{
			"content_type": payload.ContentType,
			"status_code":  payload.StatusCode,
		}).Warnf("Server did NOT return JSON. First %d chars: %s", diagnosticExcerptLength, excerpt)

		return nil, blockedError(shared.CodeNonJSONResponse, "blocked or unexpected response returned", payload, excerpt, nil)
	}

	report, err := decodeGMPReport(payload.Body)
	if err != nil {
		logger.WithError(err).Warnf("JSON decode failed, likely blocked. First %d chars: %s", diagnosticExcerptLength, excerpt)
		return nil, blockedError(shared.CodeInvalidJSONResponse, "response body is not a GMP report", payload, excerpt, err)
	}

	if payload.StatusCode >= 300 {
		return nil, shared.NewServiceError(
			shared.ErrorCategoryNetwork,
			shared.CodeUpstreamStatus,
			fmt.Sprintf("upstream returned HTTP %d", payload.StatusCode),
			gmpServiceName,
			"Validate",
			nil,
		).WithDetails(map[string]interface{}{"excerpt": excerpt})
	}

	if report.ReportTableData == nil {
		return []models.IPORecord{}, nil
	}
	return report.ReportTableData, nil
}

func decodeGMPReport(body []byte) (*models.GMPReport, error) {
	var document map[string]json.RawMessage
	if err := decodeStrict(body, &document); err != nil {
		return nil, err
	}
	if document == nil {
		return nil, errors.New("JSON document is null, expected an object")
	}

	report := &models.GMPReport{}
	table, ok := document[reportTableDataKey]
	if !ok {
		return report, nil
	}
	if err := decodeStrict(table, &report.ReportTableData); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", reportTableDataKey, err)
	}
	return report, nil
}

// decodeStrict decodes exactly one JSON document, keeping numbers as json.Number
func decodeStrict(data []byte, target interface{}) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	if err := decoder.Decode(target); err != nil {
		return err
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON document")
	}
	return nil
}

func blockedError(code, message string, payload *models.GMPPayload, excerpt string, cause error) error {
	return shared.NewServiceError(
		shared.ErrorCategoryBlocked,
		code,
		message,
		gmpServiceName,
		"Validate",
		cause,
	).WithDetails(map[string]interface{}{
		"content_type": payload.ContentType,
		"status_code":  payload.StatusCode,
		"excerpt":      excerpt,
	})
}

func bodyExcerpt(body []byte) string {
	text := string(body)
	if utf8.RuneCountInString(text) <= diagnosticExcerptLength {
		return text
	}
	return string([]rune(text)[:diagnosticExcerptLength])
}
