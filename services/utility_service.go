package services

import (
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const isoDateLayout = "2006-01-02"

var (
	gmpPercentPattern = regexp.MustCompile(`\(([\d.]+)%\)`)
	markupPattern     = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// ParseGMPPercentage extracts the parenthesized premium percentage from a GMP
// descriptor such as "₹25 (30.86%)". Malformed or missing input yields 0.
func ParseGMPPercentage(raw string) float64 {
	if raw == "" {
		return 0.0
	}

	decoded := html.UnescapeString(raw)
	matches := gmpPercentPattern.FindStringSubmatch(decoded)
	if len(matches) < 2 {
		return 0.0
	}

	percentage, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0.0
	}
	return percentage
}

// ParseISODate parses a strict YYYY-MM-DD date in the local timezone.
// Returns nil for anything else.
func ParseISODate(raw string) *time.Time {
	if raw == "" {
		return nil
	}

	parsed, err := time.ParseInLocation(isoDateLayout, raw, time.Local)
	if err != nil {
		return nil
	}
	return &parsed
}

// DateOf truncates t to local midnight of its calendar day
func DateOf(t time.Time) time.Time {
	year, month, day := t.In(time.Local).Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.Local)
}

// CleanDisplayText strips inline markup and decodes entities from an upstream cell
func CleanDisplayText(raw string) string {
	if raw == "" {
		return ""
	}

	var text string
	document, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		text = html.UnescapeString(markupPattern.ReplaceAllString(raw, ""))
	} else {
		text = document.Text()
	}
	text = strings.ReplaceAll(text, "\u00a0", " ")

	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}
