package models

import (
	"html/template"
	"time"
)

// GMPPayload is the raw result of fetching the GMP report
type GMPPayload struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// GMPReport is the top-level shape of a well-formed report response
type GMPReport struct {
	ReportTableData []IPORecord `json:"reportTableData"`
}

// Digest is the rendered email body for one run
type Digest struct {
	GeneratedOn time.Time
	IPOSection  template.HTML
	SMESection  template.HTML
	HTML        string
}
