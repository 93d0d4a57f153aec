package models

import (
	"encoding/json"
	"fmt"
)

// Category values carried in the ~IPO_Category field
const (
	CategoryMainboard = "IPO"
	CategorySME       = "SME"
)

// Field keys of one investorgain report row
const (
	FieldCategory   = "~IPO_Category"
	FieldGMP        = "GMP"
	FieldCloseISO   = "~Srt_Close"
	FieldName       = "Name"
	FieldDetailPath = "~urlrewrite_folder_name"
	FieldOpen       = "Open"
	FieldClose      = "Close"
	FieldPrice      = "Price"
	FieldIPOSize    = "IPO Size"
	FieldPE         = "~P/E"
	FieldSub        = "Sub"
)

// IPORecord is one row of the upstream GMP report. Numbers are decoded as
// json.Number so display values keep their literal text.
type IPORecord map[string]interface{}

// Field returns the display string for key; absent and null values yield ""
func (r IPORecord) Field(key string) string {
	value, ok := r[key]
	if !ok || value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Has reports whether key is present with a non-null value
func (r IPORecord) Has(key string) bool {
	value, ok := r[key]
	return ok && value != nil
}

// Category returns the listing category of the record
func (r IPORecord) Category() string {
	return r.Field(FieldCategory)
}
