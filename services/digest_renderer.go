package services

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/fenilmodi00/ipo-gmp-alert/models"
)

const (
	InvestorGainBaseURL = "https://www.investorgain.com"

	digestTitle      = "🚀 IPOs with High GMP"
	digestDateLayout = "02-Jan-2006"
)

var digestTemplates = template.Must(template.New("digest").Parse(`<html>
<body>
<h2>{{.Title}}</h2>
<p>Filtered on {{.GeneratedOn}}</p>
{{.IPOSection}}
{{.SMESection}}
</body>
</html>
{{define "section"}}{{if .Rows}}<h3>{{.Title}}</h3>
<table border="1" cellpadding="6" cellspacing="0" style="border-collapse: collapse; font-family: Arial, sans-serif; font-size: 14px;">
<thead style="background-color: #f2f2f2;">
<tr><th>Name</th><th>GMP</th><th>Open</th><th>Close</th><th>Price</th><th>Sub</th><th>IPO Size</th><th>P/E</th></tr>
</thead>
<tbody>{{range .Rows}}
<tr>
<td><a href="{{.Link}}" target="_blank">{{.Name}}</a></td>
<td>{{.GMP}}</td>
<td>{{.Open}}</td>
<td>{{.Close}}</td>
<td>{{.Price}}</td>
<td>{{.Sub}}</td>
<td>{{.Size}}</td>
<td>{{.PE}}</td>
</tr>{{end}}
</tbody>
</table><br/>{{else}}<p><b>{{.Title}}:</b> No entries found.</p>{{end}}{{end}}`))

type digestRow struct {
	Name  string
	Link  string
	GMP   string
	Open  string
	Close string
	Price string
	Sub   string
	Size  string
	PE    string
}

type digestSection struct {
	Title string
	Rows  []digestRow
}

// RenderDigest renders the filtered IPOs into the two-section HTML email body.
// Output depends only on its arguments.
func RenderDigest(records []models.IPORecord, generatedOn time.Time) (*models.Digest, error) {
	mainboard := digestSection{Title: models.CategoryMainboard}
	sme := digestSection{Title: models.CategorySME}

	for _, record := range records {
		switch record.Category() {
		case models.CategoryMainboard:
			mainboard.Rows = append(mainboard.Rows, newDigestRow(record))
		case models.CategorySME:
			sme.Rows = append(sme.Rows, newDigestRow(record))
		}
	}

	ipoSection, err := renderSection(mainboard)
	if err != nil {
		return nil, err
	}
	smeSection, err := renderSection(sme)
	if err != nil {
		return nil, err
	}

	digest := &models.Digest{
		GeneratedOn: generatedOn,
		IPOSection:  ipoSection,
		SMESection:  smeSection,
	}

	var document bytes.Buffer
	err = digestTemplates.ExecuteTemplate(&document, "digest", map[string]interface{}{
		"Title":       digestTitle,
		"GeneratedOn": generatedOn.Format(digestDateLayout),
		"IPOSection":  ipoSection,
		"SMESection":  smeSection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render digest: %w", err)
	}
	digest.HTML = document.String()

	return digest, nil
}

// DigestSubject returns the email subject for a digest generated on the given day
func DigestSubject(generatedOn time.Time) string {
	return "🚨 GMP IPO Alert - " + generatedOn.Format(digestDateLayout)
}

// DetailLink builds the investorgain detail page URL for a record
func DetailLink(record models.IPORecord) string {
	path := record.Field(models.FieldDetailPath)
	if path == "" {
		path = "#"
	}
	return InvestorGainBaseURL + path
}

func newDigestRow(record models.IPORecord) digestRow {
	return digestRow{
		Name:  CleanDisplayText(record.Field(models.FieldName)),
		Link:  DetailLink(record),
		GMP:   CleanDisplayText(record.Field(models.FieldGMP)),
		Open:  CleanDisplayText(record.Field(models.FieldOpen)),
		Close: CleanDisplayText(record.Field(models.FieldClose)),
		Price: CleanDisplayText(record.Field(models.FieldPrice)),
		Sub:   CleanDisplayText(record.Field(models.FieldSub)),
		Size:  CleanDisplayText(record.Field(models.FieldIPOSize)),
		PE:    CleanDisplayText(record.Field(models.FieldPE)),
	}
}

func renderSection(section digestSection) (template.HTML, error) {
	var buffer bytes.Buffer
	if err := digestTemplates.ExecuteTemplate(&buffer, "section", section); err != nil {
		return "", fmt.Errorf("failed to render %s section: %w", section.Title, err)
	}
	return template.HTML(buffer.String()), nil
}
