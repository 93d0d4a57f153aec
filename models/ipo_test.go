package models

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPORecordField(t *testing.T) {
	decoder := json.NewDecoder(strings.NewReader(`{
		"~IPO_Category": "SME",
		"Price": 120,
		"IPO Size": 45.75,
		"~P/E": null,
		"Flag": true
	}`))
	decoder.UseNumber()

	var record IPORecord
	require.NoError(t, decoder.Decode(&record))

	assert.Equal(t, CategorySME, record.Category())
	assert.Equal(t, "120", record.Field(FieldPrice))
	assert.Equal(t, "45.75", record.Field(FieldIPOSize))
	assert.Equal(t, "", record.Field(FieldPE))
	assert.Equal(t, "", record.Field(FieldGMP))
	assert.Equal(t, "true", record.Field("Flag"))

	assert.True(t, record.Has(FieldPrice))
	assert.False(t, record.Has(FieldPE))
	assert.False(t, record.Has(FieldDetailPath))
}
