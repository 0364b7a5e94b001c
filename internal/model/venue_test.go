package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverity_Ordering(t *testing.T) {
	assert.True(t, SeverityCritical.WorseThan(SeverityMajor))
	assert.True(t, SeverityMajor.WorseThan(SeverityMinor))
	assert.True(t, SeverityMinor.WorseThan(SeverityComplete))
	assert.False(t, SeverityComplete.WorseThan(SeverityCritical))
	assert.False(t, SeverityMajor.WorseThan(SeverityMajor))
}

func TestSeverity_Rank(t *testing.T) {
	prev := -1
	for _, s := range AllSeverities() {
		assert.Greater(t, s.Rank(), prev)
		prev = s.Rank()
	}
	// Unknown severities sort below complete.
	assert.Equal(t, 0, Severity("bogus").Rank())
}

func TestExtractionResult_Failed(t *testing.T) {
	var nilResult *ExtractionResult
	assert.False(t, nilResult.Failed())
	assert.False(t, (&ExtractionResult{Method: MethodNone}).Failed())
	assert.True(t, (&ExtractionResult{Err: "No search results found"}).Failed())
}
