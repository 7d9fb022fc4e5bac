package event

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShortName(t *testing.T) {
	assert.Equal(t, "ingest_document", ShortName(IngestDocument))
	assert.Equal(t, "plain", ShortName("plain"))
	assert.Equal(t, "", ShortName("trailing."))
}

func TestSubjectsShareThePrefix(t *testing.T) {
	assert.True(t, strings.HasPrefix(IngestDocument, SubjectPrefix))
}
