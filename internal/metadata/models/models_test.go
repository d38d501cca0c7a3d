package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "quorumcred/pkg/domain-errors"
)

func TestNewDocument(t *testing.T) {
	issued := time.Date(2026, 5, 4, 12, 0, 0, 0, time.FixedZone("IST", 5*3600+1800))

	doc, err := NewDocument(" BTech ", "  Computer Science, 2026 ", issued)
	require.NoError(t, err)
	assert.Equal(t, "B.Tech Certificate", doc.Name)
	assert.Equal(t, "Computer Science, 2026", doc.Description)
	assert.Equal(t, "academic", doc.Attributes.Template)
	assert.Equal(t, time.UTC, doc.Attributes.IssueDate.Location())
	assert.True(t, doc.Attributes.IssueDate.Equal(issued))

	_, err = NewDocument("phd", "", issued)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
}

func TestCatalogValuesAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, ct := range Catalog {
		assert.False(t, seen[ct.Value], ct.Value)
		seen[ct.Value] = true
		got, ok := LookupType(ct.Value)
		assert.True(t, ok)
		assert.Equal(t, ct, got)
	}
}
