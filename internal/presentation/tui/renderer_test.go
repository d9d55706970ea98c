package tui

import (
	"bytes"
	"testing"
	"time"

	"github.com/aretw0/strand/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestReportMarkdown(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := &domain.Report{
		ID:         "run-1",
		Unit:       "pingpong",
		StartedAt:  start,
		FinishedAt: start.Add(2 * time.Second),
		Stats:      domain.Stats{Rendezvous: 4},
		Roots:      domain.RootAudit{Added: 2, Removed: 1, Live: 1, Violations: []string{"double add"}},
		Error:      "halt: enough",
	}

	md := ReportMarkdown(r)
	assert.Contains(t, md, "# Run `run-1`")
	assert.Contains(t, md, "| unit | pingpong |")
	assert.Contains(t, md, "| duration | 2s |")
	assert.Contains(t, md, "| rendezvous | 4 |")
	assert.Contains(t, md, "+2 / -1 (live 1)")
	assert.Contains(t, md, "- double add")
	assert.Contains(t, md, "**Error:** halt: enough")
}

func TestRenderReport_Plain(t *testing.T) {
	r := &domain.Report{ID: "x", Unit: "u"}
	assert.Equal(t, ReportMarkdown(r), RenderReport(r, false))
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)
	assert.Contains(t, buf.String(), "|___/")
}
