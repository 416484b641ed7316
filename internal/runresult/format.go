package runresult

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// Format renders runs as text, newest first as given. order lists node ids
// in the sequence their results should appear; results for ids not in order
// follow, sorted.
func Format(w io.Writer, runs []Run, order []string) error {
	p := &printer{w: w}
	if len(runs) == 0 {
		p.line(0, `No workflow runs yet. Run the workflow to see results here.`)
		return p.err
	}

	p.line(0, "Workflow Runs")
	for _, run := range runs {
		p.line(0, "")
		p.line(0, "%s  %s  started %s", run.ID, strings.ToUpper(string(run.Status)), run.StartedAt.Format(time.RFC3339))
		if !run.Status.Terminal() {
			p.line(1, "still running, results appear when it completes")
		}
		if run.CompletedAt != nil {
			p.line(1, "completed %s (%s)", run.CompletedAt.Format(time.RFC3339), run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond))
		}
		if run.ErrorMessage != "" {
			p.line(1, "Error: %s", run.ErrorMessage)
		}
		if len(run.Results) == 0 {
			continue
		}
		p.line(1, "Results:")
		for _, id := range resultOrder(run.Results, order) {
			p.result(id, run.Results[id])
		}
	}
	return p.err
}

func resultOrder(results map[string]Result, order []string) []string {
	seen := make(map[string]bool, len(results))
	ids := make([]string, 0, len(results))
	for _, id := range order {
		if _, ok := results[id]; ok && !seen[id] {
			ids = append(ids, id)
			seen[id] = true
		}
	}
	var rest []string
	for id := range results {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(ids, rest...)
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(indent int, format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, "%s%s\n", strings.Repeat("  ", indent), fmt.Sprintf(format, args...))
}

func (p *printer) result(nodeID string, r Result) {
	p.line(2, "%s", nodeID)
	p.line(3, "Type: %s", r.Type)
	switch r.Type {
	case TypeIDList, TypeLoopBatch:
		p.line(3, "ASINs (%d):", r.Count)
		for _, id := range r.IDs {
			p.line(4, "- %s", id)
		}
	case TypeSingleID:
		p.line(3, "ASIN: %s", r.ID)
	case TypeItemRecord, TypeMerged, TypeRecordTable:
		for _, rec := range r.Records {
			p.record(rec)
		}
	default:
		if len(r.Raw) > 0 {
			p.line(3, "Value: %s", string(r.Raw))
		}
	}
}

func (p *printer) record(rec Record) {
	p.line(3, "ASIN: %s", rec.ASIN)
	p.line(4, "Title: %s", rec.Title)
	if rec.Description != "" {
		p.line(4, "Description: %s", rec.Description)
	}
	if len(rec.BulletPoints) > 0 {
		p.line(4, "Bullet Points:")
		for _, b := range rec.BulletPoints {
			p.line(5, "- %s", b)
		}
	}
}
