package seed

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/malbeclabs/cragtree/pkg/loader"
)

// RootTotal is the route count under one top-level area.
type RootTotal struct {
	Name   string
	Path   string
	Climbs int
}

// Report is what one pipeline run did.
type Report struct {
	Schema string
	Input  string
	DryRun bool

	Rows              int
	Areas             int
	Leaves            int
	Roots             int
	UnresolvedParents int
	UnnamedTokens     int

	Routes  int
	Skipped map[SkipReason]int

	AreasInserted int
	RouteLoad     loader.RouteResult
	RolledUp      int64
	Verification  *loader.Verification

	// Totals is only filled on dry runs.
	Totals  []RootTotal
	Timings []loader.PhaseTiming
}

func (r *Report) SkippedTotal() int {
	var n int
	for _, c := range r.Skipped {
		n += c
	}
	return n
}

func (r *Report) Render(w io.Writer) {
	mode := "load"
	if r.DryRun {
		mode = "dry run"
	}
	fmt.Fprintf(w, "Schema: %s (%s)\n", r.Schema, mode)
	fmt.Fprintf(w, "Input: %s\n", r.Input)

	summary := newTable(w, []string{"Metric", "Value"})
	summary.Append([]string{"Source rows", strconv.Itoa(r.Rows)})
	summary.Append([]string{"Areas", strconv.Itoa(r.Areas)})
	summary.Append([]string{"Leaf areas", strconv.Itoa(r.Leaves)})
	summary.Append([]string{"Root areas", strconv.Itoa(r.Roots)})
	if r.UnresolvedParents > 0 {
		summary.Append([]string{"Unresolved parents", strconv.Itoa(r.UnresolvedParents)})
	}
	if r.UnnamedTokens > 0 {
		summary.Append([]string{"Unnamed tokens", strconv.Itoa(r.UnnamedTokens)})
	}
	summary.Append([]string{"Routes", strconv.Itoa(r.Routes)})
	for _, reason := range skipReasons {
		if n := r.Skipped[reason]; n > 0 {
			summary.Append([]string{"Skipped (" + string(reason) + ")", strconv.Itoa(n)})
		}
	}
	if !r.DryRun {
		summary.Append([]string{"Areas inserted", strconv.Itoa(r.AreasInserted)})
		summary.Append([]string{"Routes inserted", strconv.Itoa(r.RouteLoad.Inserted)})
		if r.RouteLoad.Conflicts > 0 {
			summary.Append([]string{"Route id conflicts", strconv.Itoa(r.RouteLoad.Conflicts)})
		}
		if r.RolledUp > 0 {
			summary.Append([]string{"Areas rolled up", strconv.FormatInt(r.RolledUp, 10)})
		}
	}
	summary.Render()

	if v := r.Verification; v != nil {
		fmt.Fprintln(w, "Verification:")
		table := newTable(w, []string{"Areas", "Leaf areas", "Climbs"})
		table.Append([]string{
			strconv.FormatInt(v.Areas, 10),
			strconv.FormatInt(v.Leaves, 10),
			strconv.FormatInt(v.Climbs, 10),
		})
		table.Render()
	}

	if len(r.Totals) > 0 {
		fmt.Fprintln(w, "Top-level areas:")
		table := newTable(w, []string{"Area", "Path", "Climbs"})
		for _, t := range r.Totals {
			table.Append([]string{t.Name, t.Path, strconv.Itoa(t.Climbs)})
		}
		table.Render()
	}

	if len(r.Timings) > 0 {
		fmt.Fprintln(w, "Phases:")
		table := newTable(w, []string{"Phase", "Duration"})
		for _, t := range r.Timings {
			table.Append([]string{t.Phase, t.Duration.Round(time.Millisecond).String()})
		}
		table.Render()
	}
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(true)
	table.SetHeader(header)
	return table
}
