// Package status renders the health dashboard shown by the status command:
// per-source liveness, queue depth, and recent discovery runs.
package status

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jobscout/jobscout/internal/model"
	"github.com/jobscout/jobscout/internal/queue"
	"github.com/jobscout/jobscout/internal/registry"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Padding(1, 0, 0, 0)

	headerRowStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252"))

	healthyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	unhealthyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))
)

// SourceRow is one line of the health table.
type SourceRow struct {
	Name         string
	DisplayName  string
	Type         model.SourceType
	Healthy      bool
	Message      string
	ResponseTime time.Duration
}

// Report is everything the status view shows for one refresh.
type Report struct {
	Sources    []SourceRow
	QueueStats *queue.Stats
	Runs       []model.DiscoveryRun
	CheckedAt  time.Time
}

// Collector gathers a Report from the live components.
type Collector struct {
	Registry  *registry.Registry
	Queue     queue.Queue      // may be nil when the daemon is not running
	Runs      model.RunStore   // may be nil in health-only mode
	Campaigns []model.Campaign // used to look up recent runs
}

// Collect probes every source and gathers queue depth and recent runs.
func (c *Collector) Collect(ctx context.Context) Report {
	report := Report{CheckedAt: time.Now()}

	statuses := c.Registry.HealthCheckAll(ctx)
	for _, a := range c.Registry.All() {
		st := statuses[a.Name()]
		report.Sources = append(report.Sources, SourceRow{
			Name:         a.Name(),
			DisplayName:  a.DisplayName(),
			Type:         a.Type(),
			Healthy:      st.Healthy,
			Message:      st.Message,
			ResponseTime: st.ResponseTime,
		})
	}
	sort.Slice(report.Sources, func(i, j int) bool {
		return report.Sources[i].Name < report.Sources[j].Name
	})

	if c.Queue != nil {
		if stats, err := c.Queue.Stats(ctx); err == nil {
			report.QueueStats = &stats
		}
	}

	if c.Runs != nil {
		for _, campaign := range c.Campaigns {
			runs, err := c.Runs.ListRunsByCampaign(ctx, campaign.ID, 3)
			if err != nil {
				continue
			}
			report.Runs = append(report.Runs, runs...)
		}
		sort.Slice(report.Runs, func(i, j int) bool {
			return report.Runs[i].StartedAt.After(report.Runs[j].StartedAt)
		})
		if len(report.Runs) > 5 {
			report.Runs = report.Runs[:5]
		}
	}

	return report
}

// Render formats the report as a plain terminal dashboard.
func Render(r Report) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Sources"))
	b.WriteString("\n")
	b.WriteString(renderSourceTable(r.Sources))

	if r.QueueStats != nil {
		b.WriteString(titleStyle.Render("Queue"))
		b.WriteString("\n")
		s := r.QueueStats
		b.WriteString(fmt.Sprintf("  waiting %d   active %d   completed %d   failed %d\n",
			s.Waiting, s.Active, s.Completed, s.Failed))
	}

	if len(r.Runs) > 0 {
		b.WriteString(titleStyle.Render("Recent runs"))
		b.WriteString("\n")
		for _, run := range r.Runs {
			line := fmt.Sprintf("  %s  %-10s %-9s found %-3d new %-3d dup %-3d %s",
				run.StartedAt.Format("Jan 02 15:04"),
				run.CampaignID, run.Status, run.Found, run.New, run.Duplicates,
				run.Duration.Round(time.Millisecond))
			if run.Status == "failed" {
				line = unhealthyStyle.Render(line)
			}
			b.WriteString(line + "\n")
		}
	}

	b.WriteString(dimStyle.Render(fmt.Sprintf("\nchecked at %s\n", r.CheckedAt.Format(time.Kitchen))))
	return b.String()
}

func renderSourceTable(rows []SourceRow) string {
	var b strings.Builder
	b.WriteString(headerRowStyle.Render(fmt.Sprintf("  %-16s %-24s %-13s %-9s %-8s %s",
		"NAME", "DISPLAY", "TYPE", "STATUS", "TIME", "MESSAGE")))
	b.WriteString("\n")

	for _, row := range rows {
		status := healthyStyle.Render("healthy")
		if !row.Healthy {
			status = unhealthyStyle.Render("down")
		}
		b.WriteString(fmt.Sprintf("  %-16s %-24s %-13s %-18s %-8s %s\n",
			row.Name,
			truncate(row.DisplayName, 24),
			row.Type,
			status,
			row.ResponseTime.Round(time.Millisecond),
			truncate(row.Message, 40),
		))
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
