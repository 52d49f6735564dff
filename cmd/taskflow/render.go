package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/alecgard/taskflow/internal/api"
	"github.com/alecgard/taskflow/internal/board"
	"github.com/alecgard/taskflow/internal/membership"
	"github.com/alecgard/taskflow/internal/view"
	"github.com/dustin/go-humanize"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func when(ts *api.Timestamp) string {
	if ts == nil || ts.IsZero() {
		return "-"
	}
	return humanize.Time(ts.Time)
}

func renderProjects(w io.Writer, projects []view.ProjectSummary) error {
	if len(projects) == 0 {
		_, err := fmt.Fprintln(w, "No projects yet.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tROLE\tMEMBERS\tDESCRIPTION")
	for _, p := range projects {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n",
			p.Project.ID, p.Project.Name, orDash(p.Role.String()), len(p.Project.Members), orDash(p.Project.Description))
	}
	return tw.Flush()
}

func userLabel(u *api.User) string {
	if u == nil {
		return "Unassigned"
	}
	return fmt.Sprintf("%s <%s>", u.Name, u.Email)
}

func renderProjectDetail(w io.Writer, d *view.ProjectDetail) error {
	p := d.Project()
	eval := d.Evaluation()

	fmt.Fprintf(w, "%s (#%d)\n", p.Name, p.ID)
	if p.Description != "" {
		fmt.Fprintln(w, p.Description)
	}
	created := p.CreatedAt
	fmt.Fprintf(w, "Created %s, deadline %s", when(&created), when(p.Deadline))
	if eval.Role != membership.None {
		fmt.Fprintf(w, ", your role: %s", eval.Role)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\nTeam Members (%d)\n", eval.MemberCount())
	tw := newTable(w)
	if eval.Owner != nil {
		fmt.Fprintf(tw, "  %d\t%s\t%s\tOwner\n", eval.Owner.ID, eval.Owner.Name, eval.Owner.Email)
	} else {
		fmt.Fprintf(tw, "  %d\t-\t-\tOwner\n", p.OwnerID)
	}
	for _, u := range eval.ProjectMembers {
		fmt.Fprintf(tw, "  %d\t%s\t%s\tMember\n", u.ID, u.Name, u.Email)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if d.NoMembers() {
		fmt.Fprintln(w, "  No members yet")
	}

	b := d.Board()
	for _, col := range b.Columns {
		fmt.Fprintf(w, "\n%s (%d)\n", col.Title, len(col.Cards))
		for _, c := range col.Cards {
			renderCard(w, c)
		}
	}
	return nil
}

func renderCard(w io.Writer, c board.Card) {
	marker := ""
	if c.IsMine {
		marker = "  [My Task]"
	}
	fmt.Fprintf(w, "  #%d %s%s\n", c.Task.ID, c.Task.Name, marker)
	if c.Task.Description != "" {
		fmt.Fprintf(w, "      %s\n", c.Task.Description)
	}
	created := c.Task.CreatedAt
	fmt.Fprintf(w, "      %s, created %s", userLabel(c.Assignee), when(&created))
	if c.Task.Deadline != nil {
		fmt.Fprintf(w, ", due %s", when(c.Task.Deadline))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "      status: %s\n", statusChoices(c))
}

// statusChoices renders the card's status selector with the current status
// in brackets. Disabled options are marked read-only.
func statusChoices(c board.Card) string {
	choices := make([]string, 0, len(c.StatusOptions))
	disabled := false
	for _, opt := range c.StatusOptions {
		s := string(opt.Status)
		if opt.Status == c.Task.Status {
			s = "[" + s + "]"
		}
		choices = append(choices, s)
		disabled = disabled || opt.Disabled
	}
	out := strings.Join(choices, " ")
	if disabled {
		out += " (read-only)"
	}
	return out
}

func parseID(kind, s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", kind, s)
	}
	return id, nil
}
