// Package status turns live container state into report rows.
package status

import (
	"fmt"
	"strconv"
	"time"

	"github.com/artpar/dockwrkr/internal/core/domain"
	"github.com/dustin/go-humanize"
)

// Empty is the value shown for an unknown or absent field.
const Empty = "-"

// Row is one line of the status report.
type Row struct {
	Name   string
	ID     string
	PID    string
	IP     string
	Uptime string
	Error  string
}

// Columns lists the row headers in display order.
var Columns = []string{"NAME", "CONTAINER", "PID", "IP", "UPTIME", "EXIT"}

// Fields returns the row values in Columns order.
func (r Row) Fields() []string {
	return []string{r.Name, r.ID, r.PID, r.IP, r.Uptime, r.Error}
}

// Rows builds exactly one row per requested name, in the order given.
// Containers missing from state get a placeholder row.
func Rows(names []string, state domain.StateMap, now time.Time) []Row {
	rows := make([]Row, 0, len(names))
	for _, name := range names {
		rows = append(rows, RowOf(name, state.StatusOf(name), now))
	}
	return rows
}

// RowOf renders a single status.
func RowOf(name string, s domain.ContainerStatus, now time.Time) Row {
	row := Row{
		Name:   name,
		ID:     orEmpty(s.ShortID()),
		PID:    Empty,
		IP:     orEmpty(s.IP),
		Uptime: Empty,
		Error:  Empty,
	}
	if s.PID > 0 {
		row.PID = strconv.Itoa(s.PID)
	}
	if s.Running && s.StartedAt != nil {
		row.Uptime = humanize.RelTime(*s.StartedAt, now, "ago", "from now")
	}
	if !s.Running {
		row.Error = ErrorLabel(s)
	}
	return row
}

// ErrorLabel describes why a stopped container is not running.
func ErrorLabel(s domain.ContainerStatus) string {
	switch {
	case s.Running:
		return Empty
	case s.Error != "":
		return s.Error
	case s.ExitCode != nil:
		return fmt.Sprintf("exited (%d)", *s.ExitCode)
	default:
		return Empty
	}
}

func orEmpty(v string) string {
	if v == "" {
		return Empty
	}
	return v
}
