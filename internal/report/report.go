// Package report turns a finished job table into the execution report.
package report

import (
	"fmt"
	"io"

	"github.com/me/slicer/pkg/model"
)

// MaxPlausibleTurnaround is the largest completion-minus-submission value
// taken at face value. Anything negative or larger falls back to SlicesRan.
const MaxPlausibleTurnaround = 60000

// Row is one job's line in the report. Times are in ticks.
type Row struct {
	Name       string `json:"name"`
	PID        int    `json:"pid"`
	Turnaround int    `json:"turnaround"`
	Wait       int    `json:"wait"`
}

// Summary aggregates a report.
type Summary struct {
	Jobs           int     `json:"jobs"`
	MeanTurnaround float64 `json:"mean_turnaround"`
	MeanWait       float64 `json:"mean_wait"`
}

// Build computes one Row per job in insertion order. It does not modify jobs.
func Build(jobs []model.Job) []Row {
	rows := make([]Row, 0, len(jobs))
	for _, j := range jobs {
		rows = append(rows, Row{
			Name:       j.Name,
			PID:        j.PID,
			Turnaround: turnaround(j),
			Wait:       j.SlicesWaited,
		})
	}
	return rows
}

func turnaround(j model.Job) int {
	if j.State != model.JobStateDone {
		return j.SlicesRan
	}
	t := j.CompletionSlice - j.SubmissionSlice
	if t < 0 || t > MaxPlausibleTurnaround {
		return j.SlicesRan
	}
	return t
}

// Summarize returns the job count and mean turnaround and wait.
func Summarize(rows []Row) Summary {
	s := Summary{Jobs: len(rows)}
	if len(rows) == 0 {
		return s
	}
	var ta, wait int
	for _, r := range rows {
		ta += r.Turnaround
		wait += r.Wait
	}
	s.MeanTurnaround = float64(ta) / float64(len(rows))
	s.MeanWait = float64(wait) / float64(len(rows))
	return s
}

// Write prints the execution report table followed by a summary line.
func Write(w io.Writer, rows []Row) error {
	if _, err := fmt.Fprintf(w, "\nExecution Report:\n%-20s  %-10s  %-20s  %-20s\n",
		"Name", "PID", "Turnaround Time", "Wait Time"); err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "%-20s  %-10d  %-20s  %-20s\n",
			r.Name, r.PID, ticks(r.Turnaround), ticks(r.Wait)); err != nil {
			return err
		}
	}
	s := Summarize(rows)
	if s.Jobs == 0 {
		_, err := fmt.Fprintln(w, "(no jobs)")
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d job(s), mean turnaround %.2f TSLICES, mean wait %.2f TSLICES\n",
		s.Jobs, s.MeanTurnaround, s.MeanWait)
	return err
}

func ticks(n int) string {
	return fmt.Sprintf("%d TSLICES", n)
}
