package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/me/slicer/pkg/model"
)

const jobRowFormat = "%-6s  %-8s  %-8s  %-5s  %-6s  %-6s  %s\n"

// printSnapshot writes the job table as an aligned listing.
func printSnapshot(w io.Writer, snap *model.Snapshot) {
	fmt.Fprintf(w, "slice %d, %d/%d jobs, %d ready, %d pending admission (max %d)\n",
		snap.CurrentSlice, len(snap.Jobs), snap.Capacity, snap.ReadyLen, snap.AdmissionLen, snap.AdmissionCap)
	if len(snap.Jobs) == 0 {
		fmt.Fprintln(w, "No jobs.")
		return
	}
	fmt.Fprintf(w, jobRowFormat, "INDEX", "PID", "STATE", "RAN", "WAITED", "DONE@", "NAME")
	for _, j := range snap.Jobs {
		printJobRow(w, &j)
	}
}

func printJobRow(w io.Writer, j *model.Job) {
	done := "-"
	if j.State == model.JobStateDone {
		done = strconv.Itoa(j.CompletionSlice)
	}
	fmt.Fprintf(w, jobRowFormat,
		strconv.Itoa(j.Index), strconv.Itoa(j.PID), j.State,
		strconv.Itoa(j.SlicesRan), strconv.Itoa(j.SlicesWaited), done, j.Name)
}
