package scheduler

import "github.com/me/slicer/internal/jobtable"

// admit drains the admission queue. Each path is launched into a paused
// process and recorded as a READY job. A full table or a failed launch drops
// the submission and the queue keeps draining.
func (l *Loop) admit(t *jobtable.Table) {
	for {
		path, ok := t.Admission().Pop()
		if !ok {
			return
		}

		if t.Full() {
			l.dropped.Add(1)
			l.logger.Debug("submission dropped (job table full)",
				"path", path,
				"capacity", t.Capacity(),
			)
			continue
		}

		pid, err := l.procs.Launch(path)
		if err != nil {
			l.launchFailed.Add(1)
			l.logger.Warn("launch failed", "path", path, "error", err)
			continue
		}

		idx, err := t.Add(pid, path)
		if err != nil {
			// Fullness was checked above; do not leak the stopped process.
			l.logger.Error("record job", "path", path, "pid", pid, "error", err)
			if kerr := l.procs.Kill(pid); kerr != nil {
				l.logger.Warn("kill unrecorded process", "pid", pid, "error", kerr)
			}
			continue
		}
		l.admitted.Add(1)
		l.logger.Info("job admitted",
			"index", idx,
			"pid", pid,
			"path", path,
			"slice", t.CurrentSlice(),
		)
	}
}
