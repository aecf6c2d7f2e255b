package tracker

import "time"

type writeKind int

const (
	writeCreate writeKind = iota
	writeAutosave
	writeFinalize
	writeDiscard
)

func (k writeKind) String() string {
	switch k {
	case writeCreate:
		return "create"
	case writeAutosave:
		return "autosave"
	case writeFinalize:
		return "finalize"
	case writeDiscard:
		return "discard"
	}
	return "unknown"
}

// writeJob is one pending store write for a session.
type writeJob struct {
	kind            writeKind
	durationSeconds int64
	earningsCents   int64
	at              time.Time
	endedAt         time.Time
}

// writeQueue is a per-session FIFO. Queued autosaves only carry running
// totals, so a newer autosave or a finalize supersedes any autosave still
// waiting behind the in-flight write.
type writeQueue struct {
	jobs []writeJob
}

func (q *writeQueue) push(j writeJob) {
	if j.kind == writeAutosave || j.kind == writeFinalize {
		kept := q.jobs[:0]
		for _, p := range q.jobs {
			if p.kind != writeAutosave {
				kept = append(kept, p)
			}
		}
		q.jobs = kept
	}
	q.jobs = append(q.jobs, j)
}

func (q *writeQueue) pop() (writeJob, bool) {
	if len(q.jobs) == 0 {
		return writeJob{}, false
	}
	j := q.jobs[0]
	q.jobs = q.jobs[1:]
	return j, true
}

// clear drops every pending write and reports how many were dropped.
func (q *writeQueue) clear() int {
	n := len(q.jobs)
	q.jobs = nil
	return n
}

func (q *writeQueue) len() int {
	return len(q.jobs)
}
