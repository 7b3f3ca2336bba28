package recommendations

// Progress event kinds.
const (
	ProgressStarted  = "started"
	ProgressChange   = "change"
	ProgressFinished = "finished"
)

// Progress reports one step of an optimization run.
type Progress struct {
	RunID      string     `json:"run_id"`
	Kind       string     `json:"kind"`
	Goal       Goal       `json:"goal"`
	Change     *Change    `json:"change,omitempty"`
	StopReason StopReason `json:"stop_reason,omitempty"`

	// Overall is the overall score of the current composition.
	Overall int `json:"overall"`
}

func (s *session) report(p Progress) {
	if s.o.progress == nil {
		return
	}
	p.RunID = s.runID
	p.Goal = s.goal
	s.o.progress(p)
}
