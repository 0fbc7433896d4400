package world

type WorldMetrics struct {
	Tick       uint64 `json:"tick"`
	LevelIndex int    `json:"level_index"`
	Phase      string `json:"phase"`
	RunID      string `json:"run_id"`

	Agents    int `json:"agents"`
	NonFrozen int `json:"non_frozen"`
	Clients   int `json:"clients"`

	MaxClones      int  `json:"max_clones"`
	MissingClones  int  `json:"missing_clones"`
	CloningAllowed bool `json:"cloning_allowed"`

	SpawnedTotal    uint64 `json:"spawned_total"`
	CompletedTotal  uint64 `json:"completed_total"`
	PromotedTotal   uint64 `json:"promoted_total"`
	ReloadTotal     uint64 `json:"reload_total"`
	AdvanceTotal    uint64 `json:"advance_total"`
	ReloadRaces     uint64 `json:"reload_races"`
	BulletsInFlight int    `json:"bullets_in_flight"`

	// Rejections counts rejected operations by fault code.
	Rejections map[string]uint64 `json:"rejections,omitempty"`

	QueueDepths QueueDepths `json:"queue_depths"`

	StepMS float64 `json:"step_ms"`
}

type QueueDepths struct {
	Inbox int `json:"inbox"`
	Join  int `json:"join"`
	Leave int `json:"leave"`
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	v := w.metrics.Load()
	if v == nil {
		return WorldMetrics{}
	}
	m, ok := v.(WorldMetrics)
	if !ok {
		return WorldMetrics{}
	}
	return m
}

func (w *World) publishMetrics(nextTick uint64, stepMS float64) {
	b := w.cloning.Budget()
	st := w.trigger.Stats()
	rej := make(map[string]uint64, len(w.rejections))
	for k, v := range w.rejections {
		rej[k] = v
	}
	w.metrics.Store(WorldMetrics{
		Tick:            nextTick,
		LevelIndex:      w.levelIndex,
		Phase:           w.trigger.Phase().String(),
		RunID:           w.runID,
		Agents:          w.roster.Count(),
		NonFrozen:       w.roster.NonFrozenCount(),
		Clients:         len(w.clients),
		MaxClones:       b.MaxClones,
		MissingClones:   b.MissingClones,
		CloningAllowed:  b.CloningAllowed,
		SpawnedTotal:    w.spawnedTotal,
		CompletedTotal:  w.completedTotal,
		PromotedTotal:   w.promotedTotal,
		ReloadTotal:     st.Reloads,
		AdvanceTotal:    st.Advances,
		ReloadRaces:     st.ReloadRaces,
		BulletsInFlight: w.hazards.Pool().InFlight(),
		Rejections:      rej,
		QueueDepths: QueueDepths{
			Inbox: len(w.inbox),
			Join:  len(w.join),
			Leave: len(w.leave),
		},
		StepMS: stepMS,
	})
}
