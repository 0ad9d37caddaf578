// Package observe publishes read-only snapshots of the simulation for debug
// overlays and records them for replay.
package observe

// AgentView is what an overlay needs to draw one agent and its intention.
type AgentView struct {
	ID        uint64      `json:"id"`
	Name      string      `json:"name"`
	Archetype string      `json:"archetype"`
	Routine   string      `json:"routine"`
	Cell      [2]uint32   `json:"cell"`
	Draw      [2]float64  `json:"draw"`
	Target    *[2]uint32  `json:"target,omitempty"`
	Path      [][2]uint32 `json:"path,omitempty"`
	Stuck     bool        `json:"stuck,omitempty"`
	Goal      string      `json:"goal,omitempty"`
	Carried   []uint64    `json:"carried,omitempty"`
	Visible   int         `json:"visible"`
	Defects   int         `json:"defects,omitempty"`
}

type ItemView struct {
	ID    uint64     `json:"id"`
	Type  string     `json:"type"`
	Draw  [2]float64 `json:"draw"`
	Taken bool       `json:"taken,omitempty"`
}

type ObjectView struct {
	ID     uint64    `json:"id"`
	Type   string    `json:"type"`
	Cell   [2]uint32 `json:"cell"`
	UsedBy uint64    `json:"used_by,omitempty"`
}

type StatsView struct {
	Successes int64 `json:"successes"`
	Failures  int64 `json:"failures"`
	Consumed  int64 `json:"consumed"`
}

// Snapshot is one frame of the world.
type Snapshot struct {
	RunID   string       `json:"run_id"`
	Tick    uint64       `json:"tick"`
	Day     int          `json:"day"`
	Time    string       `json:"time"`
	Agents  []AgentView  `json:"agents"`
	Items   []ItemView   `json:"items"`
	Objects []ObjectView `json:"objects"`
	Stats   StatsView    `json:"stats"`
}
