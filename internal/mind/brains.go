package mind

// Outcome records how a finished goal ended.
type Outcome struct {
	Kind    GoalKind
	Success bool
}

// Memory is a bounded ring of recent outcomes.
type Memory struct {
	events []Outcome
	next   int
	full   bool
}

func NewMemory(limit int) *Memory {
	if limit < 1 {
		limit = 1
	}
	return &Memory{events: make([]Outcome, limit)}
}

func (m *Memory) Remember(o Outcome) {
	m.events[m.next] = o
	m.next = (m.next + 1) % len(m.events)
	if m.next == 0 {
		m.full = true
	}
}

// Recall returns up to n outcomes, most recent first.
func (m *Memory) Recall(n int) []Outcome {
	size := m.next
	if m.full {
		size = len(m.events)
	}
	if n > size {
		n = size
	}
	out := make([]Outcome, 0, n)
	for i := 1; i <= n; i++ {
		idx := (m.next - i + len(m.events)) % len(m.events)
		out = append(out, m.events[idx])
	}
	return out
}

// Failures counts failed outcomes among the last n.
func (m *Memory) Failures(n int) int {
	count := 0
	for _, o := range m.Recall(n) {
		if !o.Success {
			count++
		}
	}
	return count
}

const memoryLimit = 32

// Brains bundles the goal queue with the bits of state goal interpreters
// need between ticks.
type Brains struct {
	Goals *Cortex
	Mem   *Memory

	timeRef int64
}

func NewBrains() *Brains {
	return &Brains{Goals: NewCortex(), Mem: NewMemory(memoryLimit)}
}

// IntendWait queues a wait of the given number of think cycles.
func (b *Brains) IntendWait(cycles, priority int) {
	b.Goals.Intend(WaitCycles(priority, cycles))
}

// CountCycles burns one cycle of the current wait goal and reports whether
// the wait is over.
func (b *Brains) CountCycles() bool {
	done := true
	b.Goals.tickCurrent(func(g *Goal) {
		if g.Kind != Wait || g.Cycles <= 0 {
			return
		}
		g.Cycles--
		done = false
	})
	return done
}

// Finish completes the current goal and records the outcome.
func (b *Brains) Finish(success bool) bool {
	g, ok := b.Goals.Current()
	if !ok {
		return false
	}
	b.Mem.Remember(Outcome{Kind: g.Kind, Success: success})
	return b.Goals.FinishCurrent()
}

// SaveTime stores a simulated-time reference in total minutes.
func (b *Brains) SaveTime(totalMinutes int64) { b.timeRef = totalMinutes }

func (b *Brains) TimeRef() int64 { return b.timeRef }
