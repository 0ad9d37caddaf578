package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	name  string
	phase Phase
	log   *[]string
}

func (r recorder) Phase() Phase         { return r.phase }
func (r recorder) Update(time.Duration) { *r.log = append(*r.log, r.name) }

func TestRunnerOrdersByPhaseStable(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(recorder{"cleanup", PhaseCleanup, &log})
	r.Register(recorder{"think-a", PhaseThink, &log})
	r.Register(recorder{"clock", PhaseClock, &log})
	r.Register(recorder{"think-b", PhaseThink, &log})
	r.Register(recorder{"step", PhaseStep, &log})

	r.Tick(time.Second)
	assert.Equal(t, []string{"clock", "think-a", "think-b", "step", "cleanup"}, log)
	assert.Equal(t, 5, r.Len())

	log = nil
	r.TickPhase(PhaseThink, time.Second)
	assert.Equal(t, []string{"think-a", "think-b"}, log)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "think", PhaseThink.String())
	assert.Equal(t, "unknown", Phase(42).String())
}
