package sampler

import (
	"time"
)

func (s *Sampler) SetClock(now func() time.Time) {
	s.now = now
}
