package sampler

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/procfs"
	"github.com/sirupsen/logrus"

	"github.com/hedisam/brunosync/lib/chans"
	"github.com/hedisam/brunosync/server/internal/diagnostics"
)

const DefaultInterval = 2 * time.Second

// Reading is a raw process resource reading.
type Reading struct {
	PID int
	// CPUTime is the user and system time consumed since the process started.
	CPUTime   time.Duration
	RSS       uint64
	StartedAt time.Time
}

type Source interface {
	Read() (Reading, error)
}

// ProcSource reads the current process from /proc.
type ProcSource struct{}

func (ProcSource) Read() (Reading, error) {
	p, err := procfs.Self()
	if err != nil {
		return Reading{}, fmt.Errorf("open proc self: %w", err)
	}
	stat, err := p.Stat()
	if err != nil {
		return Reading{}, fmt.Errorf("read proc stat: %w", err)
	}
	start, err := stat.StartTime()
	if err != nil {
		return Reading{}, fmt.Errorf("read process start time: %w", err)
	}

	sec, frac := math.Modf(start)
	return Reading{
		PID:       p.PID,
		CPUTime:   time.Duration(stat.CPUTime() * float64(time.Second)),
		RSS:       uint64(stat.ResidentMemory()),
		StartedAt: time.Unix(int64(sec), int64(frac*float64(time.Second))),
	}, nil
}

type Store interface {
	SetResourceSample(sample diagnostics.ResourceSample)
}

// Sampler overwrites the store's resource sample on every tick. CPU usage is the share of one core used between two
// consecutive readings.
type Sampler struct {
	logger   *logrus.Logger
	source   Source
	store    Store
	interval time.Duration
	now      func() time.Time

	prev   Reading
	prevAt time.Time
}

func New(logger *logrus.Logger, source Source, store Store, interval time.Duration) *Sampler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sampler{
		logger:   logger,
		source:   source,
		store:    store,
		interval: interval,
		now:      time.Now,
	}
}

// Run samples once straight away and then on every tick until ctx is canceled.
func (s *Sampler) Run(ctx context.Context) {
	s.logger.WithField("interval", s.interval.String()).Info("Running resource sampler")

	s.tick()

	t := time.NewTicker(s.interval)
	defer t.Stop()
	for range chans.ReceiveOrDoneSeq(ctx, t.C) {
		s.tick()
	}
}

func (s *Sampler) tick() {
	sample, err := s.Sample()
	if err != nil {
		s.logger.WithError(err).Warn("Failed to sample process resources")
		return
	}
	s.store.SetResourceSample(sample)
}

// Sample takes a reading and turns it into a resource sample. It is not safe for concurrent use.
func (s *Sampler) Sample() (diagnostics.ResourceSample, error) {
	r, err := s.source.Read()
	if err != nil {
		return diagnostics.ResourceSample{}, err
	}
	now := s.now()

	var cpu float64
	if !s.prevAt.IsZero() && r.PID == s.prev.PID {
		if wall := now.Sub(s.prevAt); wall > 0 {
			cpu = float64(r.CPUTime-s.prev.CPUTime) / float64(wall) * 100
		}
	}
	s.prev, s.prevAt = r, now

	var uptime float64
	if !r.StartedAt.IsZero() {
		uptime = now.Sub(r.StartedAt).Seconds()
	}

	return diagnostics.ResourceSample{
		CPU:         math.Max(cpu, 0),
		Memory:      r.RSS,
		PID:         r.PID,
		Uptime:      uptime,
		LastUpdated: now.UTC(),
	}, nil
}
