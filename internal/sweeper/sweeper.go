// Package sweeper periodically evicts expired leases so a crashed or
// unreachable agent cannot hold a resource past its TTL forever.
package sweeper

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/waythor-lab/klock/internal/facade"
	"github.com/waythor-lab/klock/internal/metrics"
)

// Sweeper runs EvictExpired on a fixed schedule via robfig/cron.
type Sweeper struct {
	cron   *cron.Cron
	client *facade.Client
	log    *logrus.Logger
	m      *metrics.Metrics
	entry  cron.EntryID
}

// New builds a Sweeper that evicts expired leases from client every
// interval. m may be nil, disabling eviction-count metrics.
func New(client *facade.Client, interval string, log *logrus.Logger, m *metrics.Metrics) (*Sweeper, error) {
	c := cron.New(cron.WithSeconds())
	s := &Sweeper{cron: c, client: client, log: log, m: m}

	spec, err := intervalToSpec(interval)
	if err != nil {
		return nil, err
	}

	id, err := c.AddFunc(spec, s.sweep)
	if err != nil {
		return nil, fmt.Errorf("schedule sweep: %w", err)
	}
	s.entry = id

	return s, nil
}

// Start begins running the schedule in the background.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for any in-flight sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) sweep() {
	count := s.client.EvictExpired()
	if s.m != nil {
		s.m.RecordEviction(count)
	}
	if count > 0 && s.log != nil {
		s.log.WithField("evicted", count).Info("swept expired leases")
	}
}

// intervalToSpec turns a Go duration string ("5s") into a cron "@every"
// spec, since robfig/cron has no native time.Duration entry point.
func intervalToSpec(interval string) (string, error) {
	if interval == "" {
		return "", fmt.Errorf("sweep interval must not be empty")
	}
	return "@every " + interval, nil
}
