// Package schedule submits animation commands on cron schedules.
package schedule

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-ledstrip/internal/animator"
	"github.com/coreman2200/funtimes-ledstrip/internal/command"
	"github.com/coreman2200/funtimes-ledstrip/internal/config"
	"github.com/coreman2200/funtimes-ledstrip/internal/diagnostics"
	"github.com/coreman2200/funtimes-ledstrip/internal/errcode"
)

// Submitter is the producer side of the animator queue.
type Submitter interface {
	Submit(cmd animator.Command) error
}

// Entry describes one installed schedule.
type Entry struct {
	ID      int       `json:"id"`
	Name    string    `json:"name,omitempty"`
	Spec    string    `json:"spec"`
	Command string    `json:"command"`
	Next    time.Time `json:"next"`
}

type Scheduler struct {
	cron  *cron.Cron
	sub   Submitter
	res   command.Resolver
	diags *diagnostics.Log
	log   zerolog.Logger

	mu    sync.RWMutex
	store map[cron.EntryID]config.Schedule

	rndMu sync.Mutex
	rnd   *rand.Rand
}

// New builds a stopped scheduler. Specs take a leading seconds field.
// diags may be nil.
func New(sub Submitter, res command.Resolver, diags *diagnostics.Log) *Scheduler {
	return &Scheduler{
		cron:  cron.New(cron.WithSeconds()),
		sub:   sub,
		res:   res,
		diags: diags,
		log:   log.With().Str("component", "schedule").Logger(),
		store: make(map[cron.EntryID]config.Schedule),
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Add installs a schedule. The command is parsed up front so a typo fails
// here rather than every time the schedule fires.
func (s *Scheduler) Add(sc config.Schedule) (int, error) {
	if _, err := s.parse(sc.Command); err != nil {
		return 0, fmt.Errorf("schedule %q: %w", sc.Command, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := s.cron.AddFunc(sc.Spec, func() { s.execute(sc) })
	if err != nil {
		return 0, errcode.Wrap(errcode.InvalidParams, "schedule.Add", fmt.Errorf("spec %q: %w", sc.Spec, err))
	}
	s.store[id] = sc
	s.log.Info().Int("id", int(id)).Str("spec", sc.Spec).Str("command", sc.Command).Msg("schedule added")
	return int(id), nil
}

// Remove uninstalls a schedule; unknown ids are not_found.
func (s *Scheduler) Remove(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	eid := cron.EntryID(id)
	if _, ok := s.store[eid]; !ok {
		return errcode.New(errcode.NotFound, "schedule.Remove", fmt.Sprintf("no schedule %d", id))
	}
	s.cron.Remove(eid)
	delete(s.store, eid)
	return nil
}

// Entries lists installed schedules by id.
func (s *Scheduler) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.store))
	for id, sc := range s.store {
		out = append(out, Entry{
			ID:      int(id),
			Name:    sc.Name,
			Spec:    sc.Spec,
			Command: sc.Command,
			Next:    s.cron.Entry(id).Next,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Run fires schedules until ctx is done, then waits for running jobs.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	s.log.Info().Int("schedules", len(s.Entries())).Msg("scheduler started")
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
	return nil
}

func (s *Scheduler) parse(line string) (animator.Command, error) {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	return command.Parse(line, s.res, s.rnd)
}

func (s *Scheduler) execute(sc config.Schedule) {
	cmd, err := s.parse(sc.Command)
	if err == nil {
		err = s.sub.Submit(cmd)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("command", sc.Command).Msg("scheduled command failed")
		if s.diags != nil {
			s.diags.Push(diagnostics.FromError("schedule "+sc.Name, err))
		}
		return
	}
	s.log.Debug().Str("command", sc.Command).Msg("scheduled command submitted")
}
