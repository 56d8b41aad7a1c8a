package diagnostics

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-ledstrip/internal/errcode"
)

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

type Diagnostic struct {
	Time           time.Time      `json:"time"`
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

// FromError describes a rejected command or failed operation.
func FromError(source string, err error) Diagnostic {
	d := Diagnostic{
		Severity: Warn,
		Code:     "CMD." + string(errcode.Of(err)),
		Summary:  source + " failed",
		Detail:   err.Error(),
	}
	switch errcode.Of(err) {
	case errcode.NotFound:
		d.LikelyCauses = []string{"unknown strip, colour or action name", "LED index past the last strip"}
		d.SuggestedFixes = []string{"check the strip names in config.yaml", "send 'status <addr>' to list LEDs"}
	case errcode.InvalidParams:
		d.LikelyCauses = []string{"missing or malformed argument"}
		d.SuggestedFixes = []string{"periods are whole milliseconds", "colours are names, #RRGGBB or 0xRRGGBB"}
	case errcode.Busy:
		d.LikelyCauses = []string{"commands arriving faster than the animator tick drains them"}
		d.SuggestedFixes = []string{"slow the producer down or raise animator.queue_depth"}
	}
	var e *errcode.E
	if errors.As(err, &e) && e.Op != "" {
		d.Evidence = map[string]any{"op": e.Op}
	}
	return d
}

// Log keeps the most recent diagnostics and fans new ones out to
// subscribers. Slow subscribers miss entries rather than block Push.
type Log struct {
	mu     sync.Mutex
	recent []Diagnostic
	keep   int
	subs   map[chan Diagnostic]struct{}
}

func NewLog(keep int) *Log {
	if keep <= 0 {
		keep = 32
	}
	return &Log{keep: keep, subs: map[chan Diagnostic]struct{}{}}
}

func (l *Log) Push(d Diagnostic) {
	if d.Time.IsZero() {
		d.Time = time.Now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recent = append(l.recent, d)
	if len(l.recent) > l.keep {
		l.recent = append(l.recent[:0], l.recent[len(l.recent)-l.keep:]...)
	}
	for ch := range l.subs {
		select {
		case ch <- d:
		default:
		}
	}
}

// Recent returns the retained diagnostics, oldest first.
func (l *Log) Recent() []Diagnostic {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Diagnostic, len(l.recent))
	copy(out, l.recent)
	return out
}

// Subscribe returns a channel of new diagnostics and a function that ends
// the subscription and closes the channel.
func (l *Log) Subscribe(buffer int) (<-chan Diagnostic, func()) {
	ch := make(chan Diagnostic, buffer)
	l.mu.Lock()
	l.subs[ch] = struct{}{}
	l.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs, ch)
			l.mu.Unlock()
			close(ch)
		})
	}
}

// Hook turns warning and error log lines into diagnostics.
type Hook struct {
	Log *Log
}

func (h Hook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	var sev Severity
	switch {
	case level >= zerolog.ErrorLevel && level <= zerolog.PanicLevel:
		sev = Err
	case level == zerolog.WarnLevel:
		sev = Warn
	default:
		return
	}
	h.Log.Push(Diagnostic{Severity: sev, Code: "LOG." + level.String(), Summary: msg})
}
