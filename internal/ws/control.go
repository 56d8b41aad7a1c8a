package ws

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/coreman2200/funtimes-ledstrip/internal/animator"
	"github.com/coreman2200/funtimes-ledstrip/internal/command"
	diag "github.com/coreman2200/funtimes-ledstrip/internal/diagnostics"
	"github.com/coreman2200/funtimes-ledstrip/internal/errcode"
	"github.com/coreman2200/funtimes-ledstrip/internal/schedule"
)

// Request is a control message. A frame that is not a JSON object is taken
// as a bare command line.
type Request struct {
	ID      string `json:"id,omitempty"`
	Command string `json:"command"`
}

// Result answers one Request.
type Result struct {
	ID      string `json:"id,omitempty"`
	OK      bool   `json:"ok"`
	Command string `json:"command,omitempty"` // as understood
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HandleControlWS accepts command lines and submits them to the animator,
// replying to each with a Result.
func (s *State) HandleControlWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("control upgrade")
		return
	}
	id, ok := s.openSession("control", conn)
	if !ok {
		return
	}
	defer s.closeSession(id, conn)

	limiter := rate.NewLimiter(rate.Limit(s.opts.RatePerSec), s.opts.Burst)
	if s.write(conn, Message{Type: "hello", Session: id, Usage: command.Usage + scheduleUsage}) != nil {
		return
	}
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		req := decodeRequest(data)

		var (
			done    string
			entries []schedule.Entry
		)
		if limiter.Allow() {
			done, entries, err = s.execute(req)
		} else {
			err = errcode.New(errcode.Busy, "ws.control", "rate limited")
		}
		res := &Result{ID: req.ID, OK: err == nil, Command: done}
		if err != nil {
			res.Code, res.Error = string(errcode.Of(err)), err.Error()
			s.opts.Diags.Push(diag.FromError("control "+id, err))
		}
		if err := s.write(conn, Message{Type: "result", Session: id, Result: res, Schedules: entries}); err != nil {
			return
		}
	}
}

func decodeRequest(data []byte) Request {
	var req Request
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") && json.Unmarshal(data, &req) == nil {
		return req
	}
	return Request{Command: trimmed}
}

// execute runs one control line and describes what it did. Schedule lines
// also return the resulting schedule list.
func (s *State) execute(req Request) (string, []schedule.Entry, error) {
	if f := strings.Fields(req.Command); len(f) > 0 && strings.EqualFold(f[0], "schedule") {
		return s.schedule(f[1:])
	}
	s.rndMu.Lock()
	cmd, err := command.Parse(req.Command, s.opts.Resolver, s.rnd)
	s.rndMu.Unlock()
	if err != nil {
		return "", nil, err
	}
	if err := s.opts.Animator.Submit(cmd); err != nil {
		return "", nil, err
	}
	return cmd.String(), nil, nil
}

const scheduleUsage = `
schedule list
schedule remove <id>`

func (s *State) schedule(args []string) (string, []schedule.Entry, error) {
	const op = "ws.schedule"
	if s.opts.Schedules == nil {
		return "", nil, errcode.New(errcode.Unsupported, op, "no scheduler")
	}
	switch {
	case len(args) == 1 && strings.EqualFold(args[0], "list"):
		return "schedule list", s.opts.Schedules.Entries(), nil

	case len(args) == 2 && strings.EqualFold(args[0], "remove"):
		id, err := strconv.Atoi(args[1])
		if err != nil {
			return "", nil, errcode.New(errcode.InvalidParams, op, "bad schedule id "+strconv.Quote(args[1]))
		}
		if err := s.opts.Schedules.Remove(id); err != nil {
			return "", nil, err
		}
		if s.opts.Persist != nil {
			if err := s.opts.Persist(); err != nil {
				return "", nil, fmt.Errorf("schedule %d removed but not saved: %w", id, err)
			}
		}
		return "schedule remove " + args[1], s.opts.Schedules.Entries(), nil
	}
	return "", nil, errcode.New(errcode.InvalidParams, op, "use 'schedule list' or 'schedule remove <id>'")
}

var _ Animator = (*animator.Animator)(nil)
var _ Schedules = (*schedule.Scheduler)(nil)
