// Package protocol maps request lines onto arbiter operations and wraps
// each outcome in a response envelope.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/edged/internal/arbiter"
	"github.com/coreman2200/edged/internal/ledcolor"
)

// maxLockMillis is the longest lock, in milliseconds, a time.Duration holds.
const maxLockMillis = float64(math.MaxInt64 / int64(time.Millisecond))

var (
	ErrParse          = errors.New("unable to parse JSON payload")
	ErrUnknownCommand = errors.New("unknown or missing command")
)

// Response is the envelope written back for every request.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

type handler func(raw []byte) (interface{}, error)

// Router dispatches the six commands to an Arbiter.
type Router struct {
	arb      *arbiter.Arbiter
	log      zerolog.Logger
	dispatch map[string]handler
}

func NewRouter(arb *arbiter.Arbiter, log zerolog.Logger) *Router {
	r := &Router{arb: arb, log: log}
	r.dispatch = map[string]handler{
		"setColors":   r.setColors,
		"getColors":   r.getColors,
		"requestLock": r.requestLock,
		"releaseLock": r.releaseLock,
		"setMode":     r.setMode,
		"getMode":     r.getMode,
	}
	return r
}

// Handle runs one request line and returns its envelope.
func (r *Router) Handle(line []byte) Response {
	data, err := r.route(line)
	if err != nil {
		r.log.Debug().Err(err).Msg("command failed")
		return Response{Success: false, Message: err.Error()}
	}
	return Response{Success: true, Data: data}
}

// HandleLine is Handle with the envelope encoded as JSON (no terminator).
func (r *Router) HandleLine(line []byte) []byte {
	b, err := json.Marshal(r.Handle(line))
	if err != nil {
		b, _ = json.Marshal(Response{Success: false, Message: err.Error()})
	}
	return b
}

func (r *Router) route(line []byte) (interface{}, error) {
	var req struct {
		Command json.RawMessage `json:"command"`
	}
	if err := json.Unmarshal(line, &req); err != nil {
		return nil, ErrParse
	}
	var name string
	if len(req.Command) == 0 || json.Unmarshal(req.Command, &name) != nil {
		return nil, ErrUnknownCommand
	}
	h, ok := r.dispatch[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	return h(line)
}

type colorsResult struct {
	Colors []ledcolor.Color `json:"colors"`
}

func (r *Router) setColors(raw []byte) (interface{}, error) {
	var args struct {
		Colors *[]ledcolor.Color `json:"colors"`
		Mode   *string           `json:"mode"`
		Lock   *string           `json:"lock"`
	}
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	if args.Colors == nil {
		return nil, fmt.Errorf("%w: no colors parameter was specified", arbiter.ErrValidation)
	}
	m, err := modeOrDefault(args.Mode)
	if err != nil {
		return nil, err
	}
	var token string
	if args.Lock != nil {
		token = *args.Lock
		if token == "" {
			return nil, fmt.Errorf("%w: %q", arbiter.ErrUnknownLock, token)
		}
	}
	colors, err := r.arb.SetColors(*args.Colors, token, m)
	if err != nil {
		return nil, err
	}
	return colorsResult{Colors: colors}, nil
}

func (r *Router) getColors(raw []byte) (interface{}, error) {
	return colorsResult{Colors: r.arb.GetColors()}, nil
}

func (r *Router) requestLock(raw []byte) (interface{}, error) {
	var args struct {
		Duration *float64 `json:"duration"`
		Lights   []int    `json:"lights"`
		Mode     *string  `json:"mode"`
	}
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	if args.Duration == nil {
		return nil, fmt.Errorf("%w: no lock duration specified", arbiter.ErrValidation)
	}
	if *args.Duration > maxLockMillis {
		return nil, fmt.Errorf("%w: lock duration too large", arbiter.ErrValidation)
	}
	if len(args.Lights) == 0 {
		return nil, fmt.Errorf("%w: no light lock set specified", arbiter.ErrValidation)
	}
	m, err := modeOrDefault(args.Mode)
	if err != nil {
		return nil, err
	}
	l, err := r.arb.RequestLock(args.Lights, time.Duration(*args.Duration*float64(time.Millisecond)), m)
	if err != nil {
		return nil, err
	}
	return struct {
		Lock     string  `json:"lock"`
		Lights   []int   `json:"lights"`
		Duration float64 `json:"duration"`
	}{l.Token, args.Lights, *args.Duration}, nil
}

type lockResult struct {
	Lock string `json:"lock"`
}

func (r *Router) releaseLock(raw []byte) (interface{}, error) {
	var args struct {
		Lock *string `json:"lock"`
	}
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	if args.Lock == nil {
		return nil, fmt.Errorf("%w: no lock code specified", arbiter.ErrValidation)
	}
	if err := r.arb.ReleaseLock(*args.Lock); err != nil {
		return nil, err
	}
	return lockResult{Lock: *args.Lock}, nil
}

type modeResult struct {
	Mode arbiter.Mode `json:"mode"`
}

func (r *Router) setMode(raw []byte) (interface{}, error) {
	var args struct {
		Mode *string `json:"mode"`
	}
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	if args.Mode == nil {
		return nil, fmt.Errorf("%w: no mode specified", arbiter.ErrValidation)
	}
	m, err := arbiter.ParseMode(*args.Mode)
	if err != nil {
		return nil, err
	}
	return modeResult{Mode: r.arb.SetMode(m)}, nil
}

func (r *Router) getMode(raw []byte) (interface{}, error) {
	return modeResult{Mode: r.arb.Mode()}, nil
}

func decode(raw []byte, v interface{}) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", arbiter.ErrValidation, err)
	}
	return nil
}

func modeOrDefault(s *string) (arbiter.Mode, error) {
	if s == nil {
		return arbiter.Normal, nil
	}
	return arbiter.ParseMode(*s)
}
