package server

import (
	"errors"
	"fmt"
)

// State is where a single upload sits in the conversion lifecycle.
type State int

const (
	Idle State = iota
	FileUploaded
	ConfiguringOptions
	Converting
	Succeeded
	Failed
)

var stateNames = map[State]string{
	Idle:               "idle",
	FileUploaded:       "file_uploaded",
	ConfiguringOptions: "configuring_options",
	Converting:         "converting",
	Succeeded:          "succeeded",
	Failed:             "failed",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var ErrTransition = errors.New("invalid state transition")

// Conversion only starts from an uploaded file, and a finished run only
// leaves through a new upload or a reset.
var transitions = map[State][]State{
	Idle:               {FileUploaded},
	FileUploaded:       {ConfiguringOptions, Converting, FileUploaded, Idle},
	ConfiguringOptions: {Converting, FileUploaded, Idle},
	Converting:         {Succeeded, Failed},
	Succeeded:          {FileUploaded, Idle},
	Failed:             {FileUploaded, Idle},
}

// Flow tracks one request's walk through the lifecycle. It is not shared
// between requests.
type Flow struct {
	state   State
	history []State
}

func NewFlow() *Flow {
	return &Flow{state: Idle, history: []State{Idle}}
}

func (f *Flow) State() State { return f.state }

// History lists every state visited, starting with Idle.
func (f *Flow) History() []State { return append([]State(nil), f.history...) }

func (f *Flow) To(next State) error {
	for _, s := range transitions[f.state] {
		if s == next {
			f.state = next
			f.history = append(f.history, next)
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrTransition, f.state, next)
}

// Finish moves a converting flow to Succeeded or Failed depending on err.
func (f *Flow) Finish(err error) error {
	if err != nil {
		return f.To(Failed)
	}
	return f.To(Succeeded)
}
