package protocol

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Handler wraps a Machine for callers that want channel plumbing
// instead of driving the event loop themselves. It serializes all
// access to the machine, routes outbound messages to a channel the
// transport can drain and surfaces the remaining effects on a second
// channel. The machine itself stays pure; the handler is optional.
type Handler struct {
	machine *Machine
	mtx     sync.Mutex

	Log zerolog.Logger

	out     chan []byte
	effects chan Effect
	done    bool
	err     error
}

// NewHandler wraps machine. The logger is enriched with the swap id and
// role; pass zerolog.Nop() to silence it.
func NewHandler(machine *Machine, log zerolog.Logger) *Handler {
	return &Handler{
		machine: machine,
		Log: log.With().
			Stringer("swap", machine.SwapID()).
			Stringer("role", machine.Role()).
			Logger(),
		out:     make(chan []byte, 8),
		effects: make(chan Effect, 8),
	}
}

// Listen returns the channel of serialized outbound messages. It is
// closed once the swap reaches a terminal state.
func (h *Handler) Listen() <-chan []byte {
	return h.out
}

// Effects returns the channel of non-message effects the caller must
// execute. It is closed once the swap reaches a terminal state.
func (h *Handler) Effects() <-chan Effect {
	return h.effects
}

// Start feeds the start event, emitting the parameter commitment.
func (h *Handler) Start() error {
	return h.Signal(Start{})
}

// Accept delivers one serialized inbound message.
func (h *Handler) Accept(data []byte) error {
	msg := &Message{}
	if err := msg.UnmarshalBinary(data); err != nil {
		h.Log.Warn().Err(err).Msg("rejected inbound message")
		return err
	}
	return h.Signal(MessageReceived{Message: msg})
}

// Signal feeds one event into the machine and executes the channel
// plumbing for its effects.
func (h *Handler) Signal(event Event) error {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if h.done {
		return fmt.Errorf("protocol: swap already finished in state %s", h.machine.State())
	}

	state, effects, err := h.machine.Step(event)
	if err != nil {
		h.Log.Error().Err(err).Stringer("state", state).Msg("step failed")
		h.err = err
		h.stop()
		return err
	}
	for _, effect := range effects {
		switch e := effect.(type) {
		case SendMessage:
			data, err := e.Message.MarshalBinary()
			if err != nil {
				h.err = err
				h.stop()
				return err
			}
			h.Log.Debug().Stringer("type", e.Message.Type).Msg("sending message")
			h.out <- data
		default:
			h.Log.Debug().Type("effect", effect).Msg("emitting effect")
			h.effects <- effect
		}
	}
	h.Log.Info().Stringer("state", state).Msg("advanced")
	if state.Terminal() {
		h.stop()
	}
	return nil
}

// State returns the machine's current state.
func (h *Handler) State() State {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	return h.machine.State()
}

// Result returns the terminal state once the swap has finished.
func (h *Handler) Result() (State, error) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if !h.done {
		return h.machine.State(), errors.New("protocol: not finished")
	}
	return h.machine.State(), h.err
}

// stop closes both channels; the caller must hold the mutex.
func (h *Handler) stop() {
	if h.done {
		return
	}
	h.done = true
	close(h.out)
	close(h.effects)
}
