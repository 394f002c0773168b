package orchestrator

import "strings"

// Phase is one state of the round-driving state machine:
//
//	AwaitingAgent → AwaitingSession → StreamingRound
//	      (→ ExecutingTools → StreamingRound)* → Finalizing → Done
//
// There is no error phase; failures convert to terminal events and the
// machine still reaches Done.
type Phase int

const (
	PhaseAwaitingAgent Phase = iota
	PhaseAwaitingSession
	PhaseStreamingRound
	PhaseExecutingTools
	PhaseFinalizing
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingAgent:
		return "awaiting_agent"
	case PhaseAwaitingSession:
		return "awaiting_session"
	case PhaseStreamingRound:
		return "streaming_round"
	case PhaseExecutingTools:
		return "executing_tools"
	case PhaseFinalizing:
		return "finalizing"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// pendingCall accumulates one mid-stream function call. itemID is the
// streaming identity used to match argument events; callID correlates the
// eventual tool output.
type pendingCall struct {
	itemID string
	callID string
	name   string
	args   string
}

// roundState carries the mutable state of one client request across rounds.
type roundState struct {
	phase     Phase
	round     int
	roundText strings.Builder
	allText   strings.Builder
	pending   []*pendingCall
	completed *Response
}

// findPending matches a pending call by its streaming item id. The provider
// addresses argument events by item id, not call id, so this is a linear
// scan over the calls collected this round.
func (s *roundState) findPending(itemID string) *pendingCall {
	for _, pc := range s.pending {
		if pc.itemID == itemID {
			return pc
		}
	}
	return nil
}

// resetRound clears per-round accumulation before a continuation round.
// The all-rounds text buffer survives.
func (s *roundState) resetRound() {
	s.roundText.Reset()
	s.pending = nil
	s.completed = nil
}
