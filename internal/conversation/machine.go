package conversation

import (
	"strings"
	"time"

	"motomaster/internal/domain"
	"motomaster/internal/dto"
)

type EffectKind int

const (
	// EffectDeleteMessage removes the user's message from the chat.
	EffectDeleteMessage EffectKind = iota
	// EffectPlaceOrder records the collected order.
	EffectPlaceOrder
)

type Effect struct {
	Kind      EffectKind
	ChatID    int64
	MessageID int64
	Order     dto.PlaceOrderRequest
}

// Outcome is the result of one transition. Next is nil when the conversation
// ended or never started; State is the state reached, terminal ones included.
type Outcome struct {
	Next    *Session
	State   State
	Replies []Reply
	Effects []Effect
}

// Transition computes the next session, replies and effects for ev. It has no
// side effects. A nil session means Idle.
func Transition(s *Session, ev Event, now time.Time) Outcome {
	if ev.Kind == EventCommand {
		return onCommand(s, ev, now)
	}
	return onText(s, ev, now)
}

func onCommand(s *Session, ev Event, now time.Time) Outcome {
	state := s.stateOrIdle()

	switch ev.Command {
	case CommandStart:
		return Outcome{
			Next:    newSession(ev.ChatID, now),
			State:   StateChoosingService,
			Replies: []Reply{replyWelcome},
		}
	case CommandCancel:
		if state == StateIdle {
			return unchanged(s, now, replyIdleHint)
		}
		return Outcome{State: StateCancelled, Replies: []Reply{replyCancelled}}
	}

	return unchanged(s, now, promptFor(state))
}

func onText(s *Session, ev Event, now time.Time) Outcome {
	switch s.stateOrIdle() {
	case StateChoosingService:
		service, ok := domain.ServiceByLabel(ev.Text)
		if !ok {
			return unchanged(s, now, replyInvalidService)
		}
		return advance(s, now, StateEnteringName, replyAskName, func(next *Session) {
			next.ServiceCode = service.Code
		})

	case StateEnteringName:
		name := strings.TrimSpace(ev.Text)
		if name == "" {
			return unchanged(s, now, replyAskName)
		}
		return advance(s, now, StateEnteringPhone, replyAskPhone, func(next *Session) {
			next.DisplayName = name
		})

	case StateEnteringPhone:
		phone := strings.TrimSpace(ev.Text)
		if phone == "" {
			return unchanged(s, now, replyAskPhone)
		}
		return advance(s, now, StateEnteringCredential, replyAskCredential, func(next *Session) {
			next.Phone = phone
		})

	case StateEnteringCredential:
		deleteEcho := Effect{Kind: EffectDeleteMessage, ChatID: ev.ChatID, MessageID: ev.MessageID}
		if strings.TrimSpace(ev.Text) == "" {
			out := unchanged(s, now, replyAskCredential)
			out.Effects = []Effect{deleteEcho}
			return out
		}
		return Outcome{
			State: StateCompleted,
			Effects: []Effect{
				deleteEcho,
				{
					Kind:   EffectPlaceOrder,
					ChatID: ev.ChatID,
					Order: dto.PlaceOrderRequest{
						Customer: dto.CustomerIdentity{
							DisplayName: s.DisplayName,
							Phone:       s.Phone,
							Credential:  ev.Text,
						},
						ServiceCode: s.ServiceCode,
					},
				},
			},
		}
	}

	return unchanged(s, now, replyIdleHint)
}

func advance(s *Session, now time.Time, to State, prompt Reply, set func(next *Session)) Outcome {
	next := s.with(func(next *Session) {
		set(next)
		next.State = to
	}, now)
	return Outcome{Next: next, State: to, Replies: []Reply{prompt}}
}

func unchanged(s *Session, now time.Time, reply Reply) Outcome {
	if s == nil {
		return Outcome{State: StateIdle, Replies: []Reply{reply}}
	}
	return Outcome{Next: s.with(func(*Session) {}, now), State: s.State, Replies: []Reply{reply}}
}
