package session

// Reason names the operation that produced an Event.
type Reason string

const (
	ReasonRestored     Reason = "restored"
	ReasonLogin        Reason = "login"
	ReasonTokenSet     Reason = "token_set"
	ReasonTokenCleared Reason = "token_cleared"
	ReasonLogout       Reason = "logout"
)

// Event describes the session state right after a change.
type Event struct {
	Authenticated bool
	Reason        Reason
}

// Subscribe returns a channel of session events and a function that
// unsubscribes and closes it. Each subscriber buffers one event; an
// undelivered event is replaced by the newer one, so a slow reader always
// sees the latest state and writers never block.
func (s *Store) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 1)

	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once bool
	cancel := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if once {
			return
		}
		once = true
		delete(s.subs, id)
		close(ch)
	}
	return ch, cancel
}

// publishLocked must be called with s.mu held for writing so events are
// delivered in the same order as the state changes they describe.
func (s *Store) publishLocked(reason Reason) {
	ev := Event{
		Authenticated: s.session != nil && s.session.AccessToken != "",
		Reason:        reason,
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
			continue
		default:
		}
		// drop the stale event and deliver the latest
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- ev:
		default:
		}
	}
}
