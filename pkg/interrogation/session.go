package interrogation

import (
	"fmt"
	"sort"
	"time"

	"github.com/jwebster45206/interrogation-engine/pkg/conversation"
	"github.com/jwebster45206/interrogation-engine/pkg/profile"
)

// Stats summarises a session.
type Stats struct {
	State              State         `json:"state"`
	CaseID             string        `json:"case_id"`
	ActiveCharacter    string        `json:"active_character,omitempty"`
	TotalQuestions     int           `json:"total_questions"`
	Duration           time.Duration `json:"duration"`
	CharactersSpokenTo []string      `json:"characters_spoken_to"`
	Confessed          []string      `json:"confessed"`
}

// Stats returns a summary of the session so far.
func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()

	spoken := []string{}
	for _, id := range o.store.Characters() {
		if len(o.store.History(id)) > 0 {
			spoken = append(spoken, id)
		}
	}
	s := Stats{
		State:              o.state,
		CaseID:             o.kase.ID,
		TotalQuestions:     o.store.TotalQuestions(),
		Duration:           o.store.SessionDuration(),
		CharactersSpokenTo: spoken,
		Confessed:          o.confessedLocked(),
	}
	if o.active != nil {
		s.ActiveCharacter = o.active.ID
	}
	return s
}

func (o *Orchestrator) confessedLocked() []string {
	ids := make([]string, 0, len(o.ended))
	for id, ended := range o.ended {
		if ended {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Snapshot is the persisted form of a session: the conversation store plus
// the characters that confessed.
type Snapshot struct {
	conversation.Snapshot
	Ended []string `json:"ended,omitempty"`
}

// Snapshot captures the session for persistence.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Snapshot{
		Snapshot: o.store.Snapshot(),
		Ended:    o.confessedLocked(),
	}
}

// Restore replaces the session with a snapshot taken from an orchestrator
// over the same case.
func (o *Orchestrator) Restore(snap Snapshot) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == StateProcessing {
		return ErrTurnInProgress
	}
	if snap.CaseID != "" && snap.CaseID != o.kase.ID {
		return fmt.Errorf("snapshot is for case %s, not %s", snap.CaseID, o.kase.ID)
	}
	for _, id := range snap.Ended {
		if _, ok := o.kase.Character(id); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownCharacter, id)
		}
	}
	var active *profile.Character
	if snap.ActiveCharacter != "" {
		c, ok := o.kase.Character(snap.ActiveCharacter)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownCharacter, snap.ActiveCharacter)
		}
		active = c
	}

	o.store.Restore(snap.Snapshot)
	o.store.SetCase(o.kase.ID)
	o.ended = make(map[string]bool, len(snap.Ended))
	for _, id := range snap.Ended {
		o.ended[id] = true
	}
	o.active = active
	switch {
	case active == nil:
		o.state = StateIdle
	case o.ended[active.ID]:
		o.state = StateEnded
	default:
		o.state = StateReady
	}
	return nil
}
