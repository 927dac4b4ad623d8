// Package playback schedules synthesized utterances onto a bounded set of
// audio output slots. Requests queue FIFO; the active output policy decides
// which slots are eligible for the request at the head of the queue.
package playback

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/Voxel-Fox-Ltd/twitch-tts/speech"
	"github.com/Voxel-Fox-Ltd/twitch-tts/telemetry"
)

// Request is one queued utterance. Consumed exactly once by the scheduler.
type Request struct {
	Audio speech.Audio
	Rate  float64
	Owner string
}

// Slot is one addressable audio output. Play must start playback without
// blocking and report completion through the idle callback registered with
// SetOnIdle. A slot retains its last owner after completion so the by-user
// policy can consult it.
type Slot interface {
	Busy() bool
	Owner() string
	Play(req Request) error
	SetOnIdle(fn func())
}

// Policy selects how queued requests are assigned to slots.
type Policy int

const (
	// PolicySimultaneous dispatches to any free slot.
	PolicySimultaneous Policy = iota
	// PolicyAllQueued dispatches only to the primary slot subset.
	PolicyAllQueued
	// PolicyByUser holds the head request while any busy slot is owned by
	// the same user; otherwise any free slot is eligible.
	PolicyByUser
)

// ParsePolicy maps the persisted policy name to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "simultaneous":
		return PolicySimultaneous, nil
	case "all-queued":
		return PolicyAllQueued, nil
	case "by-user":
		return PolicyByUser, nil
	}
	return 0, fmt.Errorf("unknown output policy %q", s)
}

func (p Policy) String() string {
	switch p {
	case PolicyAllQueued:
		return "all-queued"
	case PolicyByUser:
		return "by-user"
	default:
		return "simultaneous"
	}
}

// Scheduler owns the FIFO and the slot set. Dispatch runs synchronously after
// every Enqueue and every slot idle transition, under one lock, so a slot is
// never assigned twice concurrently.
type Scheduler struct {
	mu      sync.Mutex
	policy  Policy
	slots   []Slot
	primary int
	queue   []Request
}

// NewScheduler wires the slots' idle callbacks to the dispatcher. The first
// primary slots (document order) form the subset used by PolicyAllQueued;
// primary is clamped to at least 1.
func NewScheduler(policy Policy, slots []Slot, primary int) *Scheduler {
	if primary < 1 {
		primary = 1
	}
	if primary > len(slots) {
		primary = len(slots)
	}
	s := &Scheduler{policy: policy, slots: slots, primary: primary}
	for _, slot := range slots {
		slot.SetOnIdle(s.dispatch)
	}
	return s
}

// SetPolicy switches the output policy and immediately re-attempts dispatch
// under the new rules.
func (s *Scheduler) SetPolicy(p Policy) {
	s.mu.Lock()
	s.policy = p
	s.mu.Unlock()
	s.dispatch()
}

// Len reports the number of queued (not yet dispatched) requests.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Enqueue appends a request and attempts immediate dispatch.
func (s *Scheduler) Enqueue(req Request) {
	if req.Rate == 0 {
		req.Rate = 1.0
	}
	s.mu.Lock()
	s.queue = append(s.queue, req)
	s.mu.Unlock()
	s.dispatch()
}

// dispatch assigns queued requests to eligible slots, head first, until the
// head cannot be placed. A request leaves the queue only in the same
// operation that assigns it to a slot.
func (s *Scheduler) dispatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.queue) > 0 {
		slot := s.eligibleSlot(s.queue[0])
		if slot == nil {
			break
		}
		req := s.queue[0]
		if err := slot.Play(req); err != nil {
			// The request stays at the head; the next dispatch retries it.
			slog.Error("slot playback failed", slog.String("owner", req.Owner), slog.Any("err", err))
			break
		}
		s.queue = s.queue[1:]
	}
	telemetry.SetQueueDepth(len(s.queue))
}

// eligibleSlot returns the lowest-index slot the head request may use under
// the active policy, or nil when the request must wait. Callers hold s.mu.
func (s *Scheduler) eligibleSlot(head Request) Slot {
	switch s.policy {
	case PolicyAllQueued:
		for _, slot := range s.slots[:s.primary] {
			if !slot.Busy() {
				return slot
			}
		}
		return nil
	case PolicyByUser:
		if head.Owner != "" {
			for _, slot := range s.slots {
				if slot.Busy() && slot.Owner() == head.Owner {
					return nil // wait for the owner's slot to free
				}
			}
		}
		return s.firstFree()
	default: // PolicySimultaneous
		return s.firstFree()
	}
}

func (s *Scheduler) firstFree() Slot {
	for _, slot := range s.slots {
		if !slot.Busy() {
			return slot
		}
	}
	return nil
}
