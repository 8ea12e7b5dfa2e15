package binlog

import (
	"fmt"
	"log/slog"
)

// EventsProcessor holds the live event set: one event per id, ordered by
// first insertion. Rewrite records replace in place; erase records
// (Rewrite + TypeEmpty) remove. Replaying the live set in order is
// equivalent to replaying the full history. Service records update the
// offset but never enter the live set.
type EventsProcessor struct {
	events []*Event       // insertion order; nil = erased slot
	index  map[uint64]int // id -> slot in events
	dead   int            // erased slots pending compaction

	lastID             uint64
	seen               bool // any non-service event inserted yet
	offset             int64
	totalRawEventsSize int64

	// out-of-order ids seen during load that no rewrite has covered yet
	outOfOrder map[uint64]struct{}

	log *slog.Logger
}

// NewEventsProcessor creates an empty processor.
func NewEventsProcessor(log *slog.Logger) *EventsProcessor {
	if log == nil {
		log = slog.Default()
	}
	return &EventsProcessor{
		index:      make(map[uint64]int),
		outOfOrder: make(map[uint64]struct{}),
		log:        log,
	}
}

// AddEvent applies one event to the live set. loading relaxes the
// monotonicity check: during load an out-of-order id is tolerated as long
// as a later rewrite covers it, which FinishLoad verifies.
func (p *EventsProcessor) AddEvent(e *Event, loading bool) error {
	if e.Offset > p.offset {
		p.offset = e.Offset
	}
	if e.IsService() && e.Flags&FlagRewrite == 0 {
		return nil
	}

	if e.Flags&FlagRewrite != 0 {
		slot, exists := p.index[e.ID]
		if exists {
			p.totalRawEventsSize -= p.events[slot].Size()
		}
		delete(p.outOfOrder, e.ID)
		if e.Type == TypeEmpty {
			// erase
			if !exists {
				p.log.Debug("erase of absent id", "id", e.ID)
				return nil
			}
			p.events[slot] = nil
			delete(p.index, e.ID)
			p.dead++
			p.maybeCompact()
			return nil
		}
		if exists {
			p.events[slot] = e
		} else {
			p.index[e.ID] = len(p.events)
			p.events = append(p.events, e)
		}
		p.totalRawEventsSize += e.Size()
		if e.ID > p.lastID {
			p.lastID = e.ID
		}
		p.seen = true
		return nil
	}

	_, duplicate := p.index[e.ID]
	if !duplicate && p.seen && e.ID <= p.lastID {
		if !loading {
			return fmt.Errorf("%w: id %d, last id %d", ErrNonMonotonicId, e.ID, p.lastID)
		}
		p.log.Warn("out-of-order event id during load", "id", e.ID, "last_id", p.lastID)
		p.outOfOrder[e.ID] = struct{}{}
	}

	if duplicate {
		// keep the later record, like a rewrite
		slot := p.index[e.ID]
		p.totalRawEventsSize -= p.events[slot].Size()
		p.events[slot] = e
	} else {
		p.index[e.ID] = len(p.events)
		p.events = append(p.events, e)
	}
	p.totalRawEventsSize += e.Size()
	if e.ID > p.lastID {
		p.lastID = e.ID
	}
	p.seen = true
	return nil
}

// checkAppend validates that a plain append would be accepted, without
// mutating state. The engine calls it before staging bytes so a rejected
// event leaves no trace on disk. An existing id is fine: the later record
// replaces the earlier one.
func (p *EventsProcessor) checkAppend(e *Event) error {
	if _, ok := p.index[e.ID]; ok {
		return nil
	}
	if p.seen && e.ID <= p.lastID {
		return fmt.Errorf("%w: id %d, last id %d", ErrNonMonotonicId, e.ID, p.lastID)
	}
	return nil
}

// FinishLoad reports an error if an out-of-order id seen during load was
// never covered by a rewrite.
func (p *EventsProcessor) FinishLoad() error {
	for id := range p.outOfOrder {
		return fmt.Errorf("%w: id %d never rewritten", ErrNonMonotonicId, id)
	}
	return nil
}

// ForEach visits live events in insertion order.
func (p *EventsProcessor) ForEach(visit func(*Event)) {
	for _, e := range p.events {
		if e != nil {
			visit(e)
		}
	}
}

// Offset returns the on-disk byte offset past the last applied record.
func (p *EventsProcessor) Offset() int64 {
	return p.offset
}

// TotalRawEventsSize returns the summed framed size of live events.
func (p *EventsProcessor) TotalRawEventsSize() int64 {
	return p.totalRawEventsSize
}

// LastID returns the largest id ever inserted.
func (p *EventsProcessor) LastID() uint64 {
	return p.lastID
}

// Len returns the number of live events.
func (p *EventsProcessor) Len() int {
	return len(p.events) - p.dead
}

// maybeCompact drops erased slots once they outnumber the live ones.
func (p *EventsProcessor) maybeCompact() {
	if p.dead < 64 || p.dead <= len(p.events)/2 {
		return
	}
	live := make([]*Event, 0, len(p.events)-p.dead)
	for _, e := range p.events {
		if e != nil {
			p.index[e.ID] = len(live)
			live = append(live, e)
		}
	}
	p.events = live
	p.dead = 0
}
