// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"sort"
	"strings"
)

// EventKind names what happened to a candidate or edge during ingest and
// finalization.
type EventKind string

const (
	EventKept              EventKind = "KEPT"
	EventMergeEqual        EventKind = "MERGE_EQUAL"
	EventMergeMoreSpecific EventKind = "MERGE_MORE_SPECIFIC"
	EventIncompatible      EventKind = "INCOMPATIBLE"
	EventSelfLoop          EventKind = "SELFLOOP"
	EventUnresolved        EventKind = "UNRESOLVED"
	EventAmbiguous         EventKind = "AMBIGUOUS"
	EventCycleBroken       EventKind = "CYCLE_BROKEN"
	EventCycleDetected     EventKind = "CYCLE_DETECTED"
	EventTransitive        EventKind = "TRANSITIVE_REDUCED"
	EventIntraComponent    EventKind = "INTRA_COMPONENT_REDUCTION"
	EventHistLanguageSwap  EventKind = "HIST_LANGUAGE_SWAP"
)

// EventCounts tallies reduction events by kind and by kind plus relation
// types. It is not safe for concurrent use; owners guard it.
type EventCounts struct {
	ByKind map[EventKind]int `json:"by_kind" yaml:"by_kind"`

	// ByType keys are "KIND/TYPE[/OTHER...]" with the first type kept in
	// place and the rest sorted.
	ByType map[string]int `json:"by_type" yaml:"by_type"`
}

// NewEventCounts returns empty counts.
func NewEventCounts() EventCounts {
	return EventCounts{ByKind: map[EventKind]int{}, ByType: map[string]int{}}
}

// Record adds one event of kind involving the given relation types.
func (e *EventCounts) Record(kind EventKind, types ...RelationType) {
	e.RecordN(kind, 1, types...)
}

// RecordN adds n events at once.
func (e *EventCounts) RecordN(kind EventKind, n int, types ...RelationType) {
	if n <= 0 {
		return
	}
	if e.ByKind == nil {
		e.ByKind = map[EventKind]int{}
	}
	if e.ByType == nil {
		e.ByType = map[string]int{}
	}
	e.ByKind[kind] += n
	if len(types) > 0 {
		e.ByType[eventTypeKey(kind, types)] += n
	}
}

func eventTypeKey(kind EventKind, types []RelationType) string {
	parts := make([]string, 0, len(types)+1)
	parts = append(parts, string(kind), string(types[0]))
	rest := make([]string, 0, len(types)-1)
	for _, t := range types[1:] {
		rest = append(rest, string(t))
	}
	sort.Strings(rest)
	parts = append(parts, rest...)
	return strings.Join(parts, "/")
}

// Merge adds all counts from other.
func (e *EventCounts) Merge(other EventCounts) {
	for k, v := range other.ByKind {
		if e.ByKind == nil {
			e.ByKind = map[EventKind]int{}
		}
		e.ByKind[k] += v
	}
	for k, v := range other.ByType {
		if e.ByType == nil {
			e.ByType = map[string]int{}
		}
		e.ByType[k] += v
	}
}

// Count returns the number of events of kind.
func (e EventCounts) Count(kind EventKind) int {
	return e.ByKind[kind]
}

// Clone returns a deep copy.
func (e EventCounts) Clone() EventCounts {
	out := NewEventCounts()
	out.Merge(e)
	return out
}

// Kinds returns the recorded kinds in name order.
func (e EventCounts) Kinds() []EventKind {
	out := make([]EventKind, 0, len(e.ByKind))
	for k := range e.ByKind {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
