package status

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTransition is matched by every *TransitionError.
var ErrInvalidTransition = errors.New("invalid status transition")

// Table is the transition table for one status dimension.
type Table[S ~string] struct {
	dimension Dimension
	states    []S
	next      func(S) ([]S, bool)
}

// Dimension reports which status field the table governs.
func (t Table[S]) Dimension() Dimension { return t.dimension }

// States returns every state the table declares.
func (t Table[S]) States() []S {
	cp := make([]S, len(t.states))
	copy(cp, t.states)
	return cp
}

// Allowed returns the states reachable in one step from from. Terminal and
// unknown states return an empty set.
func (t Table[S]) Allowed(from S) []S {
	next, _ := t.next(from)
	cp := make([]S, len(next))
	copy(cp, next)
	return cp
}

// Declares reports whether the table has an explicit entry for state.
func (t Table[S]) Declares(state S) bool {
	_, ok := t.next(state)
	return ok
}

// WorkflowTable governs the session workflow status.
var WorkflowTable = Table[Workflow]{
	dimension: DimensionWorkflow,
	states:    allWorkflows,
	next:      workflowNext,
}

// OCRTable governs the OCR sub-status.
var OCRTable = Table[SubStatus]{
	dimension: DimensionOCR,
	states:    allSubStatuses,
	next:      subStatusNext,
}

// SecondPassTable governs the second-pass sub-status.
var SecondPassTable = Table[SubStatus]{
	dimension: DimensionSecondPass,
	states:    allSubStatuses,
	next:      subStatusNext,
}

// CommitTable governs the commit sub-status.
var CommitTable = Table[SubStatus]{
	dimension: DimensionCommit,
	states:    allSubStatuses,
	next:      subStatusNext,
}

func workflowNext(from Workflow) ([]Workflow, bool) {
	switch from {
	case WorkflowUploaded:
		return []Workflow{WorkflowQueued, WorkflowFailed}, true
	case WorkflowQueued:
		return []Workflow{WorkflowProcessing, WorkflowFailed}, true
	case WorkflowProcessing:
		return []Workflow{WorkflowProcessed, WorkflowPendingReview, WorkflowFailed}, true
	case WorkflowProcessed:
		return []Workflow{WorkflowReadyToCommit, WorkflowPendingReview, WorkflowFailed}, true
	case WorkflowPendingReview:
		return []Workflow{WorkflowApproved, WorkflowRejected, WorkflowReadyToCommit, WorkflowFailed}, true
	case WorkflowReadyToCommit:
		return []Workflow{WorkflowCommitting, WorkflowPendingReview, WorkflowFailed}, true
	case WorkflowCommitting:
		return []Workflow{WorkflowApproved, WorkflowCommitted, WorkflowFailed}, true
	case WorkflowApproved, WorkflowCommitted, WorkflowRejected:
		return nil, true
	case WorkflowFailed:
		return []Workflow{WorkflowQueued, WorkflowProcessing}, true
	default:
		return nil, false
	}
}

func subStatusNext(from SubStatus) ([]SubStatus, bool) {
	switch from {
	case SubNotNeeded, SubNotStarted:
		return []SubStatus{SubQueued}, true
	case SubQueued:
		return []SubStatus{SubInProgress, SubFailed}, true
	case SubInProgress:
		return []SubStatus{SubComplete, SubFailed}, true
	case SubComplete:
		return nil, true
	case SubFailed:
		return []SubStatus{SubQueued}, true
	default:
		return nil, false
	}
}

// IsValidTransition reports whether table permits moving from -> to.
func IsValidTransition[S ~string](table Table[S], from, to S) bool {
	next, _ := table.next(from)
	for _, candidate := range next {
		if candidate == to {
			return true
		}
	}
	return false
}

// AssertTransition returns a *TransitionError when table does not permit
// moving from -> to.
func AssertTransition[S ~string](table Table[S], from, to S) error {
	if IsValidTransition(table, from, to) {
		return nil
	}
	allowed := table.Allowed(from)
	names := make([]string, len(allowed))
	for i, state := range allowed {
		names[i] = string(state)
	}
	return &TransitionError{
		Dimension: table.dimension,
		From:      string(from),
		To:        string(to),
		Allowed:   names,
	}
}

// Walk returns the shortest sequence of legal hops from -> to, excluding from
// itself. An empty slice means from == to.
func Walk[S ~string](table Table[S], from, to S) ([]S, error) {
	if from == to {
		return nil, nil
	}
	prev := map[S]S{from: from}
	frontier := []S{from}
	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]
		next, _ := table.next(current)
		for _, candidate := range next {
			if _, seen := prev[candidate]; seen {
				continue
			}
			prev[candidate] = current
			if candidate == to {
				var path []S
				for step := to; step != from; step = prev[step] {
					path = append([]S{step}, path...)
				}
				return path, nil
			}
			frontier = append(frontier, candidate)
		}
	}
	return nil, AssertTransition(table, from, to)
}

// TransitionError describes an illegal status change.
type TransitionError struct {
	Dimension Dimension
	From      string
	To        string
	Allowed   []string
}

func (e *TransitionError) Error() string {
	if e == nil {
		return ""
	}
	allowed := "none (terminal)"
	if len(e.Allowed) > 0 {
		allowed = strings.Join(e.Allowed, ", ")
	}
	return fmt.Sprintf("%s: %s status %s -> %s (allowed: %s)",
		ErrInvalidTransition.Error(), e.Dimension, e.From, e.To, allowed)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }
