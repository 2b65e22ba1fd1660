package domain

import "time"

// Step is the finalization saga state machine. Steps run in declaration
// order; any non-terminal step can transition to StepError.
type Step string

const (
	StepValidating    Step = "VALIDATING"
	StepUndoCapture   Step = "UNDO_CAPTURE"
	StepBudgetUpdate  Step = "BUDGET_UPDATE"
	StepWHTProcessing Step = "WHT_PROCESSING"
	StepStatusUpdate  Step = "STATUS_UPDATE"
	StepMasterLog     Step = "MASTER_LOG"
	StepCompleted     Step = "COMPLETED"
	StepError         Step = "ERROR"
)

var stepOrder = map[Step]int{
	StepValidating:    0,
	StepUndoCapture:   1,
	StepBudgetUpdate:  2,
	StepWHTProcessing: 3,
	StepStatusUpdate:  4,
	StepMasterLog:     5,
	StepCompleted:     6,
}

// Terminal reports whether the saga stops at this step.
func (s Step) Terminal() bool {
	return s == StepCompleted || s == StepError
}

// CanTransitionTo reports whether moving from s to next is a legal saga
// transition: the immediate successor, or ERROR from any non-terminal step.
func (s Step) CanTransitionTo(next Step) bool {
	if s.Terminal() {
		return false
	}
	if next == StepError {
		return true
	}
	from, ok := stepOrder[s]
	to, ok2 := stepOrder[next]
	return ok && ok2 && to == from+1
}

// MutationsApplied reports whether balance mutations may already exist when
// the saga fails at this step. Failures at or after BUDGET_UPDATE leave
// applied mutations in place; compensation is operator-triggered.
func (s Step) MutationsApplied() bool {
	order, ok := stepOrder[s]
	return ok && order >= stepOrder[StepBudgetUpdate]
}

// FinalizationBatch is the unit of work for one voucher finalization.
// A retried finalization creates a new batch; batches are never reused.
type FinalizationBatch struct {
	ID          string
	VoucherRef  string
	PaymentIDs  []string
	Step        Step
	ErrorDetail string
	SnapshotID  string
	Actor       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
