package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/craftsman/pkg/domain/errs"
)

// WorkOrderStatus represents the execution state of a work order
type WorkOrderStatus int

const (
	WorkOrderPending WorkOrderStatus = iota
	WorkOrderInProgress
	WorkOrderPaused
	WorkOrderCompleted
	WorkOrderCancelled
)

// String method for WorkOrderStatus enum
func (s WorkOrderStatus) String() string {
	switch s {
	case WorkOrderPending:
		return "pending"
	case WorkOrderInProgress:
		return "in_progress"
	case WorkOrderPaused:
		return "paused"
	case WorkOrderCompleted:
		return "completed"
	case WorkOrderCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transition is possible
func (s WorkOrderStatus) IsTerminal() bool {
	return s == WorkOrderCompleted || s == WorkOrderCancelled
}

// ReservationMode records whether materials were held at scheduling time
type ReservationMode string

const (
	ReservationNone     ReservationMode = ""
	ReservationEnabled  ReservationMode = "enabled"
	ReservationDisabled ReservationMode = "disabled"
)

// StepLogEntry is one append-only record of a production step
type StepLogEntry struct {
	Step      string
	Quantity  decimal.Decimal
	Timestamp time.Time
	Actor     string
}

// Hold is a material reservation recorded on a work order
type Hold struct {
	SKU      SKU
	Quantity decimal.Decimal
	HoldID   string
}

// ReceiveError records a failed stock receipt after completion
type ReceiveError struct {
	Error    string
	Quantity decimal.Decimal
	At       time.Time
}

// Progress summarises step completion
type Progress struct {
	Completed  int
	Total      int
	Percentage int
}

// WorkOrder is the atomic unit of production work
type WorkOrder struct {
	ID              uuid.UUID
	Code            string
	PlanItemID      uuid.UUID
	PlanDate        time.Time
	RecipeCode      string
	PlannedQuantity decimal.Decimal
	ActualQuantity  decimal.NullDecimal
	ProcessQuantity decimal.NullDecimal
	OutputQuantity  decimal.NullDecimal
	Status          WorkOrderStatus
	Destination     string
	Location        string
	ScheduledStart  *time.Time
	ScheduledEnd    *time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
	AssignedTo      string
	Source          string
	StepLog         []StepLogEntry
	Holds           []Hold
	ReservationMode ReservationMode
	ScheduledBy     string
	CompletedBy     string
	CreatedBy       string
	ExternalRef     string
	ReceiveError    *ReceiveError
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewWorkOrder creates a pending order for a recipe. The code is assigned by the caller.
func NewWorkOrder(recipe *Recipe, planned decimal.Decimal, now time.Time) (*WorkOrder, error) {
	if !planned.IsPositive() {
		return nil, errs.New(errs.InvalidQuantity, "quantity", planned.String())
	}

	return &WorkOrder{
		ID:              uuid.New(),
		RecipeCode:      recipe.Code,
		PlannedQuantity: planned,
		Status:          WorkOrderPending,
		Location:        recipe.WorkCenter,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// StepOutcome reports the side effects of recording a step
type StepOutcome struct {
	Started     bool
	Completed   bool
	UnknownStep bool
}

// RecordStep appends a step entry. The first step starts the order and the
// recipe's last step completes it with the recorded quantity. Paused orders
// reject steps.
func (wo *WorkOrder) RecordStep(recipe *Recipe, step string, quantity decimal.Decimal, actor string, now time.Time) (StepOutcome, error) {
	var outcome StepOutcome

	if !quantity.IsPositive() {
		return outcome, errs.New(errs.InvalidQuantity, "quantity", quantity.String())
	}
	if strings.TrimSpace(step) == "" {
		return outcome, errs.New(errs.InvalidStep, "step", step)
	}
	if wo.Status != WorkOrderPending && wo.Status != WorkOrderInProgress {
		return outcome, errs.New(errs.InvalidStatus, "current", wo.Status.String(), "work_order", wo.Code)
	}

	idx := recipe.StepIndex(step)
	outcome.UnknownStep = len(recipe.Steps) > 0 && idx < 0

	if wo.Status == WorkOrderPending {
		wo.Status = WorkOrderInProgress
		wo.StartedAt = &now
		outcome.Started = true
	}

	wo.StepLog = append(wo.StepLog, StepLogEntry{
		Step:      step,
		Quantity:  quantity,
		Timestamp: now,
		Actor:     actor,
	})

	if idx >= 0 {
		total := len(recipe.Steps)
		if total >= 2 && idx == total-2 {
			wo.ProcessQuantity = decimal.NewNullDecimal(quantity)
		}
		if idx == total-1 {
			wo.OutputQuantity = decimal.NewNullDecimal(quantity)
		}
	}
	wo.UpdatedAt = now

	if last := recipe.LastStep(); last != "" && step == last {
		completed, err := wo.Complete(decimal.NewNullDecimal(quantity), actor, now)
		if err != nil {
			return outcome, err
		}
		outcome.Completed = completed
	}

	return outcome, nil
}

// Start moves a pending order to in progress without recording a step
func (wo *WorkOrder) Start(now time.Time) error {
	if wo.Status != WorkOrderPending {
		return errs.New(errs.InvalidStatus, "current", wo.Status.String(), "expected", WorkOrderPending.String())
	}
	wo.Status = WorkOrderInProgress
	wo.StartedAt = &now
	wo.UpdatedAt = now
	return nil
}

// Complete finalises production. Without an explicit quantity the last
// step's quantity is used, then the planned quantity. Completing a
// completed order is a no-op and reports false.
func (wo *WorkOrder) Complete(actual decimal.NullDecimal, actor string, now time.Time) (bool, error) {
	if wo.Status == WorkOrderCompleted {
		return false, nil
	}
	if wo.Status == WorkOrderCancelled {
		return false, errs.New(errs.InvalidStatus, "current", wo.Status.String(), "work_order", wo.Code)
	}

	quantity := wo.PlannedQuantity
	switch {
	case actual.Valid:
		quantity = actual.Decimal
	case len(wo.StepLog) > 0:
		quantity = wo.StepLog[len(wo.StepLog)-1].Quantity
	}

	wo.Status = WorkOrderCompleted
	wo.ActualQuantity = decimal.NewNullDecimal(quantity)
	wo.CompletedAt = &now
	if wo.CompletedBy == "" {
		wo.CompletedBy = actor
	}
	wo.UpdatedAt = now
	return true, nil
}

// Pause suspends an in-progress order
func (wo *WorkOrder) Pause(reason string, now time.Time) error {
	if wo.Status != WorkOrderInProgress {
		return errs.New(errs.InvalidStatus, "current", wo.Status.String(), "expected", WorkOrderInProgress.String()).
			WithMessage("only in-progress orders can be paused")
	}
	wo.Status = WorkOrderPaused
	wo.appendNote("PAUSED", reason)
	wo.UpdatedAt = now
	return nil
}

// Resume continues a paused order
func (wo *WorkOrder) Resume(now time.Time) error {
	if wo.Status != WorkOrderPaused {
		return errs.New(errs.InvalidStatus, "current", wo.Status.String(), "expected", WorkOrderPaused.String()).
			WithMessage("only paused orders can be resumed")
	}
	wo.Status = WorkOrderInProgress
	wo.UpdatedAt = now
	return nil
}

// Cancel terminates an order that has not completed
func (wo *WorkOrder) Cancel(reason string, now time.Time) error {
	if wo.Status.IsTerminal() {
		return errs.New(errs.InvalidStatus, "current", wo.Status.String()).
			WithMessage("cannot cancel a completed or cancelled order")
	}
	wo.Status = WorkOrderCancelled
	wo.appendNote("CANCELLED", reason)
	wo.UpdatedAt = now
	return nil
}

func (wo *WorkOrder) appendNote(tag, reason string) {
	if reason == "" {
		return
	}
	wo.Notes = strings.TrimSpace(wo.Notes + "\n[" + tag + "] " + reason)
}

// Requirements computes material needs with the coefficient method
func (wo *WorkOrder) Requirements(recipe *Recipe) []Requirement {
	return recipe.Requirements(wo.PlannedQuantity)
}

// CompletedSteps lists step names in log order
func (wo *WorkOrder) CompletedSteps() []string {
	steps := make([]string, 0, len(wo.StepLog))
	for _, entry := range wo.StepLog {
		steps = append(steps, entry.Step)
	}
	return steps
}

// StepQuantity returns the latest quantity logged for a step
func (wo *WorkOrder) StepQuantity(step string) (decimal.Decimal, bool) {
	for i := len(wo.StepLog) - 1; i >= 0; i-- {
		if wo.StepLog[i].Step == step {
			return wo.StepLog[i].Quantity, true
		}
	}
	return decimal.Zero, false
}

// Progress reports how many recipe steps have been logged
func (wo *WorkOrder) Progress(recipe *Recipe) Progress {
	if len(recipe.Steps) == 0 {
		switch wo.Status {
		case WorkOrderCompleted:
			return Progress{Completed: 1, Total: 1, Percentage: 100}
		case WorkOrderInProgress:
			return Progress{Completed: 0, Total: 1, Percentage: 50}
		default:
			return Progress{Completed: 0, Total: 1, Percentage: 0}
		}
	}

	completed := len(wo.StepLog)
	total := len(recipe.Steps)
	return Progress{
		Completed:  completed,
		Total:      total,
		Percentage: completed * 100 / total,
	}
}

// LossQuantity is planned minus actual, available once completed
func (wo *WorkOrder) LossQuantity() (decimal.Decimal, bool) {
	if !wo.ActualQuantity.Valid {
		return decimal.Zero, false
	}
	return wo.PlannedQuantity.Sub(wo.ActualQuantity.Decimal), true
}

// LossPercentage is the loss relative to the planned quantity
func (wo *WorkOrder) LossPercentage() (decimal.Decimal, bool) {
	loss, ok := wo.LossQuantity()
	if !ok || !wo.PlannedQuantity.IsPositive() {
		return decimal.Zero, false
	}
	return loss.Div(wo.PlannedQuantity).Mul(decimal.NewFromInt(100)), true
}

// IsScheduled reports whether a start time was assigned
func (wo *WorkOrder) IsScheduled() bool {
	return wo.ScheduledStart != nil
}

// IsLate reports whether an unfinished order is past its scheduled end
func (wo *WorkOrder) IsLate(now time.Time) bool {
	if wo.ScheduledEnd == nil || wo.CompletedAt != nil {
		return false
	}
	return now.After(*wo.ScheduledEnd)
}

// ProductionDate is the originating plan date, else the scheduled start date
func (wo *WorkOrder) ProductionDate() (time.Time, bool) {
	if !wo.PlanDate.IsZero() {
		return wo.PlanDate, true
	}
	if wo.ScheduledStart != nil {
		return DateOnly(*wo.ScheduledStart), true
	}
	return time.Time{}, false
}

// Clone returns a deep copy
func (wo *WorkOrder) Clone() *WorkOrder {
	c := *wo
	c.StepLog = append([]StepLogEntry(nil), wo.StepLog...)
	c.Holds = append([]Hold(nil), wo.Holds...)
	if wo.ReceiveError != nil {
		re := *wo.ReceiveError
		c.ReceiveError = &re
	}
	return &c
}
