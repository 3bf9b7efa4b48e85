package entities

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/craftsman/pkg/domain/errs"
)

// PlanStatus represents the lifecycle stage of a daily plan
type PlanStatus int

const (
	PlanDraft PlanStatus = iota
	PlanApproved
	PlanScheduled
	PlanCompleted
)

// String method for PlanStatus enum
func (s PlanStatus) String() string {
	switch s {
	case PlanDraft:
		return "draft"
	case PlanApproved:
		return "approved"
	case PlanScheduled:
		return "scheduled"
	case PlanCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// DefaultPriority is used for plan items created without an explicit priority
const DefaultPriority = 50

// Plan is the master production schedule for a single date.
// Status only moves forward: draft, approved, scheduled, completed.
type Plan struct {
	ID          uuid.UUID
	Date        time.Time
	Status      PlanStatus
	Notes       string
	Items       []*PlanItem
	CreatedAt   time.Time
	ApprovedAt  *time.Time
	ScheduledAt *time.Time
	CompletedAt *time.Time
}

// NewPlan creates a draft plan for the calendar day of date
func NewPlan(date time.Time, now time.Time) *Plan {
	return &Plan{
		ID:        uuid.New(),
		Date:      DateOnly(date),
		Status:    PlanDraft,
		CreatedAt: now,
	}
}

// DateOnly truncates t to midnight UTC of its calendar day
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Label renders the plan as "Plan. FRI 12/12/25"
func (p *Plan) Label() string {
	weekdays := [...]string{"SUN", "MON", "TUE", "WED", "THU", "FRI", "SAT"}
	return fmt.Sprintf("Plan. %s %s", weekdays[p.Date.Weekday()], p.Date.Format("02/01/06"))
}

// Approve moves a draft plan to approved
func (p *Plan) Approve(now time.Time) error {
	if p.Status != PlanDraft {
		return errs.New(errs.InvalidStatus, "current", p.Status.String(), "expected", PlanDraft.String()).
			WithMessage("only draft plans can be approved")
	}
	p.Status = PlanApproved
	p.ApprovedAt = &now
	return nil
}

// MarkScheduled moves an approved plan to scheduled
func (p *Plan) MarkScheduled(now time.Time) error {
	if p.Status != PlanApproved {
		return errs.New(errs.InvalidStatus, "current", p.Status.String(), "expected", PlanApproved.String()).
			WithMessage("only approved plans can be scheduled")
	}
	p.Status = PlanScheduled
	p.ScheduledAt = &now
	return nil
}

// Complete moves a scheduled plan to completed. Work order states are not inspected.
func (p *Plan) Complete(now time.Time) error {
	if p.Status != PlanScheduled {
		return errs.New(errs.InvalidStatus, "current", p.Status.String(), "expected", PlanScheduled.String()).
			WithMessage("only scheduled plans can be completed")
	}
	p.Status = PlanCompleted
	p.CompletedAt = &now
	return nil
}

// AddItem attaches a new demand line. One line per recipe per plan.
func (p *Plan) AddItem(item *PlanItem) error {
	if p.ItemFor(item.RecipeCode) != nil {
		return fmt.Errorf("plan %s already has an item for recipe %s", p.Date.Format("2006-01-02"), item.RecipeCode)
	}
	item.PlanID = p.ID
	item.PlanDate = p.Date
	p.Items = append(p.Items, item)
	return nil
}

// ItemFor returns the line for a recipe, or nil
func (p *Plan) ItemFor(recipeCode string) *PlanItem {
	for _, item := range p.Items {
		if item.RecipeCode == recipeCode {
			return item
		}
	}
	return nil
}

// ItemByID returns the line with the given id, or nil
func (p *Plan) ItemByID(id uuid.UUID) *PlanItem {
	for _, item := range p.Items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

// OrderedItems returns the lines by priority (highest first), then creation time
func (p *Plan) OrderedItems() []*PlanItem {
	items := append([]*PlanItem(nil), p.Items...)
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority > items[j].Priority
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items
}

// SchedulableItems returns ordered lines with a positive quantity
func (p *Plan) SchedulableItems() []*PlanItem {
	var items []*PlanItem
	for _, item := range p.OrderedItems() {
		if item.Quantity.IsPositive() {
			items = append(items, item)
		}
	}
	return items
}

// TotalItems returns the number of lines
func (p *Plan) TotalItems() int {
	return len(p.Items)
}

// TotalQuantity sums every line's planned quantity
func (p *Plan) TotalQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, item := range p.Items {
		total = total.Add(item.Quantity)
	}
	return total
}

// Clone returns a deep copy
func (p *Plan) Clone() *Plan {
	c := *p
	c.Items = make([]*PlanItem, len(p.Items))
	for i, item := range p.Items {
		copied := *item
		c.Items[i] = &copied
	}
	return &c
}

// PlanItem is one recipe's demand line for one date
type PlanItem struct {
	ID          uuid.UUID
	PlanID      uuid.UUID
	PlanDate    time.Time
	RecipeCode  string
	Quantity    decimal.Decimal
	Destination string
	Priority    int
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewPlanItem creates a demand line. Zero is allowed and is skipped at scheduling.
func NewPlanItem(recipeCode string, quantity decimal.Decimal, destination string, priority int, now time.Time) (*PlanItem, error) {
	if recipeCode == "" {
		return nil, fmt.Errorf("recipe code cannot be empty")
	}
	if quantity.IsNegative() {
		return nil, fmt.Errorf("quantity cannot be negative, got %s", quantity)
	}

	return &PlanItem{
		ID:          uuid.New(),
		RecipeCode:  recipeCode,
		Quantity:    quantity,
		Destination: destination,
		Priority:    priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// TotalProduced sums actual quantities of completed orders
func TotalProduced(orders []*WorkOrder) decimal.Decimal {
	total := decimal.Zero
	for _, wo := range orders {
		if wo.Status == WorkOrderCompleted && wo.ActualQuantity.Valid {
			total = total.Add(wo.ActualQuantity.Decimal)
		}
	}
	return total
}

// ActiveWorkOrder returns the first pending or in-progress order, or nil
func ActiveWorkOrder(orders []*WorkOrder) *WorkOrder {
	for _, wo := range orders {
		if wo.Status == WorkOrderPending || wo.Status == WorkOrderInProgress {
			return wo
		}
	}
	return nil
}

// IsComplete reports whether the orders produced at least the planned quantity
func (pi *PlanItem) IsComplete(orders []*WorkOrder) bool {
	return TotalProduced(orders).GreaterThanOrEqual(pi.Quantity)
}

// AvailableQuantity is what remains of production after committed demand
func AvailableQuantity(produced, reserved decimal.Decimal) decimal.Decimal {
	return produced.Sub(reserved)
}

// StepQuantity returns the latest quantity recorded for a step on the
// active order, or on the first completed one when nothing is active
func StepQuantity(orders []*WorkOrder, step string) (decimal.Decimal, bool) {
	wo := ActiveWorkOrder(orders)
	if wo == nil {
		for _, candidate := range orders {
			if candidate.Status == WorkOrderCompleted {
				wo = candidate
				break
			}
		}
	}
	if wo == nil {
		return decimal.Zero, false
	}
	return wo.StepQuantity(step)
}
