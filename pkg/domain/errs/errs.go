// Package errs holds the single error taxonomy of the production engine.
// Errors are identified by Code rather than by type, and carry structured
// context as key/value data.
package errs

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Code identifies a class of production error
type Code string

const (
	InvalidStatus             Code = "INVALID_STATUS"
	InvalidStep               Code = "INVALID_STEP"
	InvalidQuantity           Code = "INVALID_QUANTITY"
	InsufficientMaterials     Code = "INSUFFICIENT_MATERIALS"
	ReservationFailed         Code = "RESERVATION_FAILED"
	MaterialConsumptionFailed Code = "MATERIAL_CONSUMPTION_FAILED"
	PlanNotFound              Code = "PLAN_NOT_FOUND"
	PlanNotFoundOrNotApproved Code = "PLAN_NOT_FOUND_OR_NOT_APPROVED"
	RecipeNotFound            Code = "RECIPE_NOT_FOUND"
	WorkOrderNotFound         Code = "WORK_ORDER_NOT_FOUND"
	StepAlreadyCompleted      Code = "STEP_ALREADY_COMPLETED"
	StepDependenciesNotMet    Code = "STEP_DEPENDENCIES_NOT_MET"
)

var defaultMessages = map[Code]string{
	InvalidStatus:             "Status transition not allowed",
	InvalidStep:               "Step not defined in recipe",
	InvalidQuantity:           "Quantity must be greater than zero",
	InsufficientMaterials:     "Not enough materials",
	ReservationFailed:         "Material reservation failed",
	MaterialConsumptionFailed: "Material consumption failed",
	PlanNotFound:              "Plan not found",
	PlanNotFoundOrNotApproved: "Plan not found or not approved",
	RecipeNotFound:            "Recipe not found",
	WorkOrderNotFound:         "Work order not found",
	StepAlreadyCompleted:      "Step already registered",
	StepDependenciesNotMet:    "Required steps not completed",
}

// DefaultMessage returns the human readable message registered for a code
func (c Code) DefaultMessage() string {
	if msg, ok := defaultMessages[c]; ok {
		return msg
	}
	return string(c)
}

// Sentinels for errors.Is comparisons. Matching is by code only.
var (
	ErrInvalidStatus             = &Error{Code: InvalidStatus}
	ErrInvalidStep               = &Error{Code: InvalidStep}
	ErrInvalidQuantity           = &Error{Code: InvalidQuantity}
	ErrInsufficientMaterials     = &Error{Code: InsufficientMaterials}
	ErrReservationFailed         = &Error{Code: ReservationFailed}
	ErrMaterialConsumptionFailed = &Error{Code: MaterialConsumptionFailed}
	ErrPlanNotFound              = &Error{Code: PlanNotFound}
	ErrPlanNotFoundOrNotApproved = &Error{Code: PlanNotFoundOrNotApproved}
	ErrRecipeNotFound            = &Error{Code: RecipeNotFound}
	ErrWorkOrderNotFound         = &Error{Code: WorkOrderNotFound}
	ErrStepAlreadyCompleted      = &Error{Code: StepAlreadyCompleted}
	ErrStepDependenciesNotMet    = &Error{Code: StepDependenciesNotMet}
)

// Error is a coded production error with structured context
type Error struct {
	Code    Code
	Message string
	Data    map[string]any
	Err     error
}

// New creates an Error for code. kv is a flat list of key/value pairs;
// a trailing key without a value is ignored.
func New(code Code, kv ...any) *Error {
	return &Error{
		Code:    code,
		Message: code.DefaultMessage(),
		Data:    pairs(kv),
	}
}

// Wrap creates an Error for code that wraps a lower level cause
func Wrap(code Code, err error, kv ...any) *Error {
	e := New(code, kv...)
	e.Err = err
	return e
}

// WithMessage replaces the default message
func (e *Error) WithMessage(msg string) *Error {
	e.Message = msg
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(string(e.Code))
	b.WriteString("] ")
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString(e.Code.DefaultMessage())
	}

	if len(e.Data) > 0 {
		keys := make([]string, 0, len(e.Data))
		for k := range e.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, e.Data[k]))
		}
		b.WriteString(" (")
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString(")")
	}

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Get returns a context value
func (e *Error) Get(key string) (any, bool) {
	v, ok := e.Data[key]
	return v, ok
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func pairs(kv []any) map[string]any {
	if len(kv) < 2 {
		return nil
	}
	data := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		data[key] = kv[i+1]
	}
	return data
}
