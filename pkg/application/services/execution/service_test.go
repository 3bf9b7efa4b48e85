package execution

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/craftsman/pkg/application/services/shared"
	"github.com/vsinha/craftsman/pkg/domain/entities"
	"github.com/vsinha/craftsman/pkg/domain/errs"
	"github.com/vsinha/craftsman/pkg/domain/services"
	"github.com/vsinha/craftsman/pkg/infrastructure/events"
	"github.com/vsinha/craftsman/pkg/infrastructure/repositories/memory"
	testhelpers "github.com/vsinha/craftsman/pkg/infrastructure/testing"
)

var fixedNow = time.Date(2025, 12, 12, 5, 0, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Handle(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) ofType(eventType string) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type() == eventType {
			out = append(out, e)
		}
	}
	return out
}

func newTestService(store *memory.Store) (*Service, *events.Bus, *recorder) {
	bus := events.NewBus()
	rec := &recorder{}
	bus.SubscribeAll(rec)
	codes := services.NewCodeGenerator(memory.NewSequenceRepository(), "WO", testhelpers.Clock(fixedNow))
	return NewService(store, bus, codes, shared.DefaultSettings(), testhelpers.Clock(fixedNow), nil), bus, rec
}

func mustCreate(t *testing.T, s *Service, recipe, qty string) *entities.WorkOrder {
	t.Helper()
	wo, err := s.Create(context.Background(), CreateRequest{RecipeCode: recipe, Quantity: testhelpers.D(qty), Destination: "vitrine"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return wo
}

func TestService_Create_SequentialCodes(t *testing.T) {
	service, _, _ := newTestService(testhelpers.NewBakeryStore())

	seen := make(map[string]bool)
	previous := ""
	for i := 0; i < 10; i++ {
		wo := mustCreate(t, service, testhelpers.Croissant, "10")
		if seen[wo.Code] {
			t.Fatalf("Expected distinct codes, got %s twice", wo.Code)
		}
		if wo.Code <= previous {
			t.Errorf("Expected %s to follow %s", wo.Code, previous)
		}
		seen[wo.Code] = true
		previous = wo.Code
	}
	if previous != "WO-2025-00010" {
		t.Errorf("Expected last code WO-2025-00010, got %s", previous)
	}
}

func TestService_Create_Validation(t *testing.T) {
	service, _, _ := newTestService(testhelpers.NewBakeryStore())

	tests := []struct {
		name   string
		req    CreateRequest
		target error
	}{
		{"zero quantity", CreateRequest{RecipeCode: testhelpers.Croissant, Quantity: decimal.Zero}, errs.ErrInvalidQuantity},
		{"negative quantity", CreateRequest{RecipeCode: testhelpers.Croissant, Quantity: decimal.NewFromInt(-1)}, errs.ErrInvalidQuantity},
		{"unknown recipe", CreateRequest{RecipeCode: "baguette", Quantity: decimal.NewFromInt(1)}, errs.ErrRecipeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := service.Create(context.Background(), tt.req); !errors.Is(err, tt.target) {
				t.Errorf("Expected %v, got %v", tt.target, err)
			}
		})
	}
}

func TestService_Create_ScheduleWindow(t *testing.T) {
	service, _, _ := newTestService(testhelpers.NewBakeryStore())
	start := time.Date(2025, 12, 12, 4, 0, 0, 0, time.UTC)

	wo, err := service.Create(context.Background(), CreateRequest{
		RecipeCode:     testhelpers.FrenchBread,
		Quantity:       decimal.NewFromInt(40),
		ScheduledStart: &start,
		Code:           "MANUAL-1",
		Actor:          "ana",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if wo.Code != "MANUAL-1" {
		t.Errorf("Expected explicit code, got %s", wo.Code)
	}
	if wo.ScheduledEnd == nil || !wo.ScheduledEnd.Equal(start.Add(3*time.Hour)) {
		t.Errorf("Expected end at 07:00, got %v", wo.ScheduledEnd)
	}
	if wo.CreatedBy != "user:ana" {
		t.Errorf("Expected created by user:ana, got %s", wo.CreatedBy)
	}
}

func TestService_CreateBatch(t *testing.T) {
	service, _, _ := newTestService(testhelpers.NewBakeryStore())
	first := time.Date(2000, 1, 1, 5, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		start  *time.Time
		starts []time.Time
	}{
		{"default hour", nil, []time.Time{
			time.Date(2025, 12, 13, 6, 0, 0, 0, time.UTC),
			time.Date(2025, 12, 13, 9, 0, 0, 0, time.UTC),
			time.Date(2025, 12, 13, 13, 0, 0, 0, time.UTC),
		}},
		{"explicit start", &first, []time.Time{
			time.Date(2025, 12, 13, 5, 30, 0, 0, time.UTC),
			time.Date(2025, 12, 13, 8, 30, 0, 0, time.UTC),
			time.Date(2025, 12, 13, 12, 30, 0, 0, time.UTC),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders, err := service.CreateBatch(context.Background(), BatchRequest{
				Date:      time.Date(2025, 12, 13, 0, 0, 0, 0, time.UTC),
				StartTime: tt.start,
				Location:  "bakery",
				Items: []BatchItem{
					{RecipeCode: testhelpers.FrenchBread, Quantity: decimal.NewFromInt(40)},
					{RecipeCode: testhelpers.Croissant, Quantity: decimal.NewFromInt(30), Location: "lab"},
					{RecipeCode: testhelpers.Brioche, Quantity: decimal.NewFromInt(12)},
				},
			})
			if err != nil {
				t.Fatalf("CreateBatch failed: %v", err)
			}
			for i, wo := range orders {
				if !wo.ScheduledStart.Equal(tt.starts[i]) {
					t.Errorf("Expected order %d to start at %v, got %v", i, tt.starts[i], wo.ScheduledStart)
				}
			}
			if orders[0].Location != "bakery" || orders[1].Location != "lab" {
				t.Errorf("Expected per item location override, got %s and %s", orders[0].Location, orders[1].Location)
			}
		})
	}
}

func TestService_CreateBatch_AllOrNothing(t *testing.T) {
	store := testhelpers.NewBakeryStore()
	service, _, _ := newTestService(store)

	_, err := service.CreateBatch(context.Background(), BatchRequest{
		Date: fixedNow,
		Items: []BatchItem{
			{RecipeCode: testhelpers.FrenchBread, Quantity: decimal.NewFromInt(40)},
			{RecipeCode: "baguette", Quantity: decimal.NewFromInt(30)},
		},
	})
	if !errors.Is(err, errs.ErrRecipeNotFound) {
		t.Fatalf("Expected RECIPE_NOT_FOUND, got %v", err)
	}
	pending, _ := service.Pending(context.Background(), time.Time{}, "")
	if len(pending) != 0 {
		t.Errorf("Expected no stored orders, got %d", len(pending))
	}
}

func TestService_StepFlow(t *testing.T) {
	service, _, rec := newTestService(testhelpers.NewBakeryStore())
	ctx := context.Background()
	wo := mustCreate(t, service, testhelpers.FrenchBread, "50")

	steps := []struct {
		name string
		qty  int64
	}{{"Mixing", 50}, {"Shaping", 48}, {"Baking", 45}}

	var err error
	for _, s := range steps {
		wo, err = service.Step(ctx, wo.ID, s.name, decimal.NewFromInt(s.qty), "ana")
		if err != nil {
			t.Fatalf("Step %s failed: %v", s.name, err)
		}
	}

	if wo.Status != entities.WorkOrderCompleted {
		t.Fatalf("Expected completed, got %s", wo.Status)
	}
	if !wo.ActualQuantity.Decimal.Equal(decimal.NewFromInt(45)) {
		t.Errorf("Expected actual 45, got %s", wo.ActualQuantity.Decimal)
	}

	needed := rec.ofType(events.MaterialsNeededEvent)
	if len(needed) != 1 {
		t.Fatalf("Expected one materials needed event, got %d", len(needed))
	}
	payload := needed[0].Data().(events.MaterialsNeeded)
	if len(payload.Requirements) != 1 || !payload.Requirements[0].Quantity.Equal(decimal.NewFromInt(5)) {
		t.Errorf("Expected 5 kg of dough required, got %+v", payload.Requirements)
	}

	completed := rec.ofType(events.ProductionCompletedEvent)
	if len(completed) != 1 {
		t.Fatalf("Expected one production completed event, got %d", len(completed))
	}
	done := completed[0].Data().(events.ProductionCompleted)
	if !done.ActualQuantity.Equal(decimal.NewFromInt(45)) || done.Output.SKU != "BREAD-FR" || done.Actor != "ana" {
		t.Errorf("Unexpected completion payload %+v", done)
	}

	stored, _ := service.Get(ctx, wo.ID)
	if len(stored.StepLog) != 3 || stored.CompletedBy != "ana" {
		t.Errorf("Expected 3 persisted steps completed by ana, got %d by %s", len(stored.StepLog), stored.CompletedBy)
	}

	if _, err := service.Complete(ctx, wo.ID, decimal.NullDecimal{}, "ana"); err != nil {
		t.Errorf("Expected completing twice to be a no-op, got %v", err)
	}
	if len(rec.ofType(events.ProductionCompletedEvent)) != 1 {
		t.Error("Expected no second completion event")
	}
}

func TestService_Step_MaterialsRefusedRollsBack(t *testing.T) {
	service, bus, _ := newTestService(testhelpers.NewBakeryStore())
	bus.Subscribe(events.ListenerFunc(func(context.Context, events.Event) error {
		return errs.New(errs.InsufficientMaterials, "sku", "DOUGH-FR")
	}), events.MaterialsNeededEvent)
	ctx := context.Background()
	wo := mustCreate(t, service, testhelpers.FrenchBread, "50")

	if _, err := service.Step(ctx, wo.ID, "Mixing", decimal.NewFromInt(50), ""); !errors.Is(err, errs.ErrInsufficientMaterials) {
		t.Fatalf("Expected INSUFFICIENT_MATERIALS, got %v", err)
	}
	if _, err := service.Start(ctx, wo.ID, ""); !errors.Is(err, errs.ErrInsufficientMaterials) {
		t.Fatalf("Expected INSUFFICIENT_MATERIALS on start, got %v", err)
	}

	stored, _ := service.Get(ctx, wo.ID)
	if stored.Status != entities.WorkOrderPending || len(stored.StepLog) != 0 || stored.StartedAt != nil {
		t.Errorf("Expected the order untouched, got %s with %d steps", stored.Status, len(stored.StepLog))
	}
}

func TestService_PauseResumeCancel(t *testing.T) {
	service, _, rec := newTestService(testhelpers.NewBakeryStore())
	ctx := context.Background()
	wo := mustCreate(t, service, testhelpers.Croissant, "30")

	if _, err := service.Pause(ctx, wo.ID, "oven down"); !errors.Is(err, errs.ErrInvalidStatus) {
		t.Errorf("Expected pausing a pending order to fail, got %v", err)
	}
	if _, err := service.Start(ctx, wo.ID, "ana"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := service.Start(ctx, wo.ID, "ana"); !errors.Is(err, errs.ErrInvalidStatus) {
		t.Errorf("Expected second start to fail, got %v", err)
	}
	if _, err := service.Pause(ctx, wo.ID, "oven down"); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	if _, err := service.Step(ctx, wo.ID, "Laminating", decimal.NewFromInt(30), ""); !errors.Is(err, errs.ErrInvalidStatus) {
		t.Errorf("Expected step on paused order to fail, got %v", err)
	}
	if _, err := service.Resume(ctx, wo.ID); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if _, err := service.Step(ctx, wo.ID, "Laminating", decimal.NewFromInt(30), ""); err != nil {
		t.Errorf("Expected step after resume to succeed, got %v", err)
	}

	cancelled, err := service.Cancel(ctx, wo.ID, "customer cancelled")
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if !strings.Contains(cancelled.Notes, "[PAUSED] oven down") || !strings.Contains(cancelled.Notes, "[CANCELLED] customer cancelled") {
		t.Errorf("Expected pause and cancel notes, got %q", cancelled.Notes)
	}
	if len(rec.ofType(events.OrderCancelledEvent)) != 1 {
		t.Error("Expected one order cancelled event")
	}
	if len(rec.ofType(events.MaterialsNeededEvent)) != 1 {
		t.Error("Expected materials needed only on start")
	}
	if _, err := service.Cancel(ctx, wo.ID, "again"); !errors.Is(err, errs.ErrInvalidStatus) {
		t.Errorf("Expected cancelling twice to fail, got %v", err)
	}
}

func TestService_ConcurrentFinalStep(t *testing.T) {
	service, _, rec := newTestService(testhelpers.NewBakeryStore())
	ctx := context.Background()
	wo := mustCreate(t, service, testhelpers.FrenchBread, "50")

	for _, step := range []string{"Mixing", "Shaping"} {
		if _, err := service.Step(ctx, wo.ID, step, decimal.NewFromInt(50), ""); err != nil {
			t.Fatalf("Step %s failed: %v", step, err)
		}
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Step(ctx, wo.ID, "Baking", decimal.NewFromInt(45), "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case !errors.Is(err, errs.ErrInvalidStatus):
			t.Errorf("Expected INVALID_STATUS for late callers, got %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("Expected exactly one final step to succeed, got %d", succeeded)
	}
	if n := len(rec.ofType(events.ProductionCompletedEvent)); n != 1 {
		t.Errorf("Expected one completion event, got %d", n)
	}

	stored, _ := service.Get(ctx, wo.ID)
	if len(stored.StepLog) != 3 {
		t.Errorf("Expected 3 steps logged, got %d", len(stored.StepLog))
	}
	if service.locks.size() != 0 {
		t.Errorf("Expected lock entries to be released, got %d", service.locks.size())
	}
}

func TestService_Queries(t *testing.T) {
	store := testhelpers.NewBakeryStore()
	service, _, _ := newTestService(store)
	ctx := context.Background()

	start := time.Date(2025, 12, 12, 6, 0, 0, 0, time.UTC)
	later := start.Add(2 * time.Hour)
	a, _ := service.Create(ctx, CreateRequest{RecipeCode: testhelpers.Croissant, Quantity: decimal.NewFromInt(1), ScheduledStart: &later, Location: "lab"})
	b, _ := service.Create(ctx, CreateRequest{RecipeCode: testhelpers.Brioche, Quantity: decimal.NewFromInt(1), ScheduledStart: &start, Location: "lab"})
	c, _ := service.Create(ctx, CreateRequest{RecipeCode: testhelpers.Brioche, Quantity: decimal.NewFromInt(1), ScheduledStart: &start, Location: "shop"})

	pending, err := service.Pending(ctx, start, "lab")
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != b.ID || pending[1].ID != a.ID {
		t.Errorf("Expected lab orders by start time, got %d orders", len(pending))
	}

	if _, err := service.Start(ctx, c.ID, ""); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	running, _ := service.InProgress(ctx, "")
	if len(running) != 1 || running[0].ID != c.ID {
		t.Errorf("Expected one running order, got %d", len(running))
	}

	byCode, err := service.GetByCode(ctx, a.Code)
	if err != nil || byCode.ID != a.ID {
		t.Errorf("Expected lookup by code to find %s, got %v", a.Code, err)
	}
	if _, err := service.GetByCode(ctx, "WO-1999-00001"); !errors.Is(err, errs.ErrWorkOrderNotFound) {
		t.Errorf("Expected WORK_ORDER_NOT_FOUND, got %v", err)
	}
}

// finishes fails the test when fn does not return in time
func finishes(t *testing.T, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Expected the call to return, it blocked")
	}
}

func TestService_ListenersUseTheStepTransaction(t *testing.T) {
	service, bus, _ := newTestService(testhelpers.NewBakeryStore())
	ctx := context.Background()
	wo := mustCreate(t, service, testhelpers.FrenchBread, "50")

	var seen string
	var dough *entities.WorkOrder
	bus.Subscribe(events.ListenerFunc(func(ctx context.Context, event events.Event) error {
		data := event.Data().(events.MaterialsNeeded)
		current, err := service.Get(ctx, data.WorkOrder.ID)
		if err != nil {
			return err
		}
		seen = current.Status.String()
		dough, err = service.Create(ctx, CreateRequest{RecipeCode: testhelpers.FrenchBreadDough, Quantity: decimal.NewFromInt(5)})
		return err
	}), events.MaterialsNeededEvent)

	finishes(t, func() {
		if _, err := service.Step(ctx, wo.ID, "Mixing", decimal.NewFromInt(50), "ana"); err != nil {
			t.Errorf("Step failed: %v", err)
		}
	})

	if seen != "pending" {
		t.Errorf("Expected the listener to read the stored pending order, got %q", seen)
	}
	if dough == nil {
		t.Fatal("Expected the listener to create a dough order")
	}
	if _, err := service.Get(ctx, dough.ID); err != nil {
		t.Errorf("Expected the dough order committed with the step, got %v", err)
	}
}

func TestService_ListenerWritesRollBackWithStep(t *testing.T) {
	service, bus, _ := newTestService(testhelpers.NewBakeryStore())
	ctx := context.Background()
	wo := mustCreate(t, service, testhelpers.FrenchBread, "50")

	var dough *entities.WorkOrder
	bus.Subscribe(events.ListenerFunc(func(ctx context.Context, _ events.Event) error {
		var err error
		dough, err = service.Create(ctx, CreateRequest{RecipeCode: testhelpers.FrenchBreadDough, Quantity: decimal.NewFromInt(5)})
		return err
	}), events.MaterialsNeededEvent)
	bus.Subscribe(events.ListenerFunc(func(context.Context, events.Event) error {
		return errs.New(errs.InsufficientMaterials, "sku", "DOUGH-FR")
	}), events.MaterialsNeededEvent)

	finishes(t, func() {
		if _, err := service.Step(ctx, wo.ID, "Mixing", decimal.NewFromInt(50), "ana"); !errors.Is(err, errs.ErrInsufficientMaterials) {
			t.Errorf("Expected INSUFFICIENT_MATERIALS, got %v", err)
		}
	})

	if dough == nil {
		t.Fatal("Expected the listener to run")
	}
	if _, err := service.Get(ctx, dough.ID); !errors.Is(err, errs.ErrWorkOrderNotFound) {
		t.Errorf("Expected the dough order rolled back, got %v", err)
	}
}

func TestService_Complete_ActualQuantity(t *testing.T) {
	tests := []struct {
		name    string
		actual  int64
		wantErr error
	}{
		{"total loss", 0, nil},
		{"partial", 31, nil},
		{"negative", -1, errs.ErrInvalidQuantity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _, rec := newTestService(testhelpers.NewBakeryStore())
			ctx := context.Background()
			wo := mustCreate(t, service, testhelpers.Croissant, "40")

			done, err := service.Complete(ctx, wo.ID, decimal.NewNullDecimal(decimal.NewFromInt(tt.actual)), "ana")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr != nil {
				return
			}
			if done.Status != entities.WorkOrderCompleted || !done.ActualQuantity.Decimal.Equal(decimal.NewFromInt(tt.actual)) {
				t.Errorf("Expected completed with %d, got %s with %s", tt.actual, done.Status, done.ActualQuantity.Decimal)
			}
			if len(rec.ofType(events.ProductionCompletedEvent)) != 1 {
				t.Error("Expected one production completed event")
			}
		})
	}
}
