package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"timesheet.service/internal/core/model"
	"timesheet.service/internal/core/period"
)

// MemoryRepository is a process-local Repository used for local development and tests.
// A transaction works on a private copy of the state that replaces the shared state on commit.
// Transactions and writes outside of one are serialized; reads see committed state only.
type MemoryRepository struct {
	txMu  *sync.Mutex // nil on the copy a transaction works on
	mu    sync.Mutex
	state *memState
	now   func() time.Time
}

type weekKey struct {
	employeeID string
	weekStart  string
}

type periodKey struct {
	start string
	end   string
}

type memState struct {
	employees     map[string]model.Employee
	employeeOrder []string
	weeks         map[string]model.WeekTimesheet
	weekIndex     map[weekKey]string
	days          map[string]map[string]model.DayShift
	payRuns       map[string]model.PayRun
	payRunIndex   map[periodKey]string
	items         map[string]map[string]model.PayRunItem
}

func newMemState() *memState {
	return &memState{
		employees:   map[string]model.Employee{},
		weeks:       map[string]model.WeekTimesheet{},
		weekIndex:   map[weekKey]string{},
		days:        map[string]map[string]model.DayShift{},
		payRuns:     map[string]model.PayRun{},
		payRunIndex: map[periodKey]string{},
		items:       map[string]map[string]model.PayRunItem{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.employees {
		c.employees[k] = v
	}
	c.employeeOrder = append([]string(nil), s.employeeOrder...)
	for k, v := range s.weeks {
		c.weeks[k] = v
	}
	for k, v := range s.weekIndex {
		c.weekIndex[k] = v
	}
	for k, byDate := range s.days {
		m := make(map[string]model.DayShift, len(byDate))
		for d, v := range byDate {
			m[d] = v
		}
		c.days[k] = m
	}
	for k, v := range s.payRuns {
		c.payRuns[k] = v
	}
	for k, v := range s.payRunIndex {
		c.payRunIndex[k] = v
	}
	for k, byEmp := range s.items {
		m := make(map[string]model.PayRunItem, len(byEmp))
		for e, v := range byEmp {
			m[e] = v
		}
		c.items[k] = m
	}
	return c
}

// NewMemoryRepository creates an empty in-memory store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		txMu:  &sync.Mutex{},
		state: newMemState(),
		now:   time.Now,
	}
}

// write locks the store for a mutation and returns the matching unlock.
func (r *MemoryRepository) write() func() {
	if r.txMu != nil {
		r.txMu.Lock()
	}
	r.mu.Lock()
	return func() {
		r.mu.Unlock()
		if r.txMu != nil {
			r.txMu.Unlock()
		}
	}
}

// WithinTx runs fn against a private copy of the store. Nested calls join the outer transaction.
func (r *MemoryRepository) WithinTx(ctx context.Context, fn func(tx Repository) error) error {
	if r.txMu == nil {
		return fn(r)
	}

	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.Lock()
	tx := &MemoryRepository{state: r.state.clone(), now: r.now}
	r.mu.Unlock()

	if err := fn(tx); err != nil {
		return err
	}

	r.mu.Lock()
	r.state = tx.state
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) CreateEmployee(ctx context.Context, e *model.Employee) error {
	defer r.write()()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now()
	}
	r.state.employees[e.ID] = *e
	r.state.employeeOrder = append(r.state.employeeOrder, e.ID)
	return nil
}

func (r *MemoryRepository) UpdateEmployee(ctx context.Context, e *model.Employee) error {
	defer r.write()()

	existing, ok := r.state.employees[e.ID]
	if !ok {
		return &model.NotFoundError{Entity: "employee", ID: e.ID}
	}
	e.CreatedAt = existing.CreatedAt
	r.state.employees[e.ID] = *e
	return nil
}

func (r *MemoryRepository) DeleteEmployee(ctx context.Context, id string) error {
	defer r.write()()

	if _, ok := r.state.employees[id]; !ok {
		return &model.NotFoundError{Entity: "employee", ID: id}
	}
	delete(r.state.employees, id)
	for i, eid := range r.state.employeeOrder {
		if eid == id {
			r.state.employeeOrder = append(r.state.employeeOrder[:i], r.state.employeeOrder[i+1:]...)
			break
		}
	}
	for key, weekID := range r.state.weekIndex {
		if key.employeeID == id {
			delete(r.state.weekIndex, key)
			delete(r.state.weeks, weekID)
			delete(r.state.days, weekID)
		}
	}
	for _, byEmp := range r.state.items {
		delete(byEmp, id)
	}
	return nil
}

func (r *MemoryRepository) GetEmployee(ctx context.Context, id string) (*model.Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.state.employees[id]
	if !ok {
		return nil, &model.NotFoundError{Entity: "employee", ID: id}
	}
	return &e, nil
}

func (r *MemoryRepository) ListEmployees(ctx context.Context) ([]model.Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.Employee, 0, len(r.state.employeeOrder))
	for _, id := range r.state.employeeOrder {
		out = append(out, r.state.employees[id])
	}
	return out, nil
}

func (r *MemoryRepository) EnsureWeek(ctx context.Context, employeeID string, weekStart time.Time) (*model.WeekTimesheet, error) {
	defer r.write()()

	if _, ok := r.state.employees[employeeID]; !ok {
		return nil, &model.NotFoundError{Entity: "employee", ID: employeeID}
	}

	key := weekKey{employeeID: employeeID, weekStart: period.FormatDate(weekStart)}
	if id, ok := r.state.weekIndex[key]; ok {
		w := r.state.weeks[id]
		return &w, nil
	}

	w := model.WeekTimesheet{
		ID:               uuid.NewString(),
		EmployeeID:       employeeID,
		WeekStart:        weekStart,
		Status:           model.WeekStatusDraft,
		MissingDaysCount: period.DaysPerWeek,
	}
	r.state.weeks[w.ID] = w
	r.state.weekIndex[key] = w.ID
	return &w, nil
}

func (r *MemoryRepository) ListWeeks(ctx context.Context, filter WeekFilter) ([]model.WeekTimesheet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []model.WeekTimesheet
	for _, w := range r.state.weeks {
		if filter.EmployeeID != "" && w.EmployeeID != filter.EmployeeID {
			continue
		}
		if !filter.From.IsZero() && w.WeekStart.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && w.WeekStart.After(filter.To) {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EmployeeID != out[j].EmployeeID {
			return out[i].EmployeeID < out[j].EmployeeID
		}
		return out[i].WeekStart.Before(out[j].WeekStart)
	})
	return out, nil
}

func (r *MemoryRepository) UpdateWeekTotals(ctx context.Context, weekID string, totals WeekTotals) error {
	defer r.write()()

	w, ok := r.state.weeks[weekID]
	if !ok {
		return &model.NotFoundError{Entity: "week", ID: weekID}
	}
	w.TotalMinutes = totals.TotalMinutes
	w.TotalWage = totals.TotalWage
	w.MissingDaysCount = totals.MissingDaysCount
	r.state.weeks[weekID] = w
	return nil
}

func (r *MemoryRepository) UpdateWeekStatus(ctx context.Context, weekID string, status model.WeekStatus) error {
	defer r.write()()

	w, ok := r.state.weeks[weekID]
	if !ok {
		return &model.NotFoundError{Entity: "week", ID: weekID}
	}
	w.Status = status
	r.state.weeks[weekID] = w
	return nil
}

func (r *MemoryRepository) ListDayShifts(ctx context.Context, weekID string) ([]model.DayShift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.DayShift, 0, len(r.state.days[weekID]))
	for _, d := range r.state.days[weekID] {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *MemoryRepository) UpsertDayShift(ctx context.Context, weekID string, day model.DayShift) error {
	defer r.write()()

	if _, ok := r.state.weeks[weekID]; !ok {
		return &model.NotFoundError{Entity: "week", ID: weekID}
	}
	byDate, ok := r.state.days[weekID]
	if !ok {
		byDate = map[string]model.DayShift{}
		r.state.days[weekID] = byDate
	}
	byDate[period.FormatDate(day.Date)] = day
	return nil
}

func (r *MemoryRepository) UpsertPayRun(ctx context.Context, periodStart, periodEnd time.Time) (*model.PayRun, error) {
	defer r.write()()

	key := periodKey{start: period.FormatDate(periodStart), end: period.FormatDate(periodEnd)}
	if id, ok := r.state.payRunIndex[key]; ok {
		pr := r.state.payRuns[id]
		pr.UpdatedAt = r.now()
		r.state.payRuns[id] = pr
		return &pr, nil
	}

	now := r.now()
	pr := model.PayRun{
		ID:          uuid.NewString(),
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Status:      model.PayRunStatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.state.payRuns[pr.ID] = pr
	r.state.payRunIndex[key] = pr.ID
	return &pr, nil
}

func (r *MemoryRepository) GetPayRun(ctx context.Context, id string) (*model.PayRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pr, ok := r.state.payRuns[id]
	if !ok {
		return nil, &model.NotFoundError{Entity: "pay run", ID: id}
	}
	return &pr, nil
}

func (r *MemoryRepository) ListPayRuns(ctx context.Context) ([]model.PayRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.PayRun, 0, len(r.state.payRuns))
	for _, pr := range r.state.payRuns {
		out = append(out, pr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodStart.After(out[j].PeriodStart) })
	return out, nil
}

func (r *MemoryRepository) updatePayRun(id string, fn func(pr *model.PayRun)) error {
	defer r.write()()

	pr, ok := r.state.payRuns[id]
	if !ok {
		return &model.NotFoundError{Entity: "pay run", ID: id}
	}
	fn(&pr)
	pr.UpdatedAt = r.now()
	r.state.payRuns[id] = pr
	return nil
}

func (r *MemoryRepository) UpdatePayRunStatus(ctx context.Context, id string, status model.PayRunStatus, paidAt *time.Time) error {
	return r.updatePayRun(id, func(pr *model.PayRun) {
		pr.Status = status
		pr.PaidAt = paidAt
	})
}

func (r *MemoryRepository) UpdatePayrollStatus(ctx context.Context, id string, status model.DeliveryStatus, retryCount int) error {
	return r.updatePayRun(id, func(pr *model.PayRun) {
		pr.PayrollStatus = status
		pr.PayrollRetryCount = retryCount
	})
}

func (r *MemoryRepository) UpdateEmailStatus(ctx context.Context, id string, status model.DeliveryStatus, retryCount int) error {
	return r.updatePayRun(id, func(pr *model.PayRun) {
		pr.EmailStatus = status
		pr.EmailRetryCount = retryCount
	})
}

func (r *MemoryRepository) ReplacePayRunItems(ctx context.Context, payRunID string, items []model.PayRunItem) error {
	defer r.write()()

	if _, ok := r.state.payRuns[payRunID]; !ok {
		return &model.NotFoundError{Entity: "pay run", ID: payRunID}
	}

	existing := r.state.items[payRunID]
	next := make(map[string]model.PayRunItem, len(items))
	for _, it := range items {
		it.PayRunID = payRunID
		if prev, ok := existing[it.EmployeeID]; ok {
			it.ID = prev.ID
		} else if it.ID == "" {
			it.ID = uuid.NewString()
		}
		next[it.EmployeeID] = it
	}
	r.state.items[payRunID] = next
	return nil
}

func (r *MemoryRepository) ListPayRunItems(ctx context.Context, payRunID string) ([]model.PayRunItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.PayRunItem, 0, len(r.state.items[payRunID]))
	for _, it := range r.state.items[payRunID] {
		if e, ok := r.state.employees[it.EmployeeID]; ok {
			it.EmployeeName = e.Name
			it.EmployeeHourlyWage = e.HourlyWage
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

func (r *MemoryRepository) HasPaidPayRunOverlapping(ctx context.Context, employeeID string, start, end time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, pr := range r.state.payRuns {
		if pr.Status != model.PayRunStatusPaid {
			continue
		}
		if _, ok := r.state.items[id][employeeID]; !ok {
			continue
		}
		if period.Overlaps(pr.PeriodStart, pr.PeriodEnd, start, end) {
			return true, nil
		}
	}
	return false, nil
}
