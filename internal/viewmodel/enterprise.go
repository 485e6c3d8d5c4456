// Package viewmodel binds the async orchestration layer to the domain:
// each view-model owns an executor, a UI-bound collection and the load,
// refresh and export operations the UI triggers against them.
package viewmodel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"muniflow/internal/async"
	"muniflow/internal/collection"
	"muniflow/internal/dispatch"
	"muniflow/internal/domain"
	"muniflow/internal/exporter"
)

// LoadOutcome distinguishes the results of a timeout-raced load
type LoadOutcome int

const (
	// OutcomeLoaded means the load finished before the deadline
	OutcomeLoaded LoadOutcome = iota
	// OutcomeTimedOut means the delay won the race; not a success and
	// not a failure, and surfaced with its own user-facing message
	OutcomeTimedOut
	// OutcomeSkipped means another load already held the guard
	OutcomeSkipped
	// OutcomeFailed means the load ended in a terminal failure
	OutcomeFailed
)

// String returns the user-facing label for the outcome
func (o LoadOutcome) String() string {
	switch o {
	case OutcomeLoaded:
		return "loaded"
	case OutcomeTimedOut:
		return "timed out waiting for data"
	case OutcomeSkipped:
		return "a load is already running"
	case OutcomeFailed:
		return "load failed"
	default:
		return "unknown"
	}
}

// BudgetSummary aggregates the loaded enterprises for the analytics panel
type BudgetSummary struct {
	TotalRevenue   float64   `json:"total_revenue"`
	TotalExpenses  float64   `json:"total_expenses"`
	TotalSurplus   float64   `json:"total_surplus"`
	ActiveCount    int       `json:"active_count"`
	EnterpriseRows int       `json:"enterprise_rows"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// EnterpriseViewModel drives the enterprise list shown by the UI
type EnterpriseViewModel struct {
	logger   *slog.Logger
	repo     domain.Repository
	executor *async.Executor
	bridge   dispatch.Bridge
	retries  int

	// Enterprises is the UI-bound ordered collection
	Enterprises *collection.Collection[domain.Enterprise]

	mu      sync.Mutex
	summary BudgetSummary
}

// NewEnterpriseViewModel creates the view-model. retries is the retry
// bound applied to load operations.
func NewEnterpriseViewModel(logger *slog.Logger, repo domain.Repository, bridge dispatch.Bridge, executor *async.Executor, retries int) *EnterpriseViewModel {
	if logger == nil {
		logger = slog.Default()
	}
	return &EnterpriseViewModel{
		logger:      logger,
		repo:        repo,
		executor:    executor,
		bridge:      bridge,
		retries:     retries,
		Enterprises: collection.New[domain.Enterprise](bridge),
	}
}

// Snapshot reads the bound collection on the UI-confined context and
// returns a copy, so any goroutine can observe a consistent list.
func (vm *EnterpriseViewModel) Snapshot(ctx context.Context) ([]domain.Enterprise, error) {
	var out []domain.Enterprise
	err := vm.bridge.Invoke(ctx, func(ctx context.Context) error {
		out = vm.Enterprises.Items()
		return nil
	})
	return out, err
}

// Executor exposes the underlying executor for state binding
func (vm *EnterpriseViewModel) Executor() *async.Executor { return vm.executor }

// Load fetches all enterprises and replaces the bound collection. At
// most one load is in flight; a concurrent call returns
// async.ErrDuplicateRequest and does no work. Transient fetch failures
// are retried with exponential backoff.
func (vm *EnterpriseViewModel) Load(ctx context.Context) error {
	return vm.executor.Execute(ctx, vm.loadOperation,
		async.WithName("load_enterprises"),
		async.WithStatusMessage("Loading enterprises..."),
		async.WithRetries(vm.retries))
}

// Refresh re-runs the load. Callers triggering it from timers should
// treat a duplicate skip as a no-op.
func (vm *EnterpriseViewModel) Refresh(ctx context.Context) error {
	return vm.Load(ctx)
}

func (vm *EnterpriseViewModel) loadOperation(ctx context.Context) error {
	vm.executor.Progress().ReportMessage("Fetching enterprises", 10)

	enterprises, err := vm.repo.FetchAll(ctx)
	if err != nil {
		return err
	}

	vm.executor.Progress().ReportMessage("Updating view", 70)
	if err := vm.Enterprises.ReplaceAll(ctx, enterprises); err != nil {
		return err
	}

	vm.recomputeSummary(enterprises)
	return nil
}

// LoadWithTimeout races Load against a fixed delay. A load that outlives
// the delay yields OutcomeTimedOut; the in-flight work is cancelled in
// the background so the guard frees for the next attempt.
func (vm *EnterpriseViewModel) LoadWithTimeout(ctx context.Context, timeout time.Duration) (LoadOutcome, error) {
	loadCtx, cancel := context.WithCancel(ctx)

	done := make(chan error, 1)
	go func() {
		done <- vm.Load(loadCtx)
	}()

	select {
	case err := <-done:
		cancel()
		switch {
		case err == nil:
			return OutcomeLoaded, nil
		case async.IsDuplicate(err):
			return OutcomeSkipped, nil
		case async.IsCancellation(err):
			return OutcomeTimedOut, nil
		default:
			return OutcomeFailed, err
		}
	case <-time.After(timeout):
		vm.logger.InfoContext(ctx, "load_timeout_race_lost",
			slog.Duration("timeout", timeout))
		cancel()
		return OutcomeTimedOut, nil
	}
}

// StartAutoRefresh triggers Refresh on the given interval until the
// returned stop function is called. Duplicate skips while a manual load
// is in flight are expected and ignored.
func (vm *EnterpriseViewModel) StartAutoRefresh(ctx context.Context, interval time.Duration) (stop func()) {
	ticker := time.NewTicker(interval)
	stopCh := make(chan struct{})
	var once sync.Once

	go func() {
		for {
			select {
			case <-stopCh:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := vm.Refresh(ctx); err != nil && !async.IsDuplicate(err) && !async.IsCancellation(err) {
					vm.logger.WarnContext(ctx, "auto_refresh_failed",
						slog.String("error", err.Error()))
				}
			}
		}
	}()

	return func() {
		once.Do(func() {
			ticker.Stop()
			close(stopCh)
		})
	}
}

// BudgetSummary returns the aggregates from the most recent load
func (vm *EnterpriseViewModel) BudgetSummary() BudgetSummary {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.summary
}

func (vm *EnterpriseViewModel) recomputeSummary(enterprises []domain.Enterprise) {
	var s BudgetSummary
	for _, e := range enterprises {
		s.TotalRevenue += e.MonthlyRevenue()
		s.TotalExpenses += e.MonthlyExpenses
		if e.Status == domain.StatusActive {
			s.ActiveCount++
		}
	}
	s.TotalSurplus = s.TotalRevenue - s.TotalExpenses
	s.EnterpriseRows = len(enterprises)
	s.GeneratedAt = time.Now()

	vm.mu.Lock()
	vm.summary = s
	vm.mu.Unlock()
}

// ReportFormat selects the export writer
type ReportFormat string

const (
	FormatCSV   ReportFormat = "csv"
	FormatExcel ReportFormat = "xlsx"
)

// ReportExporter runs report exports as tracked multi-phase operations
type ReportExporter struct {
	logger   *slog.Logger
	repo     domain.Repository
	executor *async.Executor
	csv      *exporter.CSVWriter
	excel    *exporter.ExcelWriter
}

// NewReportExporter creates the export view-model. It owns its executor
// so exports and loads do not contend for the same guard.
func NewReportExporter(logger *slog.Logger, repo domain.Repository, executor *async.Executor, csv *exporter.CSVWriter, excel *exporter.ExcelWriter) *ReportExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportExporter{logger: logger, repo: repo, executor: executor, csv: csv, excel: excel}
}

// Executor exposes the export executor so the application can close it
// on shutdown
func (r *ReportExporter) Executor() *async.Executor { return r.executor }

// ExportSteps returns the phase sequence of one export run
func ExportSteps() []async.ProgressStep {
	return []async.ProgressStep{
		{Title: "Fetch", Description: "Fetch enterprise data"},
		{Title: "Compose", Description: "Assemble budget report"},
		{Title: "Write", Description: "Write report file"},
	}
}

// Export fetches data and writes the report in the requested format,
// driving the step tracker through fetch, compose and write phases.
// The written file path is reported via the returned string.
func (r *ReportExporter) Export(ctx context.Context, format ReportFormat) (string, *async.StepTracker, error) {
	tracker := async.NewStepTracker(ExportSteps())
	var path string

	err := r.executor.Execute(ctx, func(ctx context.Context) error {
		tracker.UpdateProgress(0, "Fetching enterprises")
		enterprises, err := r.repo.FetchAll(ctx)
		if err != nil {
			return err
		}

		tracker.UpdateProgress(1, "Assembling budget rows")
		budgets := make([]domain.BudgetSnapshot, 0, len(enterprises))
		for _, e := range enterprises {
			rows, err := r.repo.FetchBudgets(ctx, e.ID)
			if err != nil {
				return err
			}
			budgets = append(budgets, rows...)
		}

		tracker.UpdateProgress(2, "Writing report")
		name := fmt.Sprintf("budget-report-%s.%s", time.Now().Format("20060102-150405"), format)
		switch format {
		case FormatExcel:
			path, err = r.excel.WriteReport(name, enterprises, budgets)
		default:
			path, err = r.csv.WriteEnterprises(name, enterprises)
		}
		return err
	},
		async.WithName("export_report"),
		async.WithStatusMessage("Exporting report..."),
		async.WithStepTracker(tracker))

	return path, tracker, err
}
