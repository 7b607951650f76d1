// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/abelcubano/main-project/internal/billing"
	"github.com/abelcubano/main-project/internal/invoicepdf"
	"github.com/abelcubano/main-project/internal/models"
	"github.com/abelcubano/main-project/internal/notify"
	apierrors "github.com/abelcubano/main-project/internal/pkg/errors"
	"github.com/abelcubano/main-project/internal/pkg/ulid"
	"github.com/abelcubano/main-project/internal/repository"
)

// maxNumberAttempts bounds retries when a random invoice number collides.
const maxNumberAttempts = 3

// SkipReason says why a customer got no invoice in a cycle.
type SkipReason string

const (
	SkipInactive      SkipReason = "inactive"
	SkipNoUsers       SkipReason = "no_users"
	SkipNoServices    SkipReason = "no_services"
	SkipAlreadyBilled SkipReason = "already_billed"
)

// CycleRequest is the input of a billing cycle.
type CycleRequest struct {
	// ReferenceDate selects the billing period. Defaults to now.
	ReferenceDate *time.Time
}

// CycleResult summarizes one billing cycle. Errors never abort a cycle; they
// are collected here per customer.
type CycleResult struct {
	RunID          string
	Period         billing.Period
	GeneratedCount int
	SkippedCount   int
	Skips          map[SkipReason]int
	Errors         []string
	Invoices       []*models.Invoice
	Reconciled     int
}

// DocumentRenderer renders an invoice document.
type DocumentRenderer interface {
	Render(w io.Writer, doc invoicepdf.Document) (int, error)
}

// BillingService runs monthly billing cycles and renders invoice documents.
type BillingService interface {
	// RunCycle generates at most one invoice per active customer for the
	// period containing the reference date. When ctx is cancelled the partial
	// result is returned together with ctx.Err().
	RunCycle(ctx context.Context, req CycleRequest) (*CycleResult, error)

	// RenderDocument writes the PDF of an invoice to w.
	RenderDocument(ctx context.Context, invoiceID uuid.UUID, w io.Writer) (*models.Invoice, error)
}

// BillingOptions tunes a billing service.
type BillingOptions struct {
	Location        *time.Location
	Workers         int
	IncompleteGrace time.Duration
}

// Option configures optional collaborators.
type Option func(*billingService)

// WithCycleLock guards each cycle with lock.
func WithCycleLock(lock CycleLock) Option {
	return func(s *billingService) { s.lock = lock }
}

// WithNumberAllocator replaces the random invoice number allocator.
func WithNumberAllocator(numbers billing.NumberAllocator) Option {
	return func(s *billingService) { s.numbers = numbers }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *billingService) { s.now = now }
}

type billingService struct {
	catalog  repository.CatalogRepository
	invoices repository.InvoiceRepository
	notifier notify.Notifier
	renderer DocumentRenderer
	opts     BillingOptions
	logger   *slog.Logger

	lock    CycleLock
	numbers billing.NumberAllocator
	now     func() time.Time
}

// NewBillingService creates a new billing service.
func NewBillingService(
	catalog repository.CatalogRepository,
	invoices repository.InvoiceRepository,
	notifier notify.Notifier,
	renderer DocumentRenderer,
	opts BillingOptions,
	logger *slog.Logger,
	options ...Option,
) BillingService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	s := &billingService{
		catalog:  catalog,
		invoices: invoices,
		notifier: notifier,
		renderer: renderer,
		opts:     opts,
		logger:   logger,
		numbers:  billing.RandomNumberAllocator{},
		now:      time.Now,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// outcome is what happened to one customer. Each worker writes only its own
// slot, so no locking is needed.
type outcome struct {
	processed bool
	customer  string
	skip      SkipReason
	invoice   *models.Invoice
	errs      []string
	errKinds  []string
}

func (o *outcome) fail(kind, msg string) {
	o.errs = append(o.errs, msg)
	o.errKinds = append(o.errKinds, kind)
}

// RunCycle runs one billing cycle.
func (s *billingService) RunCycle(ctx context.Context, req CycleRequest) (*CycleResult, error) {
	start := s.now()
	ref := start
	if req.ReferenceDate != nil {
		ref = *req.ReferenceDate
	}
	period := billing.PeriodOf(ref.In(s.opts.Location))

	result := &CycleResult{
		RunID:  ulid.NewFromTime(start),
		Period: period,
		Skips:  map[SkipReason]int{},
		Errors: []string{},
	}
	log := s.logger.With(
		slog.String("run_id", result.RunID),
		slog.String("period", period.String()),
	)

	if s.lock != nil {
		release, err := s.lock.Acquire(ctx, period)
		if errors.Is(err, ErrLockHeld) {
			return nil, apierrors.ErrCycleInProgress
		}
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				log.Warn("failed to release cycle lock", slog.String("error", err.Error()))
			}
		}()
	}

	defer func() {
		cycleDuration.Observe(s.now().Sub(start).Seconds())
	}()

	result.Reconciled = s.reconcile(ctx, log, start)

	customers, err := s.catalog.ListActiveCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	history, err := s.invoices.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	ledger := billing.NewLedger(history)

	log.Info("billing cycle started",
		slog.Int("customers", len(customers)),
		slog.Int("billed_periods", ledger.Len()),
		slog.Int("workers", s.opts.Workers),
	)

	outcomes := make([]outcome, len(customers))
	var g errgroup.Group
	g.SetLimit(s.opts.Workers)
	for i, customer := range customers {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			// A customer that has started runs to completion.
			outcomes[i] = s.billCustomer(context.WithoutCancel(ctx), customer, period, ledger)
			return nil
		})
	}
	_ = g.Wait()

	for i := range outcomes {
		s.merge(log, result, &outcomes[i])
	}

	log.Info("billing cycle complete",
		slog.Int("generated", result.GeneratedCount),
		slog.Int("skipped", result.SkippedCount),
		slog.Int("errors", len(result.Errors)),
		slog.Int("reconciled", result.Reconciled),
		slog.Duration("duration", s.now().Sub(start)),
	)

	if err := ctx.Err(); err != nil {
		log.Warn("billing cycle cancelled", slog.String("error", err.Error()))
		return result, err
	}
	return result, nil
}

func (s *billingService) merge(log *slog.Logger, result *CycleResult, o *outcome) {
	if !o.processed {
		return
	}
	if o.skip != "" {
		result.SkippedCount++
		result.Skips[o.skip]++
		customersSkippedTotal.WithLabelValues(string(o.skip)).Inc()
		log.Debug("customer skipped",
			slog.String("customer", o.customer),
			slog.String("reason", string(o.skip)),
		)
	}
	if o.invoice != nil {
		result.GeneratedCount++
		result.Invoices = append(result.Invoices, o.invoice)
		invoicesGeneratedTotal.Inc()
		log.Info("invoice generated",
			slog.String("customer", o.customer),
			slog.String("invoice_number", o.invoice.InvoiceNumber),
			slog.String("owner_id", o.invoice.UserID.String()),
			slog.String("total", billing.FormatAmount(o.invoice.Total)),
		)
	}
	result.Errors = append(result.Errors, o.errs...)
	for i, kind := range o.errKinds {
		billingErrorsTotal.WithLabelValues(kind).Inc()
		log.Warn("customer billing failed",
			slog.String("customer", o.customer),
			slog.String("kind", kind),
			slog.String("error", o.errs[i]),
		)
	}
}

// reconcile removes invoices left without items by an interrupted write
// path, so their owners are not wrongly considered billed.
func (s *billingService) reconcile(ctx context.Context, log *slog.Logger, now time.Time) int {
	stale, err := s.invoices.ListIncomplete(ctx, now.Add(-s.opts.IncompleteGrace))
	if err != nil {
		log.Warn("failed to list incomplete invoices", slog.String("error", err.Error()))
		return 0
	}

	removed := 0
	for _, inv := range stale {
		ok, err := s.invoices.DeleteIncomplete(ctx, inv.ID)
		if err != nil {
			log.Warn("failed to delete incomplete invoice",
				slog.String("invoice_number", inv.InvoiceNumber),
				slog.String("error", err.Error()),
			)
			continue
		}
		if ok {
			removed++
			invoicesReconciledTotal.Inc()
			log.Info("removed incomplete invoice", slog.String("invoice_number", inv.InvoiceNumber))
		}
	}
	return removed
}

// billingOwner picks the user invoices are issued to: the first flagged
// billing contact, else the oldest user.
func billingOwner(users []*models.User) *models.User {
	for _, u := range users {
		if u.IsBillingContact {
			return u
		}
	}
	return users[0]
}

func (s *billingService) billCustomer(ctx context.Context, customer *models.Customer, period billing.Period, ledger *billing.Ledger) (out outcome) {
	out.processed = true
	out.customer = customer.Name
	defer func() {
		if r := recover(); r != nil {
			// Once persisted the invoice stands; only notification follows.
			if out.invoice != nil {
				out.fail("panic", fmt.Sprintf("Email failed for %s: %v", customer.Name, r))
				return
			}
			out.fail("panic", fmt.Sprintf("Failed for %s: %v", customer.Name, r))
		}
	}()

	if !customer.Active {
		out.skip = SkipInactive
		return out
	}

	users, err := s.catalog.ListUsersForCustomer(ctx, customer.ID)
	if err != nil {
		out.fail("generate", fmt.Sprintf("Failed for %s: %v", customer.Name, err))
		return out
	}
	if len(users) == 0 {
		out.skip = SkipNoUsers
		return out
	}
	owner := billingOwner(users)

	userIDs := make([]uuid.UUID, len(users))
	for i, u := range users {
		userIDs[i] = u.ID
	}
	services, err := s.catalog.ListActiveServicesForUsers(ctx, userIDs)
	if err != nil {
		out.fail("generate", fmt.Sprintf("Failed for %s: %v", customer.Name, err))
		return out
	}
	billable := make([]*models.Service, 0, len(services))
	for _, svc := range services {
		if svc.Billable() {
			billable = append(billable, svc)
		}
	}
	if len(billable) == 0 {
		out.skip = SkipNoServices
		return out
	}

	if ledger.Has(owner.ID, period) {
		out.skip = SkipAlreadyBilled
		return out
	}

	inv, items, err := s.createInvoice(ctx, owner, period, billable)
	if errors.Is(err, repository.ErrPeriodBilled) {
		out.skip = SkipAlreadyBilled
		return out
	}
	if err != nil {
		out.fail("generate", fmt.Sprintf("Failed for %s: %v", customer.Name, err))
		return out
	}
	out.invoice = inv

	if err := s.notify(ctx, customer, owner, inv, len(items)); err != nil {
		out.fail("email", fmt.Sprintf("Email failed for %s: %v", customer.Name, err))
	}
	return out
}

func (s *billingService) createInvoice(ctx context.Context, owner *models.User, period billing.Period, services []*models.Service) (*models.Invoice, []*models.InvoiceItem, error) {
	lines := billing.Materialize(services)
	issue := period.FirstDay(s.opts.Location)
	due := period.LastDay(s.opts.Location)
	billingPeriod := period.String()

	var err error
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		inv := &models.Invoice{
			UserID:        owner.ID,
			InvoiceNumber: s.numbers.Allocate(issue),
			BillingPeriod: &billingPeriod,
			Status:        models.InvoiceStatusPending,
			IssueDate:     issue,
			DueDate:       due,
			Subtotal:      lines.Subtotal,
			Tax:           lines.Tax,
			Total:         lines.Total,
		}
		err = s.invoices.CreateWithItems(ctx, inv, lines.Items)
		if err == nil {
			return inv, lines.Items, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, nil, err
		}
		s.logger.Warn("invoice number collision, retrying",
			slog.String("invoice_number", inv.InvoiceNumber),
		)
	}
	return nil, nil, err
}

// notify sends the invoice email to the customer, falling back to the
// billing owner. Having no address at all is not an error.
func (s *billingService) notify(ctx context.Context, customer *models.Customer, owner *models.User, inv *models.Invoice, itemCount int) error {
	to := customer.Email
	if to == "" {
		to = owner.Email
	}
	if to == "" {
		return nil
	}

	err := s.notifier.NotifyInvoice(ctx, notify.InvoiceNotification{
		To:            to,
		ContactName:   customer.Attention(),
		CustomerName:  customer.Name,
		InvoiceNumber: inv.InvoiceNumber,
		Total:         inv.Total,
		IssueDate:     inv.IssueDate,
		DueDate:       inv.DueDate,
		ItemCount:     itemCount,
	})
	if errors.Is(err, notify.ErrNoRecipient) {
		return nil
	}
	return err
}

// RenderDocument writes the PDF of an invoice to w.
func (s *billingService) RenderDocument(ctx context.Context, invoiceID uuid.UUID, w io.Writer) (*models.Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, invoiceID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apierrors.NewNotFoundError("Invoice")
	}
	if err != nil {
		return nil, err
	}

	items, err := s.invoices.ListItems(ctx, inv.ID)
	if err != nil {
		return nil, err
	}

	doc := invoicepdf.Document{Invoice: inv, Items: items}

	owner, err := s.catalog.GetUser(ctx, inv.UserID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		doc.FallbackName = owner.Name
		if owner.CustomerID != nil {
			customer, err := s.catalog.GetCustomer(ctx, *owner.CustomerID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, err
			}
			doc.Customer = customer
		}
	}

	if _, err := s.renderer.Render(w, doc); err != nil {
		return nil, fmt.Errorf("failed to render invoice %s: %w", inv.InvoiceNumber, err)
	}
	return inv, nil
}
