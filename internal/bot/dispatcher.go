// Package bot routes inbound chat events through the per-user
// conversation state machine: expense entry, report requests, and the
// admin commands.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"xarajat/internal/amqp"
	"xarajat/internal/cache"
	"xarajat/internal/core"
	"xarajat/internal/gateway"
	applog "xarajat/internal/log"
	"xarajat/internal/report"
	"xarajat/internal/session"
)

// Store is the ledger surface the dispatcher needs.
type Store interface {
	EnsureUser(ctx context.Context, externalID int64) (int64, error)
	ListCategories(ctx context.Context, userID int64) ([]core.Category, error)
	GetCategory(ctx context.Context, categoryID, userID int64) (core.Category, error)
	InsertExpense(ctx context.Context, userID int64, amount core.Money, categoryID *int64, description string, at time.Time) (int64, error)
	RecentExpenses(ctx context.Context, userID int64, limit int) ([]core.ExpenseRow, error)
	DailyTotals(ctx context.Context, userID int64, rng core.Range) ([]core.DailyTotalRow, error)
	Reset(ctx context.Context) error
}

// ReportQueue hands report jobs to the worker. A nil queue makes the
// dispatcher build reports inline.
type ReportQueue interface {
	PublishReportJob(ctx context.Context, job *amqp.ReportJob) error
}

// MirrorQueue hands saved expenses to the spreadsheet mirror worker.
// A nil queue disables mirroring.
type MirrorQueue interface {
	PublishMirrorSync(ctx context.Context, expenseID int64) error
}

const (
	recentLimit    = 10
	dailyStatsDays = 7

	msgWelcome = "Welcome! I track your expenses.\n\n" +
		"Tap a button below, or use /add, /report, /recent, /daily."
	msgHelp = "Commands:\n" +
		"/add - record an expense\n" +
		"/report - build a spending report\n" +
		"/recent - last 10 expenses\n" +
		"/daily - totals for the last 7 days\n" +
		"/cancel - abort the current operation"
	msgUnauthorized    = "You are not authorized to use this bot."
	msgAdminOnly       = "Only an administrator can do that."
	msgIdleHint        = "I did not understand that. Use the buttons or /help."
	msgAskAmount       = "Enter the amount:"
	msgInvalidAmount   = "Please enter a positive whole number, like 50000 or 50 000."
	msgAskCategory     = "Pick a category:"
	msgCategoryGone    = "That category no longer exists. Pick another:"
	msgAskDescription  = "Add a description, or skip:"
	msgAskStartDate    = "Enter the start date (DD.MM.YYYY):"
	msgAskEndDate      = "Enter the end date (DD.MM.YYYY):"
	msgBadDate         = "That does not look like a date. Use DD.MM.YYYY, like 05.01.2024."
	msgBadRange        = "The end date is before the start date. Enter the end date again:"
	msgReportMenu      = "Which period?"
	msgReportQueued    = "⏳ Generating your report, it will arrive shortly."
	msgNoData          = "No expenses in this period."
	msgNoExpensesYet   = "No expenses yet."
	msgEntryCancelled  = "Expense entry cancelled."
	msgReportCancelled = "Report cancelled."
	msgNothingToCancel = "Nothing to cancel."
	msgResetDone       = "All data wiped. The ledger is empty."
)

// Options wires the dispatcher's collaborators.
type Options struct {
	Store          Store
	Reports        *report.Service
	Sender         gateway.Sender
	AllowedUserIDs []int64
	AdminUserIDs   []int64
	Location       *time.Location
	Jobs           ReportQueue
	Mirror         MirrorQueue
	Logger         *slog.Logger
}

type Dispatcher struct {
	store    Store
	reports  *report.Service
	sender   gateway.Sender
	sessions *session.Manager
	allowed  map[int64]struct{}
	admins   map[int64]struct{}
	loc      *time.Location
	jobs     ReportQueue
	mirror   MirrorQueue
	kbCache  *cache.LRU[gateway.Keyboard]
	logger   *slog.Logger

	// now is swappable in tests.
	now func() time.Time
}

func NewDispatcher(opts Options) *Dispatcher {
	allowed := make(map[int64]struct{}, len(opts.AllowedUserIDs))
	for _, id := range opts.AllowedUserIDs {
		allowed[id] = struct{}{}
	}
	admins := make(map[int64]struct{}, len(opts.AdminUserIDs))
	for _, id := range opts.AdminUserIDs {
		admins[id] = struct{}{}
	}

	return &Dispatcher{
		store:    opts.Store,
		reports:  opts.Reports,
		sender:   opts.Sender,
		sessions: session.NewManager(),
		allowed:  allowed,
		admins:   admins,
		loc:      opts.Location,
		jobs:     opts.Jobs,
		mirror:   opts.Mirror,
		kbCache:  cache.NewLRU[gateway.Keyboard](256, 10*time.Minute),
		logger:   opts.Logger,
		now:      time.Now,
	}
}

func (d *Dispatcher) authorize(externalID int64) error {
	if _, ok := d.allowed[externalID]; !ok {
		return fmt.Errorf("user %d: %w", externalID, core.ErrUnauthorized)
	}
	return nil
}

// Handle processes one inbound event. Events from the same user are
// serialized; events from different users run concurrently.
func (d *Dispatcher) Handle(ctx context.Context, ev gateway.Event) error {
	if err := d.authorize(ev.UserID); err != nil {
		if errors.Is(err, core.ErrUnauthorized) {
			d.logger.Warn("rejected unauthorized user", applog.FieldExternalID, ev.UserID)
			return d.sender.SendText(ctx, ev.ChatID, msgUnauthorized, nil)
		}
		return err
	}

	lk := d.sessions.Lock(ev.UserID)
	lk.Lock()
	defer lk.Unlock()

	userID, err := d.store.EnsureUser(ctx, ev.UserID)
	if err != nil {
		return fmt.Errorf("ensure user %d: %w", ev.UserID, err)
	}

	d.logger.Debug("handling event",
		applog.FieldExternalID, ev.UserID,
		applog.FieldChatID, ev.ChatID,
		applog.FieldState, session.Name(d.sessions.Current(ev.UserID)),
		"callback", ev.Callback)

	if ev.Callback != "" {
		return d.handleCallback(ctx, ev, userID)
	}
	return d.handleText(ctx, ev, userID)
}

func (d *Dispatcher) handleText(ctx context.Context, ev gateway.Event, userID int64) error {
	text := strings.TrimSpace(ev.Text)

	if strings.HasPrefix(text, "/") {
		return d.handleCommand(ctx, ev, userID, text)
	}

	switch st := d.sessions.Current(ev.UserID).(type) {
	case session.AwaitingAmount:
		return d.onAmount(ctx, ev, userID, text)
	case session.AwaitingCategory:
		kb, err := d.categoryKeyboard(ctx, userID)
		if err != nil {
			return err
		}
		return d.sender.SendText(ctx, ev.ChatID, msgAskCategory, kb)
	case session.AwaitingDescription:
		return d.saveExpense(ctx, ev, userID, st.Amount, st.CategoryID, text)
	case session.AwaitingStartDate:
		return d.onStartDate(ctx, ev, text)
	case session.AwaitingEndDate:
		return d.onEndDate(ctx, ev, userID, st.Start, text)
	default:
		return d.sender.SendText(ctx, ev.ChatID, msgIdleHint, mainKeyboard())
	}
}

func (d *Dispatcher) handleCommand(ctx context.Context, ev gateway.Event, userID int64, cmd string) error {
	// Any command abandons the current conversation.
	d.sessions.Clear(ev.UserID)

	switch cmd {
	case "/start":
		return d.sender.SendText(ctx, ev.ChatID, msgWelcome, mainKeyboard())
	case "/help":
		return d.sender.SendText(ctx, ev.ChatID, msgHelp, mainKeyboard())
	case "/add":
		return d.startExpenseEntry(ctx, ev)
	case "/report":
		return d.sender.SendText(ctx, ev.ChatID, msgReportMenu, reportKeyboard(d.now(), d.loc))
	case "/recent":
		return d.sendRecent(ctx, ev, userID)
	case "/daily":
		return d.sendDailyStats(ctx, ev, userID)
	case "/cancel":
		return d.sender.SendText(ctx, ev.ChatID, msgNothingToCancel, mainKeyboard())
	case "/reset":
		return d.resetAll(ctx, ev)
	default:
		return d.sender.SendText(ctx, ev.ChatID, msgIdleHint, mainKeyboard())
	}
}

func (d *Dispatcher) handleCallback(ctx context.Context, ev gateway.Event, userID int64) error {
	cb := ev.Callback

	switch {
	case cb == cbCancel:
		return d.cancel(ctx, ev)
	case cb == cbAdd:
		d.sessions.Clear(ev.UserID)
		return d.startExpenseEntry(ctx, ev)
	case cb == cbReportMenu:
		d.sessions.Clear(ev.UserID)
		return d.sender.SendText(ctx, ev.ChatID, msgReportMenu, reportKeyboard(d.now(), d.loc))
	case cb == cbRecent:
		return d.sendRecent(ctx, ev, userID)
	case cb == cbDaily:
		return d.sendDailyStats(ctx, ev, userID)
	case cb == cbSkip:
		if st, ok := d.sessions.Current(ev.UserID).(session.AwaitingDescription); ok {
			return d.saveExpense(ctx, ev, userID, st.Amount, st.CategoryID, "")
		}
		return nil
	case strings.HasPrefix(cb, cbCategoryPrefix):
		return d.onCategory(ctx, ev, userID, strings.TrimPrefix(cb, cbCategoryPrefix))
	case strings.HasPrefix(cb, cbMonthPrefix):
		return d.onMonthReport(ctx, ev, userID, strings.TrimPrefix(cb, cbMonthPrefix))
	case cb == cbReportWeek:
		return d.runRangeReport(ctx, ev, userID, core.LastDays(d.now(), d.loc, 7))
	case cb == cbReportMonth:
		return d.runRangeReport(ctx, ev, userID, core.LastDays(d.now(), d.loc, 30))
	case cb == cbReportYear:
		return d.runRangeReport(ctx, ev, userID, core.LastDays(d.now(), d.loc, 365))
	case cb == cbReportCustom:
		d.sessions.Set(ev.UserID, session.AwaitingStartDate{})
		return d.sender.SendText(ctx, ev.ChatID, msgAskStartDate, cancelKeyboard())
	default:
		d.logger.Warn("unknown callback", "callback", cb, applog.FieldExternalID, ev.UserID)
		return nil
	}
}

// Expense entry flow.

func (d *Dispatcher) startExpenseEntry(ctx context.Context, ev gateway.Event) error {
	d.sessions.Set(ev.UserID, session.AwaitingAmount{})
	return d.sender.SendText(ctx, ev.ChatID, msgAskAmount, cancelKeyboard())
}

func (d *Dispatcher) onAmount(ctx context.Context, ev gateway.Event, userID int64, text string) error {
	amount, err := core.ParseAmount(text)
	if err != nil {
		// Stay in the same state until the input parses.
		return d.sender.SendText(ctx, ev.ChatID, msgInvalidAmount, cancelKeyboard())
	}

	kb, err := d.categoryKeyboard(ctx, userID)
	if err != nil {
		return err
	}
	d.sessions.Set(ev.UserID, session.AwaitingCategory{Amount: amount})
	return d.sender.SendText(ctx, ev.ChatID, msgAskCategory, kb)
}

func (d *Dispatcher) onCategory(ctx context.Context, ev gateway.Event, userID int64, raw string) error {
	st, ok := d.sessions.Current(ev.UserID).(session.AwaitingCategory)
	if !ok {
		// A stale button press from an earlier conversation.
		return nil
	}

	categoryID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return d.sender.SendText(ctx, ev.ChatID, msgCategoryGone, nil)
	}

	if _, err := d.store.GetCategory(ctx, categoryID, userID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			kb, kerr := d.categoryKeyboard(ctx, userID)
			if kerr != nil {
				return kerr
			}
			return d.sender.SendText(ctx, ev.ChatID, msgCategoryGone, kb)
		}
		return fmt.Errorf("load category %d: %w", categoryID, err)
	}

	d.sessions.Set(ev.UserID, session.AwaitingDescription{Amount: st.Amount, CategoryID: categoryID})
	return d.sender.SendText(ctx, ev.ChatID, msgAskDescription, descriptionKeyboard())
}

func (d *Dispatcher) saveExpense(ctx context.Context, ev gateway.Event, userID int64, amount core.Money, categoryID int64, description string) error {
	// The conversation ends here whether or not the save succeeds.
	d.sessions.Clear(ev.UserID)

	expenseID, err := d.store.InsertExpense(ctx, userID, amount, &categoryID, strings.TrimSpace(description), d.now())
	if err != nil {
		d.logger.Error("failed to save expense", applog.FieldError, err, applog.FieldUserID, userID)
		return d.sender.SendText(ctx, ev.ChatID, "Could not save the expense, try again.", mainKeyboard())
	}

	if d.mirror != nil {
		if err := d.mirror.PublishMirrorSync(ctx, expenseID); err != nil {
			// The pending sweep picks it up later.
			d.logger.Warn("failed to queue mirror sync", applog.FieldError, err, applog.FieldExpenseID, expenseID)
		}
	}

	confirmation := fmt.Sprintf("Saved: %s ✅", amount.Format())
	categoryName := ""
	if cat, err := d.store.GetCategory(ctx, categoryID, userID); err == nil {
		categoryName = cat.Name
		desc := strings.TrimSpace(description)
		if desc == "" {
			desc = "no description"
		}
		confirmation = fmt.Sprintf("Saved: %s, %s (%s) ✅", amount.Format(), cat.Name, desc)
	}

	d.logger.Info("expense saved",
		applog.FieldUserID, userID,
		applog.FieldExpenseID, expenseID,
		applog.FieldAmount, amount.Units,
		applog.FieldCategoryID, categoryID,
		applog.FieldCategory, categoryName)

	return d.sender.SendText(ctx, ev.ChatID, confirmation, mainKeyboard())
}

// Custom range flow.

func (d *Dispatcher) onStartDate(ctx context.Context, ev gateway.Event, text string) error {
	day, err := core.ParseDay(text)
	if err != nil {
		return d.sender.SendText(ctx, ev.ChatID, msgBadDate, cancelKeyboard())
	}
	d.sessions.Set(ev.UserID, session.AwaitingEndDate{Start: day})
	return d.sender.SendText(ctx, ev.ChatID, msgAskEndDate, cancelKeyboard())
}

func (d *Dispatcher) onEndDate(ctx context.Context, ev gateway.Event, userID int64, start core.Day, text string) error {
	day, err := core.ParseDay(text)
	if err != nil {
		return d.sender.SendText(ctx, ev.ChatID, msgBadDate, cancelKeyboard())
	}

	rng, err := core.NewRange(start, day)
	if err != nil {
		// Keep the start date, ask for the end again.
		return d.sender.SendText(ctx, ev.ChatID, msgBadRange, cancelKeyboard())
	}

	d.sessions.Clear(ev.UserID)
	return d.runRangeReport(ctx, ev, userID, rng)
}

// Reports.

func (d *Dispatcher) runRangeReport(ctx context.Context, ev gateway.Event, userID int64, rng core.Range) error {
	if d.jobs != nil {
		job := amqp.NewReportJob(userID, ev.ChatID, rng.Start.ISO(), rng.End.ISO())
		if err := d.jobs.PublishReportJob(ctx, job); err == nil {
			return d.sender.SendText(ctx, ev.ChatID, msgReportQueued, mainKeyboard())
		}
		d.logger.Warn("failed to queue report job, building inline", applog.FieldUserID, userID)
	}

	data, err := d.reports.Build(ctx, userID, rng)
	if errors.Is(err, core.ErrNoData) {
		return d.sender.SendText(ctx, ev.ChatID, msgNoData, mainKeyboard())
	}
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}

	out, err := report.Render(data)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return d.sender.SendDocument(ctx, ev.ChatID, gateway.Document{
		Filename: rng.Filename(),
		Caption:  rng.Caption(),
		Data:     out,
	})
}

// onMonthReport sends the plain-text summary for a picked month.
func (d *Dispatcher) onMonthReport(ctx context.Context, ev gateway.Event, userID int64, raw string) error {
	yearStr, monthStr, ok := strings.Cut(raw, "-")
	if !ok {
		return nil
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return nil
	}
	monthNum, err := strconv.Atoi(monthStr)
	if err != nil || monthNum < 1 || monthNum > 12 {
		return nil
	}
	month := time.Month(monthNum)

	start, end := core.MonthBounds(year, month)
	rng, err := core.NewRange(start, end)
	if err != nil {
		return fmt.Errorf("month bounds %d-%d: %w", year, monthNum, err)
	}

	data, err := d.reports.Build(ctx, userID, rng)
	if errors.Is(err, core.ErrNoData) {
		return d.sender.SendText(ctx, ev.ChatID, msgNoData, mainKeyboard())
	}
	if err != nil {
		return fmt.Errorf("build month report: %w", err)
	}

	title := fmt.Sprintf("Expenses for %s %d", month, year)
	chunks := report.Chunk(report.Summary(title, data))
	for i, chunk := range chunks {
		var kb gateway.Keyboard
		if i == len(chunks)-1 {
			kb = mainKeyboard()
		}
		if err := d.sender.SendText(ctx, ev.ChatID, chunk, kb); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) sendRecent(ctx context.Context, ev gateway.Event, userID int64) error {
	rows, err := d.store.RecentExpenses(ctx, userID, recentLimit)
	if err != nil {
		return fmt.Errorf("load recent expenses: %w", err)
	}
	if len(rows) == 0 {
		return d.sender.SendText(ctx, ev.ChatID, msgNoExpensesYet, mainKeyboard())
	}

	var b strings.Builder
	b.WriteString("Recent expenses:\n\n")
	for _, row := range rows {
		b.WriteString(row.Date.Format("02.01 15:04"))
		b.WriteString("  ")
		b.WriteString(row.Amount.Format())
		if row.Category != "" {
			b.WriteString("  ")
			b.WriteString(row.Category)
		}
		if row.Description != "" {
			b.WriteString("  ")
			b.WriteString(row.Description)
		}
		b.WriteString("\n")
	}
	return d.sender.SendText(ctx, ev.ChatID, b.String(), mainKeyboard())
}

func (d *Dispatcher) sendDailyStats(ctx context.Context, ev gateway.Event, userID int64) error {
	rng := core.LastDays(d.now(), d.loc, dailyStatsDays)
	rows, err := d.store.DailyTotals(ctx, userID, rng)
	if err != nil {
		return fmt.Errorf("load daily totals: %w", err)
	}
	if len(rows) == 0 {
		return d.sender.SendText(ctx, ev.ChatID, msgNoData, mainKeyboard())
	}

	var total int64
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Last %d days:\n\n", dailyStatsDays))
	for _, row := range rows {
		total += row.Total.Units
		b.WriteString(fmt.Sprintf("%s: %s (%d)\n", row.Day.Input(), row.Total.Format(), row.Count))
	}
	b.WriteString(fmt.Sprintf("\nTotal: %s", core.FormatUnits(total)))
	return d.sender.SendText(ctx, ev.ChatID, b.String(), mainKeyboard())
}

// Admin and cancellation.

func (d *Dispatcher) resetAll(ctx context.Context, ev gateway.Event) error {
	if _, ok := d.admins[ev.UserID]; !ok {
		d.logger.Warn("reset attempted by non-admin", applog.FieldExternalID, ev.UserID)
		return d.sender.SendText(ctx, ev.ChatID, msgAdminOnly, mainKeyboard())
	}

	if err := d.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	d.sessions.Reset()
	d.kbCache.Purge()

	d.logger.Info("ledger wiped by admin", applog.FieldExternalID, ev.UserID)
	return d.sender.SendText(ctx, ev.ChatID, msgResetDone, mainKeyboard())
}

func (d *Dispatcher) cancel(ctx context.Context, ev gateway.Event) error {
	st := d.sessions.Current(ev.UserID)
	d.sessions.Clear(ev.UserID)

	var msg string
	switch st.(type) {
	case session.AwaitingAmount, session.AwaitingCategory, session.AwaitingDescription:
		msg = msgEntryCancelled
	case session.AwaitingStartDate, session.AwaitingEndDate:
		msg = msgReportCancelled
	default:
		msg = msgNothingToCancel
	}
	return d.sender.SendText(ctx, ev.ChatID, msg, mainKeyboard())
}

// categoryKeyboard returns the user's category keyboard, building and
// caching it on miss.
func (d *Dispatcher) categoryKeyboard(ctx context.Context, userID int64) (gateway.Keyboard, error) {
	key := "categories:" + strconv.FormatInt(userID, 10)
	if kb, ok := d.kbCache.Get(key); ok {
		return kb, nil
	}

	cats, err := d.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	kb := categoryKeyboard(cats)
	d.kbCache.Set(key, kb)
	return kb, nil
}
