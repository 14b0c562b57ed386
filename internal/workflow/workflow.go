// Package workflow implements the search → select → confirm → persist
// interaction behind the game search page.
//
// A Workflow owns all transient state of one session. Presentation layers
// feed it user events and render the snapshot returned by View.
package workflow

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/simp-lee/gamelib/internal/domain"
)

// SuccessMessage is shown after a game has been persisted.
const SuccessMessage = "Game successfully added to user collection"

// Severity classifies an alert.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Alert is the single notification slot.
type Alert struct {
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Visible  bool     `json:"visible"`
}

// AuthSession exposes the signed-in user and notifies on changes.
type AuthSession interface {
	Current() *domain.User
	OnChange(fn func(*domain.User)) (unsubscribe func())
}

// Pagination is the published pagination state.
type Pagination struct {
	CurrentPage  int  `json:"current_page"`
	PageCount    int  `json:"page_count"`
	TotalResults int  `json:"total_results"`
	Visible      bool `json:"visible"`
}

// Modal is the published state of the add-game dialog.
type Modal struct {
	Open      bool                     `json:"open"`
	Selected  *domain.SearchResultItem `json:"selected,omitempty"`
	Platforms []domain.Platform        `json:"platforms"`
	Statuses  []domain.StatusOption    `json:"statuses"`
	Platform  string                   `json:"platform"`
	Status    string                   `json:"status"`
}

// View is a deep copy of everything a presentation layer renders.
type View struct {
	Term       string                    `json:"term"`
	Results    []domain.SearchResultItem `json:"results"`
	Pagination Pagination                `json:"pagination"`
	Modal      Modal                     `json:"modal"`
	Alert      Alert                     `json:"alert"`
	UserID     string                    `json:"user_id,omitempty"`
	Persisting bool                      `json:"persisting"`
}

// Workflow sequences one user's search and add-to-collection interaction.
// It is safe for concurrent use; catalog and store calls run without holding
// the state lock.
type Workflow struct {
	search domain.SearchClient
	store  domain.CollectionStore
	log    *slog.Logger

	unsubscribe func()

	mu           sync.Mutex
	userID       string
	term         string // text-input value
	searchedTerm string // term of the results currently shown
	results      []domain.SearchResultItem
	currentPage  int
	totalResults int
	searchSeq    uint64

	selected  *domain.SearchResultItem
	modalOpen bool
	platforms []domain.Platform
	statuses  []domain.StatusOption
	platform  string
	status    string

	pending    *domain.PendingEntry
	persisting bool

	alert Alert
}

// New creates a Workflow and subscribes it to session. Call Close to release
// the subscription. A nil logger falls back to slog.Default().
func New(search domain.SearchClient, store domain.CollectionStore, session AuthSession, log *slog.Logger) *Workflow {
	if search == nil {
		panic("workflow.New: search client must not be nil")
	}
	if store == nil {
		panic("workflow.New: collection store must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	w := &Workflow{
		search:      search,
		store:       store,
		log:         log,
		currentPage: 1,
	}
	if session != nil {
		w.userID = session.Current().UID()
		w.unsubscribe = session.OnChange(w.setUser)
	}
	return w
}

// Close releases the auth subscription. It is safe to call more than once.
func (w *Workflow) Close() {
	w.mu.Lock()
	unsubscribe := w.unsubscribe
	w.unsubscribe = nil
	w.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (w *Workflow) setUser(u *domain.User) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.userID = u.UID()
}

// SetTerm records the current search input.
func (w *Workflow) SetTerm(term string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.term = term
}

// Search queries the catalog for term at page (values below 1 mean 1) and
// replaces the results, the total count and the current page. A failure is
// surfaced as an error alert and returned.
func (w *Workflow) Search(ctx context.Context, term string, page int) error {
	if page < 1 {
		page = 1
	}

	w.mu.Lock()
	w.term = term
	w.searchSeq++
	seq := w.searchSeq
	w.mu.Unlock()

	result, err := w.search.Search(ctx, term, page)

	w.mu.Lock()
	defer w.mu.Unlock()
	if seq != w.searchSeq {
		w.log.DebugContext(ctx, "discarding stale search response",
			slog.String("term", term), slog.Int("page", page))
		return nil
	}
	if err != nil {
		w.failLocked(ctx, "search failed", err)
		return err
	}

	w.searchedTerm = strings.TrimSpace(term)
	w.results = copyItems(result.Results)
	w.totalResults = max(result.TotalCount, 0)
	w.currentPage = page
	return nil
}

// ChangePage loads page of the last search. The total count is kept from the
// search that started the session.
func (w *Workflow) ChangePage(ctx context.Context, page int) error {
	w.mu.Lock()
	if w.searchedTerm == "" {
		err := domain.NewAppError(domain.CodeValidation, "search for a game before changing pages", nil)
		w.failLocked(ctx, "change page rejected", err)
		w.mu.Unlock()
		return err
	}
	pageCount := domain.PageCount(int64(w.totalResults), domain.SearchPageSize)
	if page < 1 || page > pageCount {
		err := domain.NewAppError(domain.CodeValidation, "page is out of range", nil)
		w.failLocked(ctx, "change page rejected", err)
		w.mu.Unlock()
		return err
	}
	term := w.searchedTerm
	w.searchSeq++
	seq := w.searchSeq
	w.mu.Unlock()

	result, err := w.search.Search(ctx, term, page)

	w.mu.Lock()
	defer w.mu.Unlock()
	if seq != w.searchSeq {
		w.log.DebugContext(ctx, "discarding stale page response",
			slog.String("term", term), slog.Int("page", page))
		return nil
	}
	if err != nil {
		w.failLocked(ctx, "change page failed", err)
		return err
	}

	w.results = copyItems(result.Results)
	w.currentPage = page
	return nil
}

// OpenSelection selects item and opens the add dialog with the item's
// platforms and the fixed status options.
func (w *Workflow) OpenSelection(item domain.SearchResultItem) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.openLocked(item)
}

// OpenSelectionByID opens the dialog for the shown result with the given id.
func (w *Workflow) OpenSelectionByID(ctx context.Context, id int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, item := range w.results {
		if item.ID == id {
			w.openLocked(item)
			return nil
		}
	}
	err := domain.NewAppError(domain.CodeNotFound, "game is not in the current results", nil)
	w.failLocked(ctx, "open selection failed", err)
	return err
}

func (w *Workflow) openLocked(item domain.SearchResultItem) {
	selected := copyItem(item)
	w.selected = &selected
	w.platforms = copyPlatforms(item.Platforms)
	w.statuses = domain.StatusOptions()
	w.modalOpen = true
}

// CloseSelection hides the dialog. The selected item is kept.
func (w *Workflow) CloseSelection() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.modalOpen = false
}

// SetPlatform records the chosen platform.
func (w *Workflow) SetPlatform(platform string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.platform = platform
}

// SetStatus records the chosen status slug.
func (w *Workflow) SetStatus(status string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
}

// Confirm builds a pending entry from the selected game and the current
// choice and persists it for the signed-in user. The outcome is reported
// through the alert; the pending entry is cleared either way.
func (w *Workflow) Confirm(ctx context.Context) error {
	w.mu.Lock()
	if w.selected == nil {
		err := domain.NewAppError(domain.CodeValidation, "no game selected", nil)
		w.failLocked(ctx, "confirm rejected", err)
		w.mu.Unlock()
		return err
	}
	if w.persisting {
		err := domain.NewAppError(domain.CodeValidation, "an add is already in progress", nil)
		w.failLocked(ctx, "confirm rejected", err)
		w.mu.Unlock()
		return err
	}

	entry := domain.PendingEntry{
		ID:              w.selected.ID,
		Name:            w.selected.Name,
		Slug:            w.selected.Slug,
		BackgroundImage: w.selected.BackgroundImage,
		Platform:        w.platform,
		Status:          w.status,
		Notes:           "",
	}
	w.pending = &entry
	w.platform = ""
	w.status = ""
	w.persisting = true
	userID := w.userID
	w.mu.Unlock()

	err := w.store.Add(ctx, userID, entry)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.persisting = false
	w.pending = nil
	if err != nil {
		w.failLocked(ctx, "add to collection failed", err)
		return err
	}

	w.alert = Alert{Message: SuccessMessage, Severity: SeveritySuccess, Visible: true}
	w.selected = nil
	w.modalOpen = false
	w.log.InfoContext(ctx, "game added to collection",
		slog.String("user_id", userID), slog.Int("game_id", entry.ID))
	return nil
}

// DismissAlert hides the alert and keeps its content.
func (w *Workflow) DismissAlert() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.alert.Visible = false
}

// Pending returns a copy of the entry being persisted, if any.
func (w *Workflow) Pending() (domain.PendingEntry, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending == nil {
		return domain.PendingEntry{}, false
	}
	return *w.pending, true
}

// View returns a snapshot of the published state.
func (w *Workflow) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()

	v := View{
		Term:    w.term,
		Results: copyItems(w.results),
		Pagination: Pagination{
			CurrentPage:  w.currentPage,
			PageCount:    domain.PageCount(int64(w.totalResults), domain.SearchPageSize),
			TotalResults: w.totalResults,
			Visible:      len(w.results) > 0,
		},
		Modal: Modal{
			Open:      w.modalOpen,
			Platforms: copyPlatforms(w.platforms),
			Statuses:  make([]domain.StatusOption, len(w.statuses)),
			Platform:  w.platform,
			Status:    w.status,
		},
		Alert:      w.alert,
		UserID:     w.userID,
		Persisting: w.persisting,
	}
	copy(v.Modal.Statuses, w.statuses)
	if w.selected != nil {
		s := copyItem(*w.selected)
		v.Modal.Selected = &s
	}
	return v
}

func (w *Workflow) failLocked(ctx context.Context, msg string, err error) {
	w.alert = Alert{Message: domain.UserMessage(err), Severity: SeverityError, Visible: true}
	w.log.WarnContext(ctx, msg, slog.Any("error", err))
}

func copyItems(items []domain.SearchResultItem) []domain.SearchResultItem {
	out := make([]domain.SearchResultItem, len(items))
	for i, item := range items {
		out[i] = copyItem(item)
	}
	return out
}

func copyItem(item domain.SearchResultItem) domain.SearchResultItem {
	item.Platforms = copyPlatforms(item.Platforms)
	return item
}

func copyPlatforms(p []domain.Platform) []domain.Platform {
	out := make([]domain.Platform, len(p))
	copy(out, p)
	return out
}
