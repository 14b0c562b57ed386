// Package cli drives the search and add-to-collection workflow from a terminal.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/simp-lee/gamelib/internal/domain"
	"github.com/simp-lee/gamelib/internal/module/auth"
	"github.com/simp-lee/gamelib/internal/workflow"
)

const (
	maxSignInAttempts = 3

	itemNextPage  = "Next page »"
	itemPrevPage  = "« Previous page"
	itemNewSearch = "New search"
	itemQuit      = "Quit"
	itemAdd       = "Add to collection"
	itemCancel    = "Cancel"
	itemNoChoice  = "(none)"
)

// ErrSignInFailed is returned when every sign-in attempt was rejected.
var ErrSignInFailed = errors.New("sign-in failed")

// Authenticator signs users in.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*auth.TokenResponse, error)
}

// UserLoader loads the signed-in account.
type UserLoader interface {
	GetByID(ctx context.Context, id uint) (*domain.User, error)
}

// Console is the terminal front-end of one workflow.
type Console struct {
	prompter Prompter
	out      io.Writer
	auth     Authenticator
	users    UserLoader
	search   domain.SearchClient
	store    domain.CollectionStore
	log      *slog.Logger
}

// Config holds the dependencies of a Console.
type Config struct {
	Prompter Prompter
	Out      io.Writer
	Auth     Authenticator
	Users    UserLoader
	Search   domain.SearchClient
	Store    domain.CollectionStore
	Logger   *slog.Logger
}

// New creates a Console. Panics if a required dependency is missing.
func New(cfg Config) *Console {
	if cfg.Prompter == nil || cfg.Out == nil || cfg.Auth == nil || cfg.Users == nil || cfg.Search == nil || cfg.Store == nil {
		panic("cli.New: prompter, output, auth, users, search and store must not be nil")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Console{
		prompter: cfg.Prompter,
		out:      cfg.Out,
		auth:     cfg.Auth,
		users:    cfg.Users,
		search:   cfg.Search,
		store:    cfg.Store,
		log:      log,
	}
}

// Run signs the user in and loops over searches until the user quits.
// Leaving a prompt with Ctrl-C or Ctrl-D ends the session without error.
func (c *Console) Run(ctx context.Context) error {
	session := auth.NewSession()
	wf := workflow.New(c.search, c.store, session, c.log)
	defer wf.Close()

	u, err := c.signIn(ctx)
	if err != nil {
		if isQuit(err) {
			return nil
		}
		return err
	}
	session.Set(u)
	c.printf("Signed in as %s.\n", u.Name)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		term, err := c.prompter.Prompt("Search games", false, notBlank("search term"))
		if isQuit(err) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := wf.Search(ctx, term, 1); err != nil {
			c.showAlert(wf)
			continue
		}

		quit, err := c.browse(ctx, wf)
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
}

func (c *Console) signIn(ctx context.Context) (*domain.User, error) {
	for attempt := 1; attempt <= maxSignInAttempts; attempt++ {
		email, err := c.prompter.Prompt("Email", false, notBlank("email"))
		if err != nil {
			return nil, err
		}
		password, err := c.prompter.Prompt("Password", true, notBlank("password"))
		if err != nil {
			return nil, err
		}

		resp, err := c.auth.Login(ctx, email, password)
		if err != nil {
			c.printf("✗ %s\n", domain.UserMessage(err))
			continue
		}

		id, err := strconv.ParseUint(resp.UserID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse user id %q: %w", resp.UserID, err)
		}
		u, err := c.users.GetByID(ctx, uint(id))
		if err != nil {
			return nil, fmt.Errorf("load signed-in user: %w", err)
		}
		return u, nil
	}
	return nil, ErrSignInFailed
}

// browse lists the current results until the user starts a new search or quits.
func (c *Console) browse(ctx context.Context, wf *workflow.Workflow) (quit bool, err error) {
	for {
		view := wf.View()
		if len(view.Results) == 0 {
			c.printf("No games found for %q.\n", view.Term)
			return false, nil
		}

		items := make([]string, 0, len(view.Results)+4)
		for _, r := range view.Results {
			items = append(items, resultLabel(r))
		}
		p := view.Pagination
		if p.CurrentPage < p.PageCount {
			items = append(items, itemNextPage)
		}
		if p.CurrentPage > 1 {
			items = append(items, itemPrevPage)
		}
		items = append(items, itemNewSearch, itemQuit)

		label := fmt.Sprintf("%s results for %q · page %d of %d",
			humanize.Comma(int64(p.TotalResults)), view.Term, p.CurrentPage, p.PageCount)
		i, err := c.prompter.Select(label, items)
		if isQuit(err) {
			return true, nil
		}
		if err != nil {
			return false, err
		}

		if i < len(view.Results) {
			if err := c.addGame(ctx, wf, view.Results[i]); err != nil {
				if isQuit(err) {
					return true, nil
				}
				return false, err
			}
			continue
		}

		switch items[i] {
		case itemNextPage:
			if wf.ChangePage(ctx, p.CurrentPage+1) != nil {
				c.showAlert(wf)
			}
		case itemPrevPage:
			if wf.ChangePage(ctx, p.CurrentPage-1) != nil {
				c.showAlert(wf)
			}
		case itemNewSearch:
			return false, nil
		case itemQuit:
			return true, nil
		}
	}
}

// addGame walks the add dialog for item: platform, status, confirmation.
func (c *Console) addGame(ctx context.Context, wf *workflow.Workflow, item domain.SearchResultItem) error {
	wf.OpenSelection(item)
	modal := wf.View().Modal

	if len(modal.Platforms) > 0 {
		names := make([]string, 0, len(modal.Platforms)+1)
		for _, p := range modal.Platforms {
			names = append(names, p.Name)
		}
		names = append(names, itemNoChoice)
		i, err := c.prompter.Select("Platform", names)
		if err != nil {
			wf.CloseSelection()
			return err
		}
		if i < len(modal.Platforms) {
			wf.SetPlatform(modal.Platforms[i].Name)
		}
	}

	statuses := make([]string, len(modal.Statuses))
	for i, s := range modal.Statuses {
		statuses[i] = s.Name
	}
	i, err := c.prompter.Select("Status", statuses)
	if err != nil {
		wf.CloseSelection()
		return err
	}
	wf.SetStatus(modal.Statuses[i].Slug)

	i, err = c.prompter.Select(fmt.Sprintf("Add %s to your collection?", item.Name), []string{itemAdd, itemCancel})
	if err != nil || i != 0 {
		wf.CloseSelection()
		return err
	}

	_ = wf.Confirm(ctx)
	c.showAlert(wf)
	return nil
}

func (c *Console) showAlert(wf *workflow.Workflow) {
	alert := wf.View().Alert
	if !alert.Visible {
		return
	}
	mark := "✓"
	if alert.Severity == workflow.SeverityError {
		mark = "✗"
	}
	c.printf("%s %s\n", mark, alert.Message)
	wf.DismissAlert()
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func resultLabel(r domain.SearchResultItem) string {
	if len(r.Platforms) == 0 {
		return r.Name
	}
	names := r.Platforms[0].Name
	for _, p := range r.Platforms[1:] {
		names += ", " + p.Name
	}
	return r.Name + " (" + names + ")"
}
