// Package shell is the interactive command loop of the client binary.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/atinyakov/shoebox/internal/identity"
	"github.com/atinyakov/shoebox/internal/models"
	"github.com/atinyakov/shoebox/internal/shoebox"
)

// Prompt is printed before every command.
const Prompt = "shoebox> "

// shortID is how many id characters list output shows.
const shortID = 8

var (
	errUnknownID   = errors.New("no card with that id")
	errAmbiguousID = errors.New("id prefix matches more than one card")
	errNoSession   = errors.New("not signed in to a remote store")
)

const helpText = `Available commands:
  help                       show this text
  list                       show the displayed cards
  trash                      show archived cards
  add [color:] text          add a card (no text prompts for it)
  edit <id> text             replace a card's content
  color <id> <color>         change a card's color
  archive <id>               move a card to the trash
  restore <id>               bring a card back from the trash
  delete <id>                delete a card forever
  move <id...>               reorder active cards
  shuffle                    shuffle all cards
  sort [custom|newest|oldest]
  search [text]              filter by text, no text clears
  filter [colors...]         filter by colors, none clears
  view active|trash          switch the displayed view
  count                      card and word totals
  reload                     reload cards from storage
  status                     user, sort mode, view and loading state
  logout                     end the remote session
  exit`

// Shell reads commands from in and writes results to out.
type Shell struct {
	store    *shoebox.Store
	identity identity.Provider
	scanner  *bufio.Scanner
	out      io.Writer
}

// Option configures a Shell.
type Option func(*Shell)

// WithIdentity sets the identity the store runs under. Providers with a
// SignOut method enable the logout command.
func WithIdentity(p identity.Provider) Option {
	return func(s *Shell) { s.identity = p }
}

// New returns a shell over store.
func New(store *shoebox.Store, in io.Reader, out io.Writer, opts ...Option) *Shell {
	s := &Shell{store: store, scanner: bufio.NewScanner(in), out: out}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run loads the store and processes commands until exit or end of input.
func (s *Shell) Run(ctx context.Context) error {
	if err := s.store.Load(ctx); err != nil {
		s.printf("error: %v\n", err)
	}
	for {
		s.printf("%s", Prompt)
		if !s.scanner.Scan() {
			return s.scanner.Err()
		}
		if quit := s.Exec(ctx, s.scanner.Text()); quit {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// Exec runs one command line and reports whether the shell should stop.
func (s *Shell) Exec(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	args := strings.Fields(rest)

	var err error
	switch cmd {
	case "":
	case "help":
		s.printf("%s\n", helpText)
	case "list":
		s.list(s.store.Displayed())
	case "trash":
		s.list(s.store.Archived())
	case "add":
		err = s.add(ctx, rest)
	case "edit":
		err = s.withID(args, 2, "edit <id> text", func(id string) error {
			_, text, _ := strings.Cut(rest, " ")
			return s.store.EditContent(ctx, id, strings.TrimSpace(text))
		})
	case "color":
		err = s.withID(args, 2, "color <id> <color>", func(id string) error {
			color := models.Color(strings.ToLower(args[1]))
			if !color.Valid() {
				return fmt.Errorf("unknown color %q", args[1])
			}
			return s.store.ChangeColor(ctx, id, color)
		})
	case "archive":
		err = s.withID(args, 1, "archive <id>", func(id string) error { return s.store.Archive(ctx, id) })
	case "restore":
		err = s.withID(args, 1, "restore <id>", func(id string) error { return s.store.Restore(ctx, id) })
	case "delete":
		err = s.withID(args, 1, "delete <id>", func(id string) error { return s.store.DeleteForever(ctx, id) })
	case "move":
		err = s.move(ctx, args)
	case "shuffle":
		err = s.store.Shuffle(ctx)
	case "sort":
		if len(args) == 0 {
			s.printf("sort: %s\n", s.store.SortMode())
			break
		}
		err = s.store.SetSortMode(models.SortMode(strings.ToLower(args[0])))
	case "search":
		s.store.SetSearch(rest)
	case "filter":
		err = s.filter(args)
	case "view":
		err = s.view(args)
	case "count":
		s.printf("active: %d, trash: %d, words: %d\n",
			len(s.store.Active()), len(s.store.Archived()), s.store.TotalWordCount())
	case "reload":
		err = s.store.Load(ctx)
	case "status":
		s.status()
	case "logout":
		err = s.logout()
	case "exit", "quit":
		s.printf("Bye\n")
		return true
	default:
		s.printf("Unknown command. Type 'help' for a list of commands.\n")
	}
	if err != nil {
		s.printf("error: %v\n", err)
	}
	return false
}

func (s *Shell) status() {
	user := "(none)"
	if s.identity != nil {
		if id := s.identity.CurrentUserID(); id != "" {
			user = id
		}
	}
	view := "active"
	if s.store.ArchiveView() {
		view = "trash"
	}
	s.printf("user: %s, sort: %s, view: %s, loading: %t\n", user, s.store.SortMode(), view, s.store.Loading())
}

// logout signs the session out. The store drops its cards on the session change.
func (s *Shell) logout() error {
	session, ok := s.identity.(interface{ SignOut() })
	if !ok || s.identity.CurrentUserID() == "" {
		return errNoSession
	}
	session.SignOut()
	s.printf("Signed out\n")
	return nil
}

func (s *Shell) list(cards []models.Card) {
	if s.store.IsFiltered() && !s.store.ArchiveView() {
		s.printf("(filtered: search=%q colors=%v)\n", s.store.Search(), s.store.ColorFilters())
	}
	if len(cards) == 0 {
		s.printf("no cards\n")
		return
	}
	for i, c := range cards {
		id := c.ID
		if len(id) > shortID {
			id = id[:shortID]
		}
		s.printf("%3d. %-8s [%s] %s\n", i+1, id, c.Color, c.Content)
	}
}

func (s *Shell) add(ctx context.Context, rest string) error {
	color, text := models.ColorDefault, rest
	if rest == "" {
		text = s.ask("Enter content: ")
		if answer := strings.ToLower(s.ask("Enter color (default/yellow/blue/pink): ")); answer != "" {
			color = models.Color(answer)
		}
	} else if head, tail, ok := strings.Cut(rest, ":"); ok && models.Color(strings.ToLower(head)).Valid() {
		color, text = models.Color(strings.ToLower(head)), strings.TrimSpace(tail)
	}
	if !color.Valid() {
		return fmt.Errorf("unknown color %q", color)
	}
	card, err := s.store.Add(ctx, text, color)
	if err != nil {
		return err
	}
	s.printf("Card added: %s\n", card.ID)
	return nil
}

func (s *Shell) move(ctx context.Context, args []string) error {
	if len(args) == 0 {
		s.printf("Usage: move <id...>\n")
		return nil
	}
	ids := make([]string, 0, len(args))
	for _, a := range args {
		id, err := s.resolve(a)
		if err != nil {
			return fmt.Errorf("%s: %w", a, err)
		}
		ids = append(ids, id)
	}
	return s.store.Reorder(ctx, ids)
}

func (s *Shell) filter(args []string) error {
	colors := make([]models.Color, 0, len(args))
	for _, a := range args {
		c := models.Color(strings.ToLower(a))
		if !c.Valid() {
			return fmt.Errorf("unknown color %q", a)
		}
		colors = append(colors, c)
	}
	s.store.SetColorFilters(colors...)
	return nil
}

func (s *Shell) view(args []string) error {
	if len(args) != 1 {
		s.printf("Usage: view active|trash\n")
		return nil
	}
	switch args[0] {
	case "active":
		s.store.SetArchiveView(false)
	case "trash":
		s.store.SetArchiveView(true)
	default:
		return fmt.Errorf("unknown view %q", args[0])
	}
	return nil
}

// withID resolves args[0] and calls fn when at least n arguments were given.
func (s *Shell) withID(args []string, n int, usage string, fn func(id string) error) error {
	if len(args) < n {
		s.printf("Usage: %s\n", usage)
		return nil
	}
	id, err := s.resolve(args[0])
	if err != nil {
		return err
	}
	return fn(id)
}

// resolve maps an exact id or a unique id prefix to a card id.
func (s *Shell) resolve(prefix string) (string, error) {
	if _, ok := s.store.Get(prefix); ok {
		return prefix, nil
	}
	var match string
	for _, c := range append(s.store.Active(), s.store.Archived()...) {
		if strings.HasPrefix(c.ID, prefix) {
			if match != "" {
				return "", errAmbiguousID
			}
			match = c.ID
		}
	}
	if match == "" {
		return "", errUnknownID
	}
	return match, nil
}

func (s *Shell) ask(question string) string {
	s.printf("%s", question)
	if !s.scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(s.scanner.Text())
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}
