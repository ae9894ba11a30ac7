package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dmitrymomot/focusforge/pkg/apiclient"
	"github.com/dmitrymomot/focusforge/pkg/authsession"
	"github.com/dmitrymomot/focusforge/pkg/credential"
	"github.com/dmitrymomot/focusforge/pkg/logger"
	"github.com/dmitrymomot/focusforge/pkg/requestid"
)

const usage = `usage: focusforge <command> [flags]

commands:
  status     show the session state
  whoami     print the signed-in user
  login      sign in (-email, -password)
  register   create an account (-name, -email, -password, -confirm, -alias, -private)
  logout     sign out and forget the stored credential
  tasks      list active tasks
  watch      print every session change until interrupted
`

// ErrUsage is returned for unknown commands or bad flags.
var ErrUsage = errors.New("usage error")

// IO bundles the streams a command talks to.
type IO struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

type app struct {
	cfg     Config
	io      IO
	log     *slog.Logger
	store   credential.Store
	client  *apiclient.Client
	manager *authsession.Manager
}

// Run executes one focusforge command.
func Run(ctx context.Context, cfg Config, args []string, streams IO) error {
	if len(args) == 0 {
		fmt.Fprint(streams.Err, usage)
		return ErrUsage
	}

	log := logger.New(
		logger.WithEnvironment(cfg.Env, "focusforge"),
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithOutput(streams.Err),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)

	store, closer, err := credential.Open(ctx, cfg.Credential)
	if err != nil {
		return fmt.Errorf("open credential store: %w", err)
	}
	defer func() { _ = closer.Close() }()

	client, err := apiclient.New(cfg.API,
		apiclient.WithTokenSource(store),
		apiclient.WithLogger(log),
	)
	if err != nil {
		return err
	}

	manager := authsession.New(store, client,
		authsession.WithConfig(cfg.Session),
		authsession.WithLogger(log),
	)
	client.OnUnauthorized(manager.HandleUnauthorized)
	defer func() { _ = manager.Close() }()

	a := &app{cfg: cfg, io: streams, log: log, store: store, client: client, manager: manager}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "status":
		return a.status(ctx)
	case "whoami":
		return a.whoami(ctx)
	case "login":
		return a.login(ctx, rest)
	case "register":
		return a.register(ctx, rest)
	case "logout":
		return a.logout(ctx)
	case "tasks":
		return a.tasks(ctx)
	case "watch":
		return a.watch(ctx)
	default:
		fmt.Fprintf(streams.Err, "unknown command %q\n\n%s", cmd, usage)
		return ErrUsage
	}
}

func (a *app) start(ctx context.Context) authsession.State {
	if err := a.manager.Start(ctx); err != nil {
		a.log.WarnContext(ctx, "session start", logger.Error(err))
	}
	return a.manager.Current()
}

func (a *app) status(ctx context.Context) error {
	fmt.Fprintln(a.io.Out, describe(a.start(ctx)))
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	user, ok := a.start(ctx).User()
	if !ok {
		return authsession.ErrNotAuthenticated
	}
	fmt.Fprintf(a.io.Out, "%s <%s>\n", user.DisplayName(), user.Email)
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(a.io.Err)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password; read from stdin when empty")
	if err := fs.Parse(args); err != nil {
		return errors.Join(ErrUsage, err)
	}

	if *password == "" {
		p, err := a.readLine("Password: ")
		if err != nil {
			return err
		}
		*password = p
	}

	a.start(ctx)
	user, err := a.manager.Login(ctx, apiclient.LoginRequest{Email: *email, Password: *password})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.io.Out, "Signed in as %s\n", user.DisplayName())
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(a.io.Err)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password")
	confirm := fs.String("confirm", "", "password confirmation")
	alias := fs.String("alias", "", "leaderboard alias; defaults to name")
	private := fs.Bool("private", false, "hide from the public leaderboard")
	if err := fs.Parse(args); err != nil {
		return errors.Join(ErrUsage, err)
	}

	a.start(ctx)
	user, err := a.manager.Register(ctx, apiclient.RegisterRequest{
		Name:            *name,
		Email:           *email,
		Password:        *password,
		ConfirmPassword: *confirm,
		PublicProfile:   apiclient.PublicProfile{Alias: *alias, ShowOnLeaderboard: !*private},
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.io.Out, "Welcome, %s! Your account has been created.\n", user.Name)
	return nil
}

func (a *app) logout(ctx context.Context) error {
	a.manager.Logout(ctx)
	fmt.Fprintln(a.io.Out, "Signed out")
	return nil
}

func (a *app) tasks(ctx context.Context) error {
	if !a.start(ctx).IsAuthenticated() {
		return authsession.ErrNotAuthenticated
	}

	active := true
	tasks, err := a.client.Tasks(ctx, apiclient.TaskFilter{Active: &active})
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Fprintln(a.io.Out, "No active tasks")
		return nil
	}
	for _, t := range tasks {
		fmt.Fprintf(a.io.Out, "%s\t%s\t%d %s\n", t.ID, t.Title, t.Duration.Value, t.Duration.Unit)
	}
	return nil
}

func (a *app) watch(ctx context.Context) error {
	states, cancel := a.manager.Subscribe()
	defer cancel()

	a.start(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case s, ok := <-states:
			if !ok {
				return nil
			}
			fmt.Fprintln(a.io.Out, describe(s))
		}
	}
}

func (a *app) readLine(prompt string) (string, error) {
	fmt.Fprint(a.io.Err, prompt)
	line, err := bufio.NewReader(a.io.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func describe(s authsession.State) string {
	switch s.Kind() {
	case authsession.KindAuthenticated:
		u, _ := s.User()
		return fmt.Sprintf("Signed in as %s <%s>", u.DisplayName(), u.Email)
	case authsession.KindUnauthenticated:
		return "Signed out (" + strings.ReplaceAll(s.Reason().String(), "_", " ") + ")"
	default:
		return "Checking session..."
	}
}
