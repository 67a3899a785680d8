package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/naveenspark/clubdesk/internal/auth"
	"github.com/naveenspark/clubdesk/internal/browser"
	"github.com/naveenspark/clubdesk/internal/config"
	"github.com/naveenspark/clubdesk/internal/logging"
	"github.com/naveenspark/clubdesk/internal/session"
	"github.com/naveenspark/clubdesk/internal/tui"
	"github.com/naveenspark/clubdesk/pkg/client"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

// Exit codes.
const (
	exitGeneral = 1
	exitUsage   = 2
	exitAuth    = 5
	exitNetwork = 6
)

var (
	errNotSignedIn = errors.New("not signed in: run `clubdesk login`")
	errUsage       = errors.New("usage")
)

func usageErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, cleanup := newRootCmd(defaultOptions())
	err := root.ExecuteContext(ctx)
	cleanup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", describe(err)) //nolint:errcheck
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, client.ErrNetwork):
		return exitNetwork
	case errors.Is(err, errNotSignedIn),
		errors.Is(err, auth.ErrNoSession),
		errors.Is(err, client.ErrInvalidCredentials),
		errors.Is(err, client.ErrUnauthorized),
		errors.Is(err, client.ErrInvalidCode):
		return exitAuth
	case errors.Is(err, errUsage), errors.Is(err, client.ErrValidation):
		return exitUsage
	}
	msg := err.Error()
	if strings.Contains(msg, "unknown command") || strings.Contains(msg, "unknown flag") {
		return exitUsage
	}
	return exitGeneral
}

// describe prefers the backend's message for HTTP failures.
func describe(err error) string {
	var httpErr *client.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Message
	}
	return err.Error()
}

// options are the process-level dependencies, swapped in tests.
type options struct {
	in          io.Reader
	out         io.Writer
	errOut      io.Writer
	interactive bool
	getenv      func(string) (string, bool)
	prompt      prompter
	copy        func(string) error
	openURL     func(string) error
	runTUI      func(*auth.Authority) error
	now         func() time.Time
}

func defaultOptions() options {
	return options{
		in:          os.Stdin,
		out:         os.Stdout,
		errOut:      os.Stderr,
		interactive: isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()),
		getenv:      os.LookupEnv,
		prompt:      huhPrompter{},
		copy:        clipboard.WriteAll,
		openURL:     browser.Open,
		runTUI:      runConsole,
		now:         time.Now,
	}
}

func runConsole(a *auth.Authority) error {
	app := tui.NewApp(a, version)
	defer app.Close()
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}

// globalFlags override config values when set on the command line.
type globalFlags struct {
	configFile string
	apiURL     string
	store      string
	stateDir   string
	logLevel   string
}

// cli holds what a command needs once configuration is resolved.
type cli struct {
	opts    options
	flags   globalFlags
	cfg     *config.Config
	logger  *slog.Logger
	auth    *auth.Authority
	closers []io.Closer
}

// open resolves config, logging, the session store, and the authority, then
// rehydrates the stored session.
func (c *cli) open(cmd *cobra.Command) error {
	if c.auth != nil {
		return nil
	}
	cfg, err := config.Load(config.Options{File: c.flags.configFile, Getenv: c.opts.getenv})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	fl := cmd.Flags()
	if fl.Changed("api-url") {
		cfg.APIURL = c.flags.apiURL
	}
	if fl.Changed("store") {
		cfg.Store = c.flags.store
	}
	if fl.Changed("state-dir") {
		cfg.StateDir = c.flags.stateDir
	}
	if fl.Changed("log-level") {
		cfg.LogLevel = c.flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return usageErr("%v", err)
	}
	c.cfg = cfg

	logger, closer, err := logging.Open(cfg.LogPath(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	c.closers = append(c.closers, closer)
	c.logger = logger.With("command", cmd.Name())

	store, err := c.openStore()
	if err != nil {
		return err
	}
	gw := client.New(cfg.APIURL,
		client.WithTimeout(cfg.Timeout),
		client.WithLogger(c.logger.With("component", "client")),
	)
	c.auth = auth.New(gw, store, c.logger)
	c.auth.Start()
	c.logger.Debug("ready", "store", cfg.Store, "api_url", cfg.APIURL)
	return nil
}

func (c *cli) openStore() (session.Store, error) {
	switch c.cfg.Store {
	case config.StoreMemory:
		return session.NewMemoryStore(), nil
	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{Addr: c.cfg.RedisAddr})
		c.closers = append(c.closers, rdb)
		return session.NewRedisStore(rdb, c.cfg.RedisPrefix, c.logger), nil
	default:
		return session.NewFileStore(filepath.Join(c.cfg.StateDir, "session"), c.logger), nil
	}
}

func (c *cli) close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i].Close() //nolint:errcheck // best-effort close
	}
	c.closers = nil
}

func (c *cli) printf(format string, args ...any) {
	fmt.Fprintf(c.opts.out, format, args...) //nolint:errcheck
}

// newRootCmd builds the command tree. The returned func releases whatever the
// command opened.
func newRootCmd(opts options) (*cobra.Command, func()) {
	c := &cli{opts: opts}
	root := &cobra.Command{
		Use:   "clubdesk",
		Short: "Club management console",
		Long: `clubdesk is the terminal console for club and studio owners and their staff.
Run it without arguments to open the interactive console.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.open(cmd); err != nil {
				return err
			}
			return c.opts.runTUI(c.auth)
		},
	}
	root.SetIn(opts.in)
	root.SetOut(opts.out)
	root.SetErr(opts.errOut)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageErr("%v", err)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&c.flags.configFile, "config", "", "config file (default ~/.clubdesk/config.yaml)")
	pf.StringVar(&c.flags.apiURL, "api-url", "", "backend base URL")
	pf.StringVar(&c.flags.store, "store", "", "session store: file, memory or redis")
	pf.StringVar(&c.flags.stateDir, "state-dir", "", "directory for the session and logs")
	pf.StringVar(&c.flags.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(
		c.loginCmd(),
		c.registerCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.resetPasswordCmd(),
		c.changePasswordCmd(),
		c.onboardCmd(),
		c.tokenCmd(),
		c.termsCmd(),
		c.versionCmd(),
	)
	return root, c.close
}
