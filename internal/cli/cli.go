// Package cli implements portalctl, a terminal client that signs in to the
// course backend and lists courses and test suites. It keeps its token in a
// local SQLite file, one session per --profile.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/eduassist/portal/config"
	"github.com/eduassist/portal/internal/backend"
	"github.com/eduassist/portal/internal/bootstrap"
	"github.com/eduassist/portal/internal/data"
	"github.com/eduassist/portal/internal/migrate"
	"github.com/eduassist/portal/internal/ports"
	"github.com/eduassist/portal/internal/service"
	"github.com/eduassist/portal/internal/session"
)

// ErrNotSignedIn is returned by commands that need a token.
var ErrNotSignedIn = errors.New("not signed in; run `portalctl auth login`")

// StorageOpener opens durable storage at path. The returned closer may be nil.
type StorageOpener func(ctx context.Context, path string) (ports.DurableStorage, io.Closer, error)

// Options configures the root command. Zero values select the defaults used
// by the portalctl binary.
type Options struct {
	Out         io.Writer
	OpenStorage StorageOpener
	Prompter    Prompter
	Logger      *slog.Logger
}

type globalFlags struct {
	profile    string
	output     string
	backendURL string
	dbPath     string
}

// runtime is built once per invocation in PersistentPreRunE.
type runtime struct {
	out     io.Writer
	format  Format
	profile string
	store   *session.Store
	auth    session.Auth
	client  *backend.Client
	svc     *service.AuthService
	closer  io.Closer
}

type app struct {
	opts  Options
	flags globalFlags
	rt    *runtime
}

// NewRootCommand builds the portalctl command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.OpenStorage == nil {
		opts.OpenStorage = OpenSQLite
	}
	if opts.Prompter == nil {
		opts.Prompter = FormPrompter{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	a := &app{opts: opts}

	root := &cobra.Command{
		Use:   "portalctl",
		Short: "Terminal client for the EduAssist portal backend",
		Long: `portalctl signs in to the EduAssist backend and lists what the signed-in
user can see. Tokens are kept in a local SQLite file, one per --profile, so a
login survives restarts.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.teardown()
		},
	}
	root.SetOut(opts.Out)

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.profile, "profile", "default", "session profile name")
	pf.StringVarP(&a.flags.output, "output", "o", string(FormatTable), "output format: table, json or yaml")
	pf.StringVar(&a.flags.backendURL, "backend-url", envOr("BACKEND_BASE_URL", "http://localhost:8000"), "backend API base URL")
	pf.StringVar(&a.flags.dbPath, "db", defaultDBPath(), "path of the local session database")

	root.AddCommand(newAuthCommand(a), newCoursesCommand(a), newSuitesCommand(a))
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	format, err := ParseFormat(a.flags.output)
	if err != nil {
		return err
	}
	if a.flags.profile == "" {
		return errors.New("--profile must not be empty")
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	storage, closer, err := a.opts.OpenStorage(ctx, a.flags.dbPath)
	if err != nil {
		return fmt.Errorf("open session database: %w", err)
	}

	// The profile plays the role a browser client id plays on the server.
	store := session.NewStore(session.StoreOptions{
		Storage: session.Scope(storage, a.flags.profile),
		Logger:  a.opts.Logger,
	})
	if err := store.Hydrate(ctx); err != nil {
		a.opts.Logger.Warn("session hydration failed", "error", err)
	}

	client, err := backend.NewClient(backend.Options{
		BaseURL: a.flags.backendURL,
		Tokens:  store,
		Logger:  a.opts.Logger,
	})
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return err
	}

	a.rt = &runtime{
		out:     cmd.OutOrStdout(),
		format:  format,
		profile: a.flags.profile,
		store:   store,
		auth:    session.NewAuth(store),
		client:  client,
		svc:     service.NewAuthService(service.AuthServiceOptions{Authenticator: client, Registrar: client}),
		closer:  closer,
	}
	return nil
}

func (a *app) teardown() error {
	if a.rt == nil || a.rt.closer == nil {
		return nil
	}
	return a.rt.closer.Close()
}

func (a *app) requireToken(ctx context.Context) error {
	if !a.rt.auth.IsAuthenticated(ctx) {
		return ErrNotSignedIn
	}
	return nil
}

// OpenSQLite opens (and migrates) the SQLite session database at path.
func OpenSQLite(ctx context.Context, path string) (ports.DurableStorage, io.Closer, error) {
	cfg := config.SQLiteConfig{Path: path, BusyTimeout: 5 * time.Second}
	cfg.Sanitize()
	db, err := bootstrap.ConnectSQLite(bootstrap.DatabaseConfig{SQLiteConfig: cfg})
	if err != nil {
		return nil, nil, err
	}
	if err := bootstrap.RunMigrations(ctx, db, migrate.SQLite, nil); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return data.NewStorageRepo(db, migrate.SQLite), db, nil
}

func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "portal.db"
	}
	return filepath.Join(dir, "eduassist", "portal.db")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
