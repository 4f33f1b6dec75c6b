// Command migration applies the career schema migrations under db/migrations.
//
//	migration up            apply everything pending
//	migration up 1          apply the next migration only
//	migration down          roll back the latest migration
//	migration goto 1760000000
//	migration force 1760000000
//	migration version
package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"github.com/riskibarqy/career-engine/internal/platform/logging"
	"github.com/spf13/cobra"
)

var logger = logging.NewJSON(logging.LevelInfo).With("service", "career-engine-migration")

var defaultMigrationDirs = []string{"./db/migrations", "/app/db/migrations"}

type migrationFlags struct {
	dbURL         string
	dir           string
	binaryResults bool
}

func main() {
	_ = godotenv.Load(".env")

	err := newRootCmd().Execute()
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &migrationFlags{}
	root := &cobra.Command{
		Use:          "migration",
		Short:        "Manage the career engine database schema",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.dbURL, "db-url", strings.TrimSpace(os.Getenv("DB_URL")), "postgres connection URL (DB_URL)")
	root.PersistentFlags().StringVar(&flags.dir, "dir", strings.TrimSpace(os.Getenv("MIGRATIONS_DIR")), "migrations directory (MIGRATIONS_DIR)")
	root.PersistentFlags().BoolVar(&flags.binaryResults, "prepared-binary", !envBool("DB_DISABLE_PREPARED_BINARY_RESULT"), "allow binary results for prepared statements")

	root.AddCommand(
		&cobra.Command{
			Use:   "up [n]",
			Short: "Apply all pending migrations, or the next n",
			Args:  cobra.MaximumNArgs(1),
			RunE: withMigrator(flags, func(m *migrate.Migrate, args []string) error {
				if len(args) == 0 {
					return report(m.Up(), "migrations applied")
				}
				n, err := parseSteps(args[0])
				if err != nil {
					return err
				}
				return report(m.Steps(n), "migrations applied", "steps", n)
			}),
		},
		&cobra.Command{
			Use:   "down [n]",
			Short: "Roll back the latest n migrations (default 1)",
			Args:  cobra.MaximumNArgs(1),
			RunE: withMigrator(flags, func(m *migrate.Migrate, args []string) error {
				n := 1
				if len(args) == 1 {
					var err error
					if n, err = parseSteps(args[0]); err != nil {
						return err
					}
				}
				return report(m.Steps(-n), "migrations rolled back", "steps", n)
			}),
		},
		&cobra.Command{
			Use:     "goto <version>",
			Aliases: []string{"migrate"},
			Short:   "Migrate up or down to an exact version",
			Args:    cobra.ExactArgs(1),
			RunE: withMigrator(flags, func(m *migrate.Migrate, args []string) error {
				target, err := parseTarget(args[0])
				if err != nil {
					return err
				}
				return report(m.Migrate(target), "migrated to version", "version", target)
			}),
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Mark a version as applied and clear the dirty flag",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrator(flags, func(m *migrate.Migrate, args []string) error {
				version, err := parseVersion(args[0])
				if err != nil {
					return err
				}
				if err := m.Force(version); err != nil {
					return fmt.Errorf("force version %d: %w", version, err)
				}
				logger.Info("forced version", "version", version)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(flags, func(m *migrate.Migrate, _ []string) error {
					version, dirty, err := m.Version()
					if errors.Is(err, migrate.ErrNilVersion) {
						fmt.Fprintln(cmd.OutOrStdout(), "version: none")
						fmt.Fprintln(cmd.OutOrStdout(), "dirty: false")
						return nil
					}
					if err != nil {
						return fmt.Errorf("read version: %w", err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "version: %d\ndirty: %t\n", version, dirty)
					return nil
				})(cmd, args)
			},
		},
	)
	return root
}

func withMigrator(flags *migrationFlags, run func(m *migrate.Migrate, args []string) error) func(*cobra.Command, []string) error {
	return func(_ *cobra.Command, args []string) error {
		if strings.TrimSpace(flags.dbURL) == "" {
			return fmt.Errorf("DB_URL is required")
		}
		dir, err := resolveMigrationsDir(flags.dir)
		if err != nil {
			return err
		}

		source := "file://" + filepath.ToSlash(dir)
		m, err := migrate.New(source, migrationDSN(flags.dbURL, !flags.binaryResults))
		if err != nil {
			return fmt.Errorf("create migrator: %w", err)
		}
		defer closeMigrator(m)

		logger.Debug("migrator ready", "source", source)
		return run(m, args)
	}
}

// report treats ErrNoChange as success.
func report(err error, msg string, args ...any) error {
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no migration changes")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info(msg, args...)
	return nil
}

func closeMigrator(m *migrate.Migrate) {
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		logger.Warn("close migration source", "error", srcErr)
	}
	if dbErr != nil {
		logger.Warn("close migration db", "error", dbErr)
	}
}

func parseSteps(raw string) (int, error) {
	steps, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid steps %q: %w", raw, err)
	}
	if steps <= 0 {
		return 0, fmt.Errorf("steps must be > 0, got %d", steps)
	}
	return steps, nil
}

// parseVersion accepts golang-migrate's timestamp versions, which must fit
// an int for Force.
func parseVersion(raw string) (int, error) {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, strconv.IntSize)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", raw, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("version must be >= 0")
	}
	return int(value), nil
}

func parseTarget(raw string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimSpace(raw), 10, strconv.IntSize)
	if err != nil {
		return 0, fmt.Errorf("invalid target version %q: %w", raw, err)
	}
	return uint(value), nil
}

// resolveMigrationsDir prefers an explicit dir and then the usual locations
// for a local checkout and the container image.
func resolveMigrationsDir(explicit string) (string, error) {
	candidates := defaultMigrationDirs
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		candidates = []string{explicit}
	}

	for _, candidate := range candidates {
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			return abs, nil
		}
	}
	return "", fmt.Errorf("migration directory not found (checked %s)", strings.Join(candidates, ", "))
}

func migrationDSN(raw string, disablePreparedBinary bool) string {
	raw = strings.TrimSpace(raw)
	if !disablePreparedBinary {
		return raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" {
		return raw
	}
	query := parsed.Query()
	if query.Get("disable_prepared_binary_result") == "" {
		query.Set("disable_prepared_binary_result", "yes")
		parsed.RawQuery = query.Encode()
	}
	return parsed.String()
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return err == nil && v
}
