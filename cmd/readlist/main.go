package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"readinglist/backend/internal/achievement"
	"readinglist/backend/internal/db"
	apperrors "readinglist/backend/internal/errors"
	"readinglist/backend/internal/logging"
	"readinglist/backend/internal/model"
	"readinglist/backend/internal/query"
	"readinglist/backend/internal/repository"
	"readinglist/backend/internal/service"
)

// localOwner scopes the CLI's blobs apart from server accounts sharing the
// same database file.
const localOwner = "local"

var (
	dbPath   string
	logLevel string
)

type app struct {
	database  *sql.DB
	workspace *service.Workspace
	logger    *zap.Logger
	out       io.Writer
}

func main() {
	home, _ := os.UserHomeDir()
	defaultDB := filepath.Join(home, ".readlist", "readlist.db")

	a := &app{}
	rootCmd := &cobra.Command{
		Use:           "readlist",
		Short:         "Track what you read and how long you spend on it",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context(), cmd.OutOrStdout())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDB, "database path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level")

	rootCmd.AddCommand(
		a.addCmd(),
		a.listCmd(),
		a.progressCmd(),
		a.statusCmd(),
		a.removeCmd(),
		a.readCmd(),
		a.achievementsCmd(),
		a.statsCmd(),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (a *app) open(ctx context.Context, out io.Writer) error {
	logger, err := logging.New("development", logLevel)
	if err != nil {
		return err
	}
	database, err := db.OpenSQLite(dbPath)
	if err != nil {
		return err
	}
	if err := db.RunMigrations(database, db.MigrationFS("")); err != nil {
		_ = database.Close()
		return err
	}

	ws, err := service.OpenWorkspace(ctx, repository.NewBlobRepository(database).Scoped(localOwner), service.Options{
		Logger: logger,
		Notifier: achievement.NotifierFunc(func(award achievement.Award) {
			fmt.Fprintf(out, "%s Achievement unlocked: %s (+%d, level %d)\n", award.Icon, award.Title, award.Points, award.Level)
		}),
	})
	if err != nil {
		_ = database.Close()
		return err
	}

	a.database = database
	a.logger = logger
	a.out = out
	a.workspace = ws
	return nil
}

func (a *app) close() {
	if a.database != nil {
		_ = a.database.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// resolve accepts a full id or any unambiguous prefix of one.
func (a *app) resolve(prefix string) (string, error) {
	var match string
	for _, item := range a.workspace.Items() {
		if item.ID == prefix {
			return item.ID, nil
		}
		if !strings.HasPrefix(item.ID, prefix) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("id prefix %q is ambiguous", prefix)
		}
		match = item.ID
	}
	if match == "" {
		return "", apperrors.ItemNotFound(prefix)
	}
	return match, nil
}

// check turns a service error into a command error.
func check(apiErr *apperrors.APIError) error {
	if apiErr == nil {
		return nil
	}
	return apiErr
}

func (a *app) addCmd() *cobra.Command {
	var (
		link     string
		tags     []string
		priority string
	)
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add an item to the reading list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, apiErr := a.workspace.AddItem(cmd.Context(), service.AddItemInput{
				Title:    strings.Join(args, " "),
				URL:      link,
				Tags:     tags,
				Priority: model.Priority(priority),
			})
			if res == nil {
				return check(apiErr)
			}
			fmt.Fprintf(a.out, "Added %s  %s\n", shortID(res.Item.ID), res.Item.Title)
			return check(apiErr)
		},
	}
	cmd.Flags().StringVar(&link, "url", "", "link to the item")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag (repeatable)")
	cmd.Flags().StringVar(&priority, "priority", "medium", "low, medium or high")
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	var (
		status string
		tags   []string
		sortBy string
		search string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			spec := query.DefaultSpec()
			st, err := query.ParseStatus(status)
			if err != nil {
				return err
			}
			spec.Status = st
			spec.Tags = model.NormalizeTags(tags)
			spec.Query = search
			field, order, err := query.ParseSort(sortBy)
			if err != nil {
				return err
			}
			spec.SortBy, spec.Order = field, order

			res := a.workspace.FilteredItems(spec)
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tPROGRESS\tPRIORITY\tTIME\tTAGS")
			for _, item := range res.Items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d%%\t%s\t%s\t%s\n",
					shortID(item.ID), item.Title, item.Status, item.Progress, item.Priority,
					formatSeconds(item.TimeSpent), strings.Join(item.Tags, ","))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%d item(s)\n", res.MatchCount)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", query.StatusAll, "all, unread, reading or completed")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "only items with this tag (repeatable)")
	cmd.Flags().StringVar(&sortBy, "sort", "date-added-desc", "sort key, e.g. title-asc or priority-desc")
	cmd.Flags().StringVar(&search, "query", "", "match title, url or tags")
	return cmd
}

func (a *app) progressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "progress <id> <percent>",
		Short: "Set reading progress",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.resolve(args[0])
			if err != nil {
				return err
			}
			percent, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("progress must be a number: %w", err)
			}
			res, apiErr := a.workspace.UpdateItem(cmd.Context(), id, service.UpdateItemInput{Progress: &percent})
			if res != nil {
				fmt.Fprintf(a.out, "%s  %d%%  %s\n", res.Item.Title, res.Item.Progress, res.Item.Status)
			}
			return check(apiErr)
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <unread|reading|completed>",
		Short: "Set an item's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.resolve(args[0])
			if err != nil {
				return err
			}
			status := model.Status(args[1])
			res, apiErr := a.workspace.UpdateItem(cmd.Context(), id, service.UpdateItemInput{Status: &status})
			if res != nil {
				fmt.Fprintf(a.out, "%s  %s\n", res.Item.Title, res.Item.Status)
			}
			return check(apiErr)
		},
	}
}

func (a *app) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.resolve(args[0])
			if err != nil {
				return err
			}
			_, apiErr := a.workspace.DeleteItem(cmd.Context(), id)
			if apiErr == nil {
				fmt.Fprintf(a.out, "Deleted %s\n", shortID(id))
			}
			return check(apiErr)
		},
	}
}

func (a *app) readCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <id>",
		Short: "Time a reading session until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.resolve(args[0])
			if err != nil {
				return err
			}
			if _, apiErr := a.workspace.StartSession(cmd.Context(), id); apiErr != nil {
				return check(apiErr)
			}
			item, _ := a.workspace.Item(id)
			fmt.Fprintf(a.out, "Reading %q. Press Ctrl+C to stop.\n", item.Title)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()

		loop:
			for {
				select {
				case <-ctx.Done():
					break loop
				case <-ticker.C:
					fmt.Fprintf(a.out, "\r%s", formatSeconds(a.workspace.Session().ElapsedSeconds))
				}
			}

			view, apiErr := a.workspace.EndSession(context.WithoutCancel(ctx))
			fmt.Fprintln(a.out)
			if view != nil && view.Ended != nil {
				fmt.Fprintf(a.out, "Session recorded: %s\n", formatSeconds(view.Ended.Duration))
			}
			return check(apiErr)
		},
	}
}

func (a *app) achievementsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "achievements",
		Short: "Show achievements, points and level",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			summary := a.workspace.Progress()
			fmt.Fprintf(a.out, "Level %d  %d points  %d/%d unlocked\n\n",
				summary.Level, summary.Points, len(summary.EarnedAchievements), summary.TotalAchievements)
			for _, st := range a.workspace.Achievements() {
				mark := " "
				if st.Earned {
					mark = "x"
				}
				fmt.Fprintf(a.out, "[%s] %s %-18s %3d  %s\n", mark, st.Icon, st.Title, st.Points, st.Description)
			}
			return nil
		},
	}
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show reading statistics",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			s := a.workspace.Stats()
			o := a.workspace.Overview()
			fmt.Fprintf(a.out, "Items:            %d (%d completed, %d%%)\n", s.TotalItems, s.CompletedItems, o.CompletionRate)
			fmt.Fprintf(a.out, "Time spent:       %s\n", formatSeconds(s.TotalTimeSpent))
			fmt.Fprintf(a.out, "Reading streak:   %d day(s)\n", s.ReadingStreak)
			fmt.Fprintf(a.out, "Unique tags:      %d\n", s.UniqueTags)
			if s.FastestCompletion != nil {
				fmt.Fprintf(a.out, "Fastest finish:   %s\n", formatSeconds(*s.FastestCompletion))
			}
			fmt.Fprintln(a.out, "\nLast 7 days:")
			for _, day := range o.Trend {
				fmt.Fprintf(a.out, "  %s  %s\n", day.Date, strings.Repeat("#", day.Sessions))
			}
			return nil
		},
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatSeconds(seconds int) string {
	return (time.Duration(seconds) * time.Second).String()
}
