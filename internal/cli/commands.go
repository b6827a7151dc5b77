// Package cli implements starboardctl, the admin command line for the
// scheduling API.
package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/okian/starboard/internal/domain/model"
	"github.com/okian/starboard/internal/domain/picker"
	"github.com/okian/starboard/internal/domain/schedule"
)

const defaultURL = "http://localhost:8080"

// globals holds the persistent flags.
type globals struct {
	url      string
	password string
	token    string
	timeout  time.Duration
}

func (g *globals) client() *Client {
	return NewClient(g.url,
		WithPassword(g.password),
		WithToken(g.token),
		WithTimeout(g.timeout),
	)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewRootCommand builds the starboardctl command tree.
func NewRootCommand() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:   "starboardctl",
		Short: "Manage the meeting coordinator board",
		Long: `starboardctl talks to a starboard server to manage coordinators and
generate monthly boards. Mutating commands need --password (or
STARBOARD_PASSWORD) or a token from "starboardctl login" (STARBOARD_TOKEN).

Examples:
  starboardctl coordinators list
  starboardctl seed --roster roster.toml
  starboardctl generate --start 2025-03 --months 6
  starboardctl board show 2025-03
  starboardctl plan --roster roster.toml --seed 7`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&g.url, "url", envOr("STARBOARD_URL", defaultURL), "Base URL of the server")
	root.PersistentFlags().StringVar(&g.password, "password", os.Getenv("STARBOARD_PASSWORD"), "Admin password")
	root.PersistentFlags().StringVar(&g.token, "token", os.Getenv("STARBOARD_TOKEN"), "Bearer token from login")
	root.PersistentFlags().DurationVar(&g.timeout, "timeout", defaultTimeout, "HTTP request timeout")

	root.AddCommand(
		newLoginCommand(g),
		newCoordinatorsCommand(g),
		newBoardCommand(g),
		newGenerateCommand(g),
		newRegenerateCommand(g),
		newSeedCommand(g),
		newPlanCommand(),
	)
	return root
}

func newLoginCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Exchange the admin password for a token",
		Long: `Print a bearer token for the admin password. Export it as
STARBOARD_TOKEN to skip the password on later commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw := g.password
			if pw == "" {
				var err error
				if pw, err = promptPassword(cmd); err != nil {
					return err
				}
			}
			c := NewClient(g.url, WithPassword(pw), WithTimeout(g.timeout))
			token, expires, err := c.Login(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintln(cmd.ErrOrStderr(), dimStyle.Render("expires "+expires.Format(time.RFC3339)))
			return nil
		},
	}
}

// promptPassword reads the password from the terminal without echo.
func promptPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd()) //nolint:gosec // file descriptors fit in int
	if !term.IsTerminal(fd) {
		return "", errors.New("--password or STARBOARD_PASSWORD is required")
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

func newCoordinatorsCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "coordinators",
		Aliases: []string{"coords"},
		Short:   "Manage coordinators",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show the roster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			coords, err := g.client().Coordinators(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), RenderCoordinators(coords))
			return nil
		},
	}

	var (
		stars       int
		phone       string
		unavailable bool
	)
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a coordinator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var starsPtr *int
			if cmd.Flags().Changed("stars") {
				starsPtr = &stars
			}
			var availPtr *bool
			if unavailable {
				off := false
				availPtr = &off
			}
			c, err := g.client().AddCoordinator(cmd.Context(), args[0], starsPtr, availPtr, phone)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s added %s (%s)\n", okStyle.Render("✓"), c.Name, c.ID)
			return nil
		},
	}
	add.Flags().IntVar(&stars, "stars", 0, "Starting stars (server default when unset)")
	add.Flags().StringVar(&phone, "phone", "", "Contact phone")
	add.Flags().BoolVar(&unavailable, "unavailable", false, "Add without entering the pick pool")

	remove := &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a coordinator",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := g.client().RemoveCoordinator(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s removed %s\n", okStyle.Render("✓"), args[0])
			return nil
		},
	}

	cmd.AddCommand(list, add, remove)
	return cmd
}

func newBoardCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Inspect boards",
	}
	show := &cobra.Command{
		Use:   "show [month]",
		Short: "Show one month (YYYY-MM) or every board",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := g.client()
			if len(args) == 1 {
				b, err := c.Board(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), RenderBoard(b))
				return nil
			}
			boards, err := c.Boards(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), RenderBoards(boards))
			return nil
		},
	}
	cmd.AddCommand(show)
	return cmd
}

func newGenerateCommand(g *globals) *cobra.Command {
	var (
		start  string
		months int
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Discard every board and generate a new horizon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := g.client().Generate(cmd.Context(), start, months)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), RenderBoards(res.Boards))
			fmt.Fprint(cmd.OutOrStdout(), RenderSummary(res))
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "First month, YYYY-MM (server's current month when empty)")
	cmd.Flags().IntVar(&months, "months", 0, "Number of months (server default when 0)")
	return cmd
}

func newRegenerateCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate <month>...",
		Short: "Re-pick the remaining weeks of one or more months",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, m := range args {
				if _, err := model.ParseMonth(m); err != nil {
					return err
				}
			}
			res, err := g.client().Regenerate(cmd.Context(), args...)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), RenderSummary(res))
			return nil
		},
	}
}

func newSeedCommand(g *globals) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Replace the roster with the coordinators in a TOML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			coords, err := LoadRoster(path)
			if err != nil {
				return err
			}
			saved, err := g.client().ReplaceCoordinators(cmd.Context(), coords)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s seeded %d coordinators\n", okStyle.Render("✓"), len(saved))
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "roster", "roster.toml", "Roster file")
	return cmd
}

func newPlanCommand() *cobra.Command {
	var (
		path   string
		start  string
		months int
		seed   int64
	)
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Generate boards locally without a server",
		Long: `Run the generator against a TOML roster and print the result. Nothing
is saved. The same --seed always yields the same boards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			coords, err := LoadRoster(path)
			if err != nil {
				return err
			}
			from := model.MonthOf(time.Now())
			if start != "" {
				if from, err = model.ParseMonth(start); err != nil {
					return err
				}
			}
			res, err := plan(coords, from, months, seed)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), RenderBoards(res.Boards))
			fmt.Fprint(cmd.OutOrStdout(), RenderSummary(res))
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "roster", "roster.toml", "Roster file")
	cmd.Flags().StringVar(&start, "start", "", "First month, YYYY-MM (current month when empty)")
	cmd.Flags().IntVar(&months, "months", 1, "Number of months")
	cmd.Flags().Int64Var(&seed, "seed", 1, "Random seed")
	return cmd
}

// plan runs the generator offline with a seeded picker.
func plan(coords []model.Coordinator, start model.Month, months int, seed int64) (GenerationResult, error) {
	gen := schedule.NewGenerator(picker.New(picker.WithSeed(seed)))
	res, err := gen.Generate(coords, start, months)
	if err != nil {
		return GenerationResult{}, err
	}
	return GenerationResult{
		Boards:     res.Boards,
		Assigned:   res.Assigned,
		Unassigned: res.Unassigned,
		StarsSpent: res.StarsSpent,
	}, nil
}
