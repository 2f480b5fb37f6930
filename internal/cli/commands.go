package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/lazypower/warmth/internal/engine"
	"github.com/lazypower/warmth/internal/warmth"
	"github.com/spf13/cobra"
)

const cliTimeout = 30 * time.Second

var bandColors = map[warmth.Band]*color.Color{
	warmth.BandHot:     color.New(color.FgRed, color.Bold),
	warmth.BandWarm:    color.New(color.FgYellow),
	warmth.BandNeutral: color.New(color.FgWhite),
	warmth.BandCool:    color.New(color.FgCyan),
	warmth.BandCold:    color.New(color.FgBlue, color.Bold),
}

func bandString(b warmth.Band) string {
	if c, ok := bandColors[b]; ok {
		return c.Sprint(b)
	}
	return string(b)
}

func printReading(w io.Writer, r engine.Reading) {
	fmt.Fprintf(w, "%s  %6.2f  %-7s  %-6s  computed %s\n",
		r.ContactID, r.Score, bandString(r.Band), r.Mode, humanize.Time(r.ComputedAt))
}

// withEngine runs fn against a local engine with a bounded context.
func withEngine(fn func(ctx context.Context, eng *engine.Engine) error) error {
	eng, closeFn, err := openEngine()
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, cancel := context.WithTimeout(context.Background(), cliTimeout)
	defer cancel()
	return fn(ctx, eng)
}

// --- contact commands ---

var (
	contactName  string
	contactMode  string
	contactScore float64
	contactLimit int
)

var contactCmd = &cobra.Command{
	Use:   "contact",
	Short: "Manage contacts",
}

var contactAddCmd = &cobra.Command{
	Use:   "add [id]",
	Short: "Provision a contact with a fresh anchor",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := engine.ProvisionRequest{DisplayName: contactName, Mode: contactMode}
		if len(args) > 0 {
			req.ID = args[0]
		}
		if cmd.Flags().Changed("score") {
			req.InitialScore = &contactScore
		}
		return withEngine(func(ctx context.Context, eng *engine.Engine) error {
			p, err := eng.Provision(ctx, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %6.2f  %-7s  %s\n",
				p.Contact.ID, p.Anchor.Score, bandString(warmth.Classify(p.Anchor.Score)), p.Anchor.Mode)
			return nil
		})
	},
}

var contactRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a contact and its history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, eng *engine.Engine) error {
			return eng.Delete(ctx, args[0])
		})
	},
}

var contactLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List contacts with their current warmth",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, eng *engine.Engine) error {
			list, err := eng.List(ctx, contactLimit)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No contacts yet.")
				return nil
			}
			for _, l := range list {
				name := l.Contact.DisplayName
				if name == "" {
					name = "-"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-36s  %-20s  %6.2f  %-7s  %-6s  added %s\n",
					l.Contact.ID, name, l.Reading.Score, bandString(l.Reading.Band), l.Reading.Mode,
					humanize.Time(l.Contact.CreatedAt))
			}
			return nil
		})
	},
}

// --- show / mode / touch ---

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a contact's current warmth",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, eng *engine.Engine) error {
			r, err := eng.Current(ctx, args[0])
			if err != nil {
				return err
			}
			printReading(cmd.OutOrStdout(), r)
			return nil
		})
	},
}

var modeCmd = &cobra.Command{
	Use:   "mode <id> <mode>",
	Short: "Switch a contact's decay mode without a jump in score",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, eng *engine.Engine) error {
			res, err := eng.SwitchMode(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			if !res.Changed {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already %s (%.2f)\n", args[0], res.ModeAfter, res.ScoreAfter)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s -> %s  %.2f  %s\n",
				args[0], res.ModeBefore, res.ModeAfter, res.ScoreAfter, bandString(res.BandAfter))
			return nil
		})
	},
}

var touchPoints float64

var touchCmd = &cobra.Command{
	Use:   "touch <id> <message|call|meeting>",
	Short: "Record an interaction and re-anchor the score",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		interaction, err := warmth.ParseInteraction(args[1], touchPoints)
		if err != nil {
			return err
		}
		return withEngine(func(ctx context.Context, eng *engine.Engine) error {
			res, err := eng.Absorb(ctx, args[0], interaction)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %.2f -> %.2f  %s\n",
				args[0], res.ScoreBefore, res.ScoreAfter, bandString(res.BandAfter))
			return nil
		})
	},
}

// --- history ---

var (
	historyWindow string
	historyStart  string
	historyEnd    string
	historyStep   string
)

var historyCmd = &cobra.Command{
	Use:   "history <id>",
	Short: "Show how a contact's warmth evolved",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		window := historyWindow
		if window == "" && historyStart == "" {
			window = "30d"
		}
		win, err := engine.ParseWindow(window, historyStart, historyEnd, historyStep)
		if err != nil {
			return err
		}
		return withEngine(func(ctx context.Context, eng *engine.Engine) error {
			snaps, err := eng.History(ctx, args[0], win)
			if err != nil {
				return err
			}
			if len(snaps) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No history in that window.")
				return nil
			}
			for _, s := range snaps {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %6.2f  %-7s  %-6s  %s\n",
					s.At.Format(time.RFC3339), s.Score, bandString(s.Band()), s.Mode, s.Source)
			}
			return nil
		})
	},
}

// --- modes / refresh ---

var modesCmd = &cobra.Command{
	Use:   "modes",
	Short: "List decay modes",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, m := range warmth.Modes() {
			note := ""
			if m.Diagnostic {
				note = "  (diagnostic)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-6s  lambda %.6f/day  100 -> %.0f in %s  half-life %s%s\n",
				m.Mode, m.Lambda, warmth.CharacteristicTarget, m.Period, m.HalfLife().Round(time.Second), note)
		}
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Recompute stale cached scores",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, eng *engine.Engine) error {
			n, err := eng.RefreshStale(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "refreshed %s cached scores\n", humanize.Comma(int64(n)))
			return nil
		})
	},
}

func init() {
	contactAddCmd.Flags().StringVar(&contactName, "name", "", "Display name")
	contactAddCmd.Flags().StringVarP(&contactMode, "mode", "m", "", "Decay mode (default from config)")
	contactAddCmd.Flags().Float64Var(&contactScore, "score", 0, "Initial score in [0,100] (default from config)")
	contactLsCmd.Flags().IntVarP(&contactLimit, "limit", "n", 100, "Maximum number of contacts")
	contactCmd.AddCommand(contactAddCmd, contactRmCmd, contactLsCmd)

	touchCmd.Flags().Float64Var(&touchPoints, "points", 0, "Add fixed points instead of the kind's reinforcement")

	historyCmd.Flags().StringVarP(&historyWindow, "window", "w", "", "Lookback window ending now, e.g. 30d, 2w, 12h")
	historyCmd.Flags().StringVar(&historyStart, "start", "", "Window start (RFC 3339)")
	historyCmd.Flags().StringVar(&historyEnd, "end", "", "Window end (RFC 3339)")
	historyCmd.Flags().StringVar(&historyStep, "step", "", "Sampling step (default from config)")
}
