package cli

import (
	"context"
	"fmt"

	"github.com/lazypower/warmth/internal/engine"
	"github.com/lazypower/warmth/internal/eventlog"
	"github.com/lazypower/warmth/internal/warmth"
	"github.com/m-mizutani/goerr/v2"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <events.jsonl>",
	Short: "Apply a JSONL backlog of hook events to the local database",
	Long: "Each line is a hook event with an extra \"event\" field naming it " +
		"(interaction, mode, contact). Events are applied in file order at the current time.",
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	entries, skipped, err := eventlog.ParseFile(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, s := range skipped {
		fmt.Fprintf(out, "line %d: skipped: %s\n", s.Line, s.Reason)
	}

	return withEngine(func(ctx context.Context, eng *engine.Engine) error {
		applied, failed := 0, 0
		for _, e := range entries {
			if err := applyEvent(ctx, eng, e); err != nil {
				fmt.Fprintf(out, "line %d: %s %s: %v\n", e.Line, e.Name, e.Payload.ContactID, err)
				failed++
				continue
			}
			applied++
		}
		fmt.Fprintf(out, "applied %d, failed %d, skipped %d\n", applied, failed, len(skipped))
		return nil
	})
}

func applyEvent(ctx context.Context, eng *engine.Engine, e eventlog.Entry) error {
	p := e.Payload
	switch e.Name {
	case "interaction":
		interaction, err := warmth.ParseInteraction(p.Kind, p.Points)
		if err != nil {
			return err
		}
		_, err = eng.Absorb(ctx, p.ContactID, interaction)
		return err
	case "mode":
		_, err := eng.SwitchMode(ctx, p.ContactID, p.Mode)
		return err
	case "contact":
		_, err := eng.Provision(ctx, engine.ProvisionRequest{
			ID:           p.ContactID,
			DisplayName:  p.DisplayName,
			Mode:         p.Mode,
			InitialScore: p.InitialScore,
		})
		return err
	}
	return goerr.New("unknown event", goerr.V("event", e.Name))
}
