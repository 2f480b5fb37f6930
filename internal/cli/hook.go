package cli

import (
	"context"
	"os"
	"time"

	"github.com/lazypower/warmth/internal/hooks"
	"github.com/spf13/cobra"
)

const hookTimeout = 20 * time.Second

var hookServerURL string

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Forward interaction logger events to a running server",
	Long: "Hook subcommands read one JSON event from stdin and forward it to the warmth server. " +
		"Failures are reported on stderr and never fail the caller.",
}

// hookRun returns a Run that forwards one event and always exits 0.
func hookRun(event string) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), hookTimeout)
		defer cancel()
		client := hooks.NewClient(hookServerURL)
		if err := hooks.Handle(ctx, client, event, os.Stdin, os.Stdout); err != nil {
			hooks.WriteError(os.Stderr, err)
		}
	}
}

var hookInteractionCmd = &cobra.Command{
	Use:   "interaction",
	Short: `Record an interaction: {"contact_id","kind","points"}`,
	Run:   hookRun("interaction"),
}

var hookModeCmd = &cobra.Command{
	Use:   "mode",
	Short: `Switch decay mode: {"contact_id","mode"}`,
	Run:   hookRun("mode"),
}

var hookContactCmd = &cobra.Command{
	Use:   "contact",
	Short: `Provision a contact: {"contact_id","display_name","mode","initial_score"}`,
	Run:   hookRun("contact"),
}

func init() {
	hookCmd.PersistentFlags().StringVar(&hookServerURL, "url", "", "Server URL (default $WARMTH_URL or http://127.0.0.1:37780)")
	hookCmd.AddCommand(hookInteractionCmd, hookModeCmd, hookContactCmd)
}
