// Package main provides the tenet CLI, a thin client for the
// tenet-gateway HTTP API.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var exitFn = os.Exit

func main() {
	cmd := newRootCmd(os.Stdout, os.Getenv)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		exitFn(1)
	}
}

type cliOptions struct {
	addr  string
	token string
	out   io.Writer
}

func newRootCmd(out io.Writer, getenv func(string) string) *cobra.Command {
	opts := &cliOptions{out: out}

	defaultAddr := getenv("TENET_ADDR")
	if defaultAddr == "" {
		defaultAddr = "http://localhost:8080"
	}

	root := &cobra.Command{
		Use:           "tenet",
		Short:         "Client for the tenet decision lifecycle gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.addr, "addr", defaultAddr, "gateway base URL")
	root.PersistentFlags().StringVar(&opts.token, "token", getenv("TENET_TOKEN"), "bearer token")

	root.AddCommand(newDecisionsCmd(opts))
	root.AddCommand(newEvaluateCmd(opts))
	root.AddCommand(newBatchEvaluateCmd(opts))
	root.AddCommand(newConflictsCmd(opts))
	root.AddCommand(newChangesCmd(opts))
	return root
}

func newDecisionsCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decisions",
		Short: "Inspect and manage decisions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all decisions",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return opts.call(http.MethodGet, "/v1/decisions", nil)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show one decision with its derived state",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return opts.call(http.MethodGet, "/v1/decisions/"+args[0], nil)
		},
	})

	var (
		title       string
		description string
		health      int
		tier        string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a decision",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			body := map[string]any{
				"title":           title,
				"description":     description,
				"governance_tier": tier,
			}
			if c.Flags().Changed("health") {
				body["health_signal"] = health
			}
			return opts.call(http.MethodPost, "/v1/decisions", body)
		},
	}
	create.Flags().StringVar(&title, "title", "", "decision title")
	create.Flags().StringVar(&description, "description", "", "decision description")
	create.Flags().IntVar(&health, "health", 100, "initial health signal")
	create.Flags().StringVar(&tier, "tier", "standard", "governance tier")
	cmd.AddCommand(create)

	var (
		outcome        string
		whatHappened   string
		whyOutcome     string
		failureReasons []string
	)
	retire := &cobra.Command{
		Use:   "retire <id>",
		Short: "Retire a decision permanently",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			conclusions := map[string]any{
				"what_happened": whatHappened,
				"why_outcome":   whyOutcome,
			}
			if len(failureReasons) > 0 {
				conclusions["failure_reasons"] = failureReasons
			}
			body := map[string]any{
				"outcome":     outcome,
				"conclusions": conclusions,
			}
			return opts.call(http.MethodPost, "/v1/decisions/"+args[0]+"/retire", body)
		},
	}
	retire.Flags().StringVar(&outcome, "outcome", "", "retirement outcome (succeeded, failed, partially_succeeded, superseded, no_longer_relevant)")
	retire.Flags().StringVar(&whatHappened, "what-happened", "", "what happened")
	retire.Flags().StringVar(&whyOutcome, "why-outcome", "", "why the outcome landed where it did")
	retire.Flags().StringSliceVar(&failureReasons, "failure-reason", nil, "failure reason (repeatable, required for failed outcomes)")
	cmd.AddCommand(retire)

	var (
		comment       string
		reviewType    string
		reviewOutcome string
	)
	review := &cobra.Command{
		Use:   "review <id>",
		Short: "Record a review for a decision",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			body := map[string]any{
				"comment":        comment,
				"review_type":    reviewType,
				"review_outcome": reviewOutcome,
			}
			return opts.call(http.MethodPost, "/v1/decisions/"+args[0]+"/review", body)
		},
	}
	review.Flags().StringVar(&comment, "comment", "", "review comment")
	review.Flags().StringVar(&reviewType, "type", "scheduled", "review type")
	review.Flags().StringVar(&reviewOutcome, "outcome", "", "review outcome")
	cmd.AddCommand(review)

	return cmd
}

func newEvaluateCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate <id>",
		Short: "Evaluate one decision now",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return opts.call(http.MethodPost, "/v1/decisions/"+args[0]+"/evaluate", nil)
		},
	}
}

func newBatchEvaluateCmd(opts *cliOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "batch-evaluate",
		Short: "Evaluate every decision that needs it",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			body := map[string]any{"force": force}
			return opts.call(http.MethodPost, "/v1/decisions/batch-evaluate", body)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "evaluate even fresh decisions")
	return cmd
}

func newConflictsCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "Detect and resolve conflicts",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List assumption conflicts",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return opts.call(http.MethodGet, "/v1/assumption-conflicts", nil)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "detect",
		Short: "Run assumption conflict detection",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return opts.call(http.MethodPost, "/v1/assumption-conflicts/detect", nil)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "detect-decisions",
		Short: "Run decision conflict detection",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return opts.call(http.MethodPost, "/v1/decision-conflicts/detect", nil)
		},
	})

	var action, notes string
	resolve := &cobra.Command{
		Use:   "resolve <id>",
		Short: "Resolve a conflict",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			body := map[string]any{"action": action, "notes": notes}
			return opts.call(http.MethodPost, "/v1/decision-conflicts/"+args[0]+"/resolve", body)
		},
	}
	resolve.Flags().StringVar(&action, "action", "", "resolution action")
	resolve.Flags().StringVar(&notes, "notes", "", "resolution notes")
	cmd.AddCommand(resolve)

	cmd.AddCommand(&cobra.Command{
		Use:   "dismiss <id>",
		Short: "Dismiss a conflict as a false positive",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return opts.call(http.MethodDelete, "/v1/decision-conflicts/"+args[0], nil)
		},
	})

	return cmd
}

func newChangesCmd(opts *cliOptions) *cobra.Command {
	var after int
	cmd := &cobra.Command{
		Use:   "changes",
		Short: "Read the change feed",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return opts.call(http.MethodGet, fmt.Sprintf("/v1/changes?after=%d", after), nil)
		},
	}
	cmd.Flags().IntVar(&after, "after", 0, "return changes with a sequence greater than this")
	return cmd
}

func (o *cliOptions) call(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, o.addr+path, reader)
	if err != nil {
		return err
	}
	if o.token != "" {
		req.Header.Set("Authorization", "Bearer "+o.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		fmt.Fprintf(o.out, "ok (%d)\n", resp.StatusCode)
		return nil
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		pretty.Write(raw)
	}
	fmt.Fprintln(o.out, pretty.String())
	return nil
}
