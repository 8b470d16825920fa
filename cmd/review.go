package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/partybase-ng/directory-cli/internal/model"
	"github.com/partybase-ng/directory-cli/internal/review"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Work the duplicate and approval review queues",
}

var reviewMatchesCmd = &cobra.Command{
	Use:   "matches",
	Short: "List pending duplicate matches",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		matches, err := review.New(st).PendingMatches(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "review matches")
		}

		if len(matches) == 0 {
			fmt.Fprintln(os.Stderr, "No pending matches.")
			return nil
		}

		formatMatches(os.Stdout, matches)
		return nil
	},
}

var reviewApprovalsCmd = &cobra.Command{
	Use:   "approvals",
	Short: "List records awaiting approval",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		records, err := review.New(st).PendingApprovals(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "review approvals")
		}

		if len(records) == 0 {
			fmt.Fprintln(os.Stderr, "No pending approvals.")
			return nil
		}

		formatApprovals(os.Stdout, records)
		return nil
	},
}

var reviewApproveCmd = &cobra.Command{
	Use:   "approve <stable-id>",
	Short: "Approve a record",
	Args:  cobra.ExactArgs(1),
	RunE:  recordActionRunE("review approve", func(svc *review.Service) recordAction { return svc.Approve }),
}

var reviewRejectCmd = &cobra.Command{
	Use:   "reject <stable-id>",
	Short: "Reject a record without blacklisting it",
	Args:  cobra.ExactArgs(1),
	RunE:  recordActionRunE("review reject", func(svc *review.Service) recordAction { return svc.Reject }),
}

var reviewBlacklistCmd = &cobra.Command{
	Use:   "blacklist <stable-id>",
	Short: "Blacklist a record so refreshes never resurrect it",
	Args:  cobra.ExactArgs(1),
	RunE:  recordActionRunE("review blacklist", func(svc *review.Service) recordAction { return svc.Blacklist }),
}

var reviewDismissCmd = &cobra.Command{
	Use:   "dismiss <match-id>",
	Short: "Dismiss a duplicate match as a false positive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		matchID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return eris.Wrapf(err, "review dismiss: parse match id %q", args[0])
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := review.New(st).Dismiss(ctx, matchID); err != nil {
			return eris.Wrap(err, "review dismiss")
		}
		fmt.Printf("dismissed match %d\n", matchID)
		return nil
	},
}

var reviewMergeCmd = &cobra.Command{
	Use:   "merge <primary-stable-id> <secondary-stable-id>",
	Short: "Merge two records, keeping the first as primary",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		merged, err := review.New(st).Merge(ctx, args[0], args[1])
		if err != nil {
			return eris.Wrap(err, "review merge")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(merged)
	},
}

type recordAction func(ctx context.Context, stableID string) error

func recordActionRunE(op string, pick func(*review.Service) recordAction) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := pick(review.New(st))(ctx, args[0]); err != nil {
			return eris.Wrap(err, op)
		}
		fmt.Println(args[0])
		return nil
	}
}

func formatMatches(w io.Writer, matches []model.DuplicateMatch) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tRECORD A\tRECORD B\tSIMILARITY\tREASON")
	for i := range matches {
		m := &matches[i]
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%s\n",
			m.ID, m.StableIDA, m.StableIDB, m.Similarity, m.Reason)
	}
	tw.Flush()
}

func formatApprovals(w io.Writer, records []model.CanonicalRecord) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STABLE ID\tKIND\tNAME\tREGION\tCONFIDENCE")
	for i := range records {
		r := &records[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\n",
			r.StableID, r.Kind, r.Name, r.Region, r.Confidence)
	}
	tw.Flush()
}

func init() {
	reviewMatchesCmd.Flags().Int("limit", 50, "maximum matches to list")
	reviewApprovalsCmd.Flags().Int("limit", 50, "maximum records to list")

	reviewCmd.AddCommand(reviewMatchesCmd)
	reviewCmd.AddCommand(reviewApprovalsCmd)
	reviewCmd.AddCommand(reviewApproveCmd)
	reviewCmd.AddCommand(reviewRejectCmd)
	reviewCmd.AddCommand(reviewBlacklistCmd)
	reviewCmd.AddCommand(reviewDismissCmd)
	reviewCmd.AddCommand(reviewMergeCmd)
	rootCmd.AddCommand(reviewCmd)
}
