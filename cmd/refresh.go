package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/partybase-ng/directory-cli/internal/model"
)

var (
	refreshSources []string
	refreshRegion  string
	refreshFull    bool
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Enqueue a directory refresh run",
	Long:  "Enqueues a refresh job and returns immediately. A worker process picks the job up and executes the run.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		job := &model.RunJob{
			Trigger:     model.TriggerManual,
			Sources:     refreshSources,
			Region:      refreshRegion,
			Full:        refreshFull,
			MaxAttempts: cfg.Queue.MaxAttempts,
		}
		if len(refreshSources) > 0 {
			job.Trigger = model.TriggerRerun
		}

		if err := st.EnqueueJob(ctx, job); err != nil {
			return eris.Wrap(err, "enqueue refresh")
		}

		zap.L().Info("refresh enqueued",
			zap.String("job_id", job.ID),
			zap.Strings("sources", job.Sources),
			zap.String("region", job.Region),
			zap.Bool("full", job.Full),
		)
		fmt.Println(job.ID)
		return nil
	},
}

func init() {
	refreshCmd.Flags().StringSliceVar(&refreshSources, "sources", nil, "restrict the run to these source platforms (default all)")
	refreshCmd.Flags().StringVar(&refreshRegion, "region", "", "restrict the run to one region")
	refreshCmd.Flags().BoolVar(&refreshFull, "full", false, "process every listing instead of only ones observed since the last successful run")
	rootCmd.AddCommand(refreshCmd)
}
