package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/partybase-ng/directory-cli/internal/model"
	"github.com/partybase-ng/directory-cli/internal/review"
	"github.com/partybase-ng/directory-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the trigger and review HTTP API",
	Long:  "Serves refresh triggering, run inspection, and the duplicate/approval review queue. Triggers only enqueue jobs; a worker process executes them.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(st),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newRouter(st store.Store) http.Handler {
	rev := review.New(st)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/refresh", handleRefresh(st))
		r.Get("/jobs/{id}", handleGetJob(st))
		r.Get("/runs", handleListRuns(st))
		r.Get("/runs/{id}", handleGetRun(st))
		r.Get("/records", handleListRecords(st))

		r.Route("/review", func(r chi.Router) {
			r.Get("/matches", handleListMatches(rev))
			r.Get("/approvals", handleListApprovals(rev))
			r.Post("/records/{id}/approve", handleRecordAction(rev.Approve))
			r.Post("/records/{id}/reject", handleRecordAction(rev.Reject))
			r.Post("/records/{id}/blacklist", handleRecordAction(rev.Blacklist))
			r.Post("/matches/{id}/dismiss", handleDismiss(rev))
			r.Post("/merge", handleMerge(rev))
		})
	})

	return r
}

// handleRefresh enqueues a refresh job and returns its ID immediately. The
// run itself happens in a worker process.
func handleRefresh(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Sources []string `json:"sources"`
			Region  string   `json:"region"`
			Full    bool     `json:"full"`
		}
		if req.Body != nil && req.ContentLength != 0 {
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
		}

		job := &model.RunJob{
			Trigger:     model.TriggerManual,
			Sources:     body.Sources,
			Region:      body.Region,
			Full:        body.Full,
			MaxAttempts: cfg.Queue.MaxAttempts,
		}
		if len(body.Sources) > 0 {
			job.Trigger = model.TriggerRerun
		}

		if err := st.EnqueueJob(req.Context(), job); err != nil {
			zap.L().Error("api: enqueue refresh", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "enqueue failed")
			return
		}

		writeJSON(w, http.StatusAccepted, map[string]string{
			"job_id": job.ID,
			"status": string(job.Status),
		})
	}
}

func handleGetJob(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		job, err := st.GetJob(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeJSON(w, http.StatusOK, job)
	}
}

func handleListRuns(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		limit := queryInt(req, "limit", 20)
		runs, err := st.ListRuns(req.Context(), limit)
		if err != nil {
			zap.L().Error("api: list runs", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "list runs failed")
			return
		}
		writeJSON(w, http.StatusOK, runs)
	}
}

func handleGetRun(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		run, err := st.GetRun(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		writeJSON(w, http.StatusOK, run)
	}
}

func handleListRecords(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		filter := store.RecordFilter{
			Kind:           model.RecordKind(q.Get("kind")),
			Region:         q.Get("region"),
			ApprovalStatus: model.ApprovalStatus(q.Get("approval")),
			Limit:          queryInt(req, "limit", 100),
			Offset:         queryInt(req, "offset", 0),
		}
		if v := q.Get("min_confidence"); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid min_confidence")
				return
			}
			filter.MinConfidence = f
		}

		records, err := st.ListRecords(req.Context(), filter)
		if err != nil {
			zap.L().Error("api: list records", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "list records failed")
			return
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func handleListMatches(rev *review.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		matches, err := rev.PendingMatches(req.Context(), queryInt(req, "limit", 50))
		if err != nil {
			zap.L().Error("api: pending matches", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "list matches failed")
			return
		}
		writeJSON(w, http.StatusOK, matches)
	}
}

func handleListApprovals(rev *review.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		records, err := rev.PendingApprovals(req.Context(), queryInt(req, "limit", 50))
		if err != nil {
			zap.L().Error("api: pending approvals", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "list approvals failed")
			return
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func handleRecordAction(action func(ctx context.Context, stableID string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "id")
		if err := action(req.Context(), id); err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"stable_id": id})
	}
}

func handleDismiss(rev *review.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		matchID, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid match id")
			return
		}
		if err := rev.Dismiss(req.Context(), matchID); err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"match_id": matchID})
	}
}

func handleMerge(rev *review.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Primary   string `json:"primary"`
			Secondary string `json:"secondary"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		merged, err := rev.Merge(req.Context(), body.Primary, body.Secondary)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, merged)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryInt(req *http.Request, key string, def int) int {
	v := req.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
