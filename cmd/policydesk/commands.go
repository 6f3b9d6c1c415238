package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/policydesk/policydesk/internal/eval"
	"github.com/policydesk/policydesk/internal/observability"
	"github.com/policydesk/policydesk/internal/responder"
	"github.com/policydesk/policydesk/pkg/models"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	labelColor   = color.New(color.Bold)
	dimColor     = color.New(color.Faint)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
)

func buildQueryCmd(configPath *string) *cobra.Command {
	var (
		sessionID string
		userID    string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "query [question]",
		Short: "Ask a policy question",
		Long: `Query routes the question to the matching responders, runs them
concurrently, and prints the merged answer with its confidence
assessment and supporting sources.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			if sessionID == "" {
				sessionID = uuid.NewString()
			}

			resp := a.orchestrator.ProcessQuery(ctx, args[0], userID, sessionID)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			printResponse(cmd, resp, sessionID)
			if !resp.Success {
				return fmt.Errorf("query failed: %s", resp.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session ID for conversation logging (default: a new UUID)")
	cmd.Flags().StringVarP(&userID, "user", "u", "", "User ID attached to the session log")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the full response as JSON")
	return cmd
}

func printResponse(cmd *cobra.Command, resp models.QueryResponse, sessionID string) {
	out := cmd.OutOrStdout()

	headerColor.Fprintln(out, "Answer")
	fmt.Fprintln(out, resp.Answer)
	fmt.Fprintln(out)

	labelColor.Fprint(out, "Responder:  ")
	fmt.Fprintln(out, resp.PrimaryResponder)

	labelColor.Fprint(out, "Confidence: ")
	levelColor(resp.Evaluation.Level).Fprint(out, string(resp.Evaluation.Level))
	if resp.Evaluation.Confidence != nil {
		fmt.Fprintf(out, " (%.2f, %s)", *resp.Evaluation.Confidence, resp.Evaluation.Method)
	}
	fmt.Fprintln(out)
	dimColor.Fprintln(out, resp.Evaluation.Explanation())

	if len(resp.Sources) > 0 {
		labelColor.Fprintln(out, "Sources:")
		for i, src := range resp.Sources {
			name := src.Metadata["source"]
			if name == "" {
				name = src.ID
			}
			fmt.Fprintf(out, "  %d. %s", i+1, name)
			if page := src.Metadata["page"]; page != "" {
				fmt.Fprintf(out, " (page %s)", page)
			}
			fmt.Fprintln(out)
		}
	}

	dimColor.Fprintf(out, "session=%s  took=%s\n", sessionID, resp.ProcessingTime.Round(time.Millisecond))
}

func levelColor(level models.ConfidenceLevel) *color.Color {
	switch level {
	case models.ConfidenceHigh:
		return successColor
	case models.ConfidenceMedium:
		return warnColor
	case models.ConfidenceLow, models.ConfidenceVeryLow:
		return errorColor
	case models.ConfidenceError:
		return errorColor
	default:
		return dimColor
	}
}

func buildRespondersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "responders",
		Short: "List the available responders",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Listing needs no backends; the registry metadata is static.
			reg, err := responder.DefaultRegistry(responder.Deps{
				Logger: observability.NewNopLogger(),
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, info := range reg.List() {
				headerColor.Fprintln(out, info.ID)
				labelColor.Fprint(out, "  Name: ")
				fmt.Fprintln(out, info.Name)
				fmt.Fprintf(out, "  %s\n\n", info.Description)
			}
			return nil
		},
	}
}

func buildEvaluateCmd(configPath *string) *cobra.Command {
	var (
		sessionID string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Re-score the answers recorded in a session",
		Long: `Evaluate loads a session's conversation log, pairs each question
with its recorded answer, and scores every pair with the configured
evaluation strategy.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			history, err := a.store.History(ctx, sessionID, limit)
			if err != nil {
				return err
			}
			items := batchItems(history)
			if len(items) == 0 {
				return errors.New("session has no question/answer pairs to evaluate")
			}

			results, summary := eval.BatchEvaluate(ctx, a.evaluator, items)
			printBatch(cmd, items, results, summary)
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session ID to evaluate")
	cmd.Flags().IntVar(&limit, "limit", 0, "Only consider the newest N messages (0 = all)")
	cmd.MarkFlagRequired("session")
	return cmd
}

// batchItems pairs each user message with the assistant message that
// follows it. Routing confidence is not recorded in the log, so the
// heuristic's routing component scores zero on replayed history.
func batchItems(history []models.Message) []eval.BatchItem {
	var items []eval.BatchItem
	for i := 0; i+1 < len(history); i++ {
		if history[i].Role != models.RoleUser || history[i+1].Role != models.RoleAssistant {
			continue
		}
		assistant := history[i+1]
		items = append(items, eval.BatchItem{
			Responder: metaString(assistant.Metadata, "primary_responder"),
			Request: eval.Request{
				Question:    history[i].Content,
				Answer:      assistant.Content,
				SourceCount: metaInt(assistant.Metadata, "sources_count"),
			},
		})
	}
	return items
}

func metaString(meta map[string]any, key string) string {
	s, _ := meta[key].(string)
	return s
}

// metaInt reads a numeric metadata value. The sqlite backend round-trips
// numbers through JSON, so they come back as float64.
func metaInt(meta map[string]any, key string) int {
	switch v := meta[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func printBatch(cmd *cobra.Command, items []eval.BatchItem, results []eval.BatchResult, summary eval.BatchSummary) {
	out := cmd.OutOrStdout()

	for i, r := range results {
		question := items[i].Request.Question
		if len(question) > 60 {
			question = question[:57] + "..."
		}
		fmt.Fprintf(out, "%2d. ", i+1)
		levelColor(r.Outcome.Level).Fprint(out, string(r.Outcome.Level))
		if r.Outcome.Confidence != nil {
			fmt.Fprintf(out, " %.2f", *r.Outcome.Confidence)
		}
		fmt.Fprintf(out, "  %s", question)
		if r.Responder != "" {
			dimColor.Fprintf(out, "  [%s]", r.Responder)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out)
	labelColor.Fprintf(out, "Evaluated %d answers in %s\n", summary.Size, summary.Duration.Round(time.Millisecond))
	if summary.AverageConfidence != nil {
		labelColor.Fprint(out, "Average confidence: ")
		fmt.Fprintf(out, "%.2f\n", *summary.AverageConfidence)
	}
	for level, n := range summary.LevelCounts {
		fmt.Fprintf(out, "  %-9s %d\n", level, n)
	}
}

func buildServeMetricsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve-metrics",
		Short: "Serve Prometheus metrics over HTTP",
		Long: `Serve-metrics starts the full pipeline wiring so that all collectors
are registered, then exposes them on the configured metrics address
until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				fmt.Fprintln(w, "ok")
			})

			srv := &http.Server{
				Addr:              a.cfg.Metrics.Addr,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info(ctx, "metrics server listening", "addr", srv.Addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
