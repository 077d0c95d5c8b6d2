package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"spm/internal/model"
	"spm/internal/wizard"
)

func serveCmd(g *globalFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run treatments over HTTP and expose /metrics and /healthz",
		Long: `Serve accepts treatments as POST /treatments with a JSON body
{"request": {...}, "plan": {...}} and runs each through the wizard exactly
as treat does. The wizard, draft and submission counters of those runs are
exported on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()
			if addr == "" {
				addr = a.cfg.Metrics.Addr
			}
			srv := &http.Server{Addr: addr, Handler: a.mux()}
			errc := make(chan error, 1)
			go func() { errc <- srv.ListenAndServe() }()
			a.logger.Info("serving", slog.String("addr", addr))

			select {
			case err := <-errc:
				return err
			case <-cmd.Context().Done():
			}
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: metrics.addr)")
	return cmd
}

// mux serves treatments, the metrics registry and a health check that
// probes the draft store.
func (a *app) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	mux.HandleFunc("POST /treatments", a.handleTreat)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, _, err := a.store.Get(a.drafts.Key(0)); err != nil {
			http.Error(w, "drafts: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

type treatRequest struct {
	Request model.Request `json:"request"`
	Plan    Plan          `json:"plan"`
}

type treatResponse struct {
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
}

// handleTreat runs one treatment. A request already being treated is
// refused with 409 so two runs never interleave on the same draft.
func (a *app) handleTreat(w http.ResponseWriter, r *http.Request) {
	var in treatRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeTreatResponse(w, http.StatusBadRequest, treatResponse{Error: "decode body: " + err.Error()})
		return
	}
	if in.Request.ID <= 0 {
		writeTreatResponse(w, http.StatusBadRequest, treatResponse{Error: "request: missing id"})
		return
	}
	if err := in.Plan.validate(); err != nil {
		writeTreatResponse(w, http.StatusBadRequest, treatResponse{Error: err.Error()})
		return
	}
	if _, busy := a.inflight.LoadOrStore(in.Request.ID, struct{}{}); busy {
		writeTreatResponse(w, http.StatusConflict, treatResponse{Error: wizard.ErrBusy.Error()})
		return
	}
	defer a.inflight.Delete(in.Request.ID)

	var out bytes.Buffer
	err := runTreat(r.Context(), a, in.Request, in.Plan, &out)
	resp := treatResponse{Output: out.String()}
	status := http.StatusOK
	if err != nil {
		resp.Error = err.Error()
		status = http.StatusBadGateway
		if wizard.IsKind(err, wizard.KindValidation) {
			status = http.StatusUnprocessableEntity
		}
		a.logger.Warn("treatment failed", slog.Int64("request_id", in.Request.ID), slog.String("error", err.Error()))
	}
	writeTreatResponse(w, status, resp)
}

func writeTreatResponse(w http.ResponseWriter, status int, resp treatResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
