package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/edvin/drfailover/internal/api/response"
	"github.com/edvin/drfailover/internal/config"
	"github.com/edvin/drfailover/internal/failover"
	"github.com/edvin/drfailover/internal/model"
	"github.com/edvin/drfailover/internal/workflow"
)

const maxEventBytes = 1 << 20

type Failover struct {
	tc     temporalclient.Client
	cfg    *config.Config
	logger zerolog.Logger
}

func NewFailover(tc temporalclient.Client, cfg *config.Config, logger zerolog.Logger) *Failover {
	return &Failover{
		tc:     tc,
		cfg:    cfg,
		logger: logger.With().Str("component", "failover-api").Logger(),
	}
}

// Trigger starts a DR failover run. The request body is the triggering event:
// a CloudEvent in structured or binary mode, or any other payload. It is
// logged and carried with the run but never interpreted. By default the
// handler waits for the run and responds with the run's status code; with
// ?async=true it responds 202 with the workflow ID.
func (h *Failover) Trigger(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(r)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBytes))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, "read event: "+err.Error())
		return
	}
	event := describeEvent(r, body)
	logger.Info().Str("event", event).Msg("received DR failover event")

	req, err := h.cfg.FailoverRequest(event)
	if err != nil {
		logger.Error().Err(err).Msg("invalid failover configuration")
		response.WriteResult(w, failover.ErrorResult(err))
		return
	}

	workflowID := "dr-failover-" + uuid.NewString()
	run, err := h.tc.ExecuteWorkflow(r.Context(), temporalclient.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: h.cfg.TemporalTaskQueue,
	}, "DRFailoverWorkflow", workflow.DRFailoverParams{
		Request:           req,
		WebhookURL:        h.cfg.WebhookURL,
		WebhookTemplate:   h.cfg.WebhookTemplate,
		ReportBucket:      h.cfg.ReportBucket,
		DBWaitInterval:    h.cfg.DBWaitInterval,
		DBWaitMaxAttempts: h.cfg.DBWaitMaxAttempts,
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to start DRFailoverWorkflow")
		response.WriteResult(w, failover.ErrorResult(fmt.Errorf("start DRFailoverWorkflow: %w", err)))
		return
	}
	logger.Info().Str("workflow_id", run.GetID()).Str("run_id", run.GetRunID()).Msg("started DR failover workflow")

	if r.URL.Query().Get("async") == "true" {
		response.WriteJSON(w, http.StatusAccepted, map[string]string{
			"workflow_id": run.GetID(),
			"run_id":      run.GetRunID(),
		})
		return
	}

	var result model.Result
	if err := run.Get(r.Context(), &result); err != nil {
		logger.Error().Err(err).Str("workflow_id", run.GetID()).Msg("DR failover workflow failed")
		response.WriteResult(w, failover.ErrorResult(err))
		return
	}
	response.WriteResult(w, result)
}

// Get waits for the given failover run to finish and returns its result.
func (h *Failover) Get(w http.ResponseWriter, r *http.Request) {
	workflowID := chi.URLParam(r, "workflowID")
	if workflowID == "" {
		response.WriteError(w, http.StatusBadRequest, "missing workflow ID")
		return
	}

	var result model.Result
	if err := h.tc.GetWorkflow(r.Context(), workflowID, "").Get(r.Context(), &result); err != nil {
		if isWorkflowNotFound(err) {
			response.WriteError(w, http.StatusNotFound, "workflow not found for ID: "+workflowID)
			return
		}
		response.WriteResult(w, failover.ErrorResult(err))
		return
	}
	response.WriteResult(w, result)
}

func (h *Failover) requestLogger(r *http.Request) zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l.With().Str("component", "failover-api").Logger()
	}
	return h.logger
}

// describeEvent renders the trigger event for logging. CloudEvents are
// re-encoded in structured JSON form; anything else is passed through.
func describeEvent(r *http.Request, body []byte) string {
	clone := r.Clone(r.Context())
	clone.Body = io.NopCloser(bytes.NewReader(body))
	if ev, err := cloudevents.NewEventFromHTTPRequest(clone); err == nil {
		if b, err := json.Marshal(ev); err == nil {
			return string(b)
		}
	}
	return string(body)
}

func isWorkflowNotFound(err error) bool {
	return strings.Contains(err.Error(), "not found")
}
