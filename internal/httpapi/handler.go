// Package httpapi exposes klock's facade.Client over HTTP: one small
// net/http.ServeMux, JSON request/response bodies, bearer-token auth, and
// Prometheus instrumentation — no web framework.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/waythor-lab/klock/internal/facade"
	"github.com/waythor-lab/klock/internal/kernel"
	"github.com/waythor-lab/klock/internal/metrics"
	"github.com/waythor-lab/klock/internal/types"
)

const version = "0.1.0"

// NewHandler builds the full klock HTTP surface, unauthenticated — callers
// wrap it with auth/metrics/recovery/CORS middleware (see Service).
func NewHandler(client *facade.Client, log *logrus.Logger, m *metrics.Metrics) http.Handler {
	h := &handler{client: client, log: log, metrics: m}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /healthz", h.health)
	mux.HandleFunc("POST /agents", h.registerAgent)
	mux.HandleFunc("GET /agents", h.listAgents)
	mux.HandleFunc("POST /leases", h.acquireLease)
	mux.HandleFunc("GET /leases", h.listLeases)
	mux.HandleFunc("DELETE /leases/{id}", h.releaseLease)
	mux.HandleFunc("POST /leases/{id}/heartbeat", h.heartbeatLease)
	mux.HandleFunc("POST /intents", h.declareIntent)
	mux.HandleFunc("POST /evict", h.evictExpired)

	return mux
}

type handler struct {
	client  *facade.Client
	log     *logrus.Logger
	metrics *metrics.Metrics
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeOK(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"active_leases": len(h.client.ActiveLeases()),
		"version":       version,
	})
}

func (h *handler) registerAgent(w http.ResponseWriter, r *http.Request) {
	var req registerAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.client.RegisterAgent(req.AgentID, req.Priority)
	if h.log != nil {
		h.log.WithFields(logrus.Fields{"agent_id": req.AgentID, "priority": req.Priority}).Info("agent registered")
	}
	writeOK(w, http.StatusCreated, "agent '"+req.AgentID+"' registered")
}

func (h *handler) listAgents(w http.ResponseWriter, r *http.Request) {
	writeOK(w, http.StatusOK, h.client.ListAgentPriorities())
}

func (h *handler) acquireLease(w http.ResponseWriter, r *http.Request) {
	var req acquireLeaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resource := types.ResourceRef{
		ResourceType: types.ParseResourceType(req.ResourceType),
		Path:         req.ResourcePath,
	}
	predicate := types.ParsePredicate(req.Predicate)

	result := h.client.AcquireLease(req.AgentID, req.SessionID, resource, predicate, req.TTL)

	if result.Success {
		if h.metrics != nil {
			h.metrics.RecordAcquire("granted")
			h.metrics.SetActiveLeases(len(h.client.ActiveLeases()))
		}
		if h.log != nil {
			h.log.WithFields(logrus.Fields{"agent_id": req.AgentID, "lease_id": result.Lease.ID, "resource": resource.Key()}).Info("lease acquired")
		}
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"lease_id":   result.Lease.ID,
				"agent_id":   result.Lease.AgentID,
				"resource":   resource.Key(),
				"predicate":  predicate.String(),
				"expires_at": result.Lease.ExpiresAt,
			},
		})
		return
	}

	if h.metrics != nil {
		h.metrics.RecordAcquire("denied")
	}
	if h.log != nil {
		h.log.WithFields(logrus.Fields{"agent_id": req.AgentID, "reason": result.Reason.String()}).Info("lease denied")
	}
	writeJSON(w, http.StatusConflict, map[string]interface{}{
		"success":   false,
		"reason":    result.Reason.String(),
		"wait_time": result.WaitTimeMS,
	})
}

func (h *handler) releaseLease(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if h.client.ReleaseLease(id) {
		if h.log != nil {
			h.log.WithField("lease_id", id).Info("lease released")
		}
		if h.metrics != nil {
			h.metrics.SetActiveLeases(len(h.client.ActiveLeases()))
		}
		writeOK(w, http.StatusOK, "lease '"+id+"' released")
		return
	}
	writeError(w, http.StatusNotFound, "lease '"+id+"' not found")
}

func (h *handler) heartbeatLease(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	now := uint64(time.Now().UnixMilli())
	if h.client.HeartbeatLease(id, now) {
		writeOK(w, http.StatusOK, map[string]interface{}{"renewed": true, "lease_id": id})
		return
	}
	writeError(w, http.StatusNotFound, "lease '"+id+"' not found or expired")
}

func (h *handler) listLeases(w http.ResponseWriter, r *http.Request) {
	leases := h.client.ActiveLeases()
	out := make([]map[string]interface{}, 0, len(leases))
	for _, l := range leases {
		out = append(out, map[string]interface{}{
			"id":         l.ID,
			"agent_id":   l.AgentID,
			"resource":   l.Resource.Key(),
			"predicate":  l.Predicate.String(),
			"expires_at": l.ExpiresAt,
		})
	}
	writeOK(w, http.StatusOK, out)
}

func (h *handler) declareIntent(w http.ResponseWriter, r *http.Request) {
	var req declareIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := uint64(time.Now().UnixMilli())
	intents := make([]types.SPOTriple, 0, len(req.Intents))
	for _, item := range req.Intents {
		intents = append(intents, types.SPOTriple{
			ID:        h.client.NextID(),
			Subject:   req.AgentID,
			Predicate: types.ParsePredicate(item.Predicate),
			Object: types.ResourceRef{
				ResourceType: types.ParseResourceType(item.ResourceType),
				Path:         item.ResourcePath,
			},
			Timestamp:  now,
			Confidence: types.ParseConfidence(item.Confidence),
			SessionID:  req.SessionID,
		})
	}

	manifest := kernel.IntentManifest{SessionID: req.SessionID, AgentID: req.AgentID, Intents: intents}
	verdict := h.client.DeclareIntent(manifest)

	if h.metrics != nil {
		h.metrics.RecordVerdict(verdict.Status.String())
	}

	writeJSON(w, http.StatusOK, verdictResponse(verdict))
}

func verdictResponse(v kernel.Verdict) map[string]interface{} {
	resp := map[string]interface{}{
		"agent_id":   v.AgentID,
		"session_id": v.SessionID,
		"status":     v.Status.String(),
		"reason":     v.Reason,
		"held_by":    v.HeldBy,
		"conflicts":  v.Conflicts,
	}
	if v.RetryAfterMS != nil {
		resp["retry_after_ms"] = *v.RetryAfterMS
	}
	return resp
}

func (h *handler) evictExpired(w http.ResponseWriter, r *http.Request) {
	count := h.client.EvictExpired()
	if h.metrics != nil {
		h.metrics.RecordEviction(count)
		h.metrics.SetActiveLeases(len(h.client.ActiveLeases()))
	}
	if h.log != nil && count > 0 {
		h.log.WithField("evicted", count).Info("expired leases evicted")
	}
	writeOK(w, http.StatusOK, map[string]interface{}{"evicted": count})
}
