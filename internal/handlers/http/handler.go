package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"PimSync/internal/database/model/synclog"
	"PimSync/internal/sync"
	"PimSync/internal/sync/models"
	"PimSync/internal/version"
	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = 500
)

// Service операции синхронизации, доступные через админку
type Service interface {
	SyncCatalog(ctx context.Context, catalogID string, syncType models.SyncType, days int) models.SyncRun
	TestConnections(ctx context.Context) models.ConnectionReport
	LogEntries(ctx context.Context, companyID, limit int) ([]*synclog.Entry, error)
	ClearLogs(ctx context.Context, companyID int, action string) (int64, error)
	CleanupMappings(ctx context.Context, catalogID string) (categories, products int64, err error)
}

type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type Handler struct {
	// ctx живет вместе с сервером, запуск не прерывается при обрыве соединения клиента
	ctx     context.Context
	service Service
	token   string
	logger  logrus.FieldLogger
}

// NewHandler token проверяется на всех /pim_sync/*. С пустым token эти маршруты всегда отвечают 401.
func NewHandler(ctx context.Context, service Service, token string, logger logrus.FieldLogger) *Handler {
	return &Handler{ctx: ctx, service: service, token: token, logger: logger}
}

func (h *Handler) Register(router *httprouter.Router) {
	router.GET("/", h.HandlerVersion)
	router.POST("/pim_sync/test_connection", h.auth(h.HandlerTestConnection))
	router.POST("/pim_sync/sync_full", h.auth(h.HandlerSyncFull))
	router.POST("/pim_sync/sync_delta", h.auth(h.HandlerSyncDelta))
	router.GET("/pim_sync/logs", h.auth(h.HandlerLogs))
	router.POST("/pim_sync/clear_logs", h.auth(h.HandlerClearLogs))
	router.POST("/pim_sync/cleanup_mappings", h.auth(h.HandlerCleanupMappings))
}

// auth принимает "Authorization: Bearer <token>" или заголовок X-Auth-Token
func (h *Handler) auth(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !h.authorized(r) {
			h.logger.Warnf("unauthorized request %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
			w.Header().Set("WWW-Authenticate", "Bearer")
			h.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, ps)
	}
}

func (h *Handler) authorized(r *http.Request) bool {
	if h.token == "" {
		return false
	}
	got := r.Header.Get("X-Auth-Token")
	if v := r.Header.Get("Authorization"); strings.HasPrefix(v, "Bearer ") {
		got = strings.TrimPrefix(v, "Bearer ")
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) == 1
}

func (h *Handler) HandlerVersion(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.writeJSON(w, http.StatusOK, Response{Success: true, Data: map[string]string{"version": version.GetVersion().String()}})
}

func (h *Handler) HandlerTestConnection(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.logger.Info("Start HandlerTestConnection")
	defer h.logger.Info("End HandlerTestConnection")

	report := h.service.TestConnections(r.Context())
	status := http.StatusOK
	if !report.OK() {
		status = http.StatusBadGateway
	}
	h.writeJSON(w, status, Response{Success: report.OK(), Data: report})
}

func (h *Handler) HandlerSyncFull(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.logger.Info("Start HandlerSyncFull")
	defer h.logger.Info("End HandlerSyncFull")

	h.syncCatalog(w, r, models.SyncFull, 0)
}

func (h *Handler) HandlerSyncDelta(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.logger.Info("Start HandlerSyncDelta")
	defer h.logger.Info("End HandlerSyncDelta")

	days := 0
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < sync.MinDeltaDays || n > sync.MaxDeltaDays {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("days must be between %d and %d", sync.MinDeltaDays, sync.MaxDeltaDays))
			return
		}
		days = n
	}

	h.syncCatalog(w, r, models.SyncDelta, days)
}

func (h *Handler) syncCatalog(w http.ResponseWriter, r *http.Request, syncType models.SyncType, days int) {
	catalogID := r.URL.Query().Get("catalog_id")

	run := h.service.SyncCatalog(h.ctx, catalogID, syncType, days)

	status := http.StatusOK
	switch {
	case run.Status == models.StatusCompleted:
	case run.Error == sync.ErrAlreadyRunning.Error():
		status = http.StatusConflict
	default:
		status = http.StatusInternalServerError
	}
	h.writeJSON(w, status, Response{Success: run.Status == models.StatusCompleted, Message: run.Error, Data: run})
}

func (h *Handler) HandlerLogs(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	companyID, err := intParam(r, "company_id", 0)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := intParam(r, "limit", defaultLogLimit)
	if err != nil || limit <= 0 {
		h.writeError(w, http.StatusBadRequest, "limit must be a positive number")
		return
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}

	entries, err := h.service.LogEntries(r.Context(), companyID, limit)
	if err != nil {
		h.logger.Errorf("failed in LogEntries, error: %v", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []*synclog.Entry{}
	}
	h.writeJSON(w, http.StatusOK, Response{Success: true, Data: entries})
}

func (h *Handler) HandlerClearLogs(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.logger.Info("Start HandlerClearLogs")
	defer h.logger.Info("End HandlerClearLogs")

	companyID, err := intParam(r, "company_id", 0)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	action := r.URL.Query().Get("action")
	switch action {
	case sync.ClearAll, sync.ClearOld, sync.ClearFailed:
	default:
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown action %q", action))
		return
	}

	n, err := h.service.ClearLogs(r.Context(), companyID, action)
	if err != nil {
		h.logger.Errorf("failed in ClearLogs, error: %v", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, Response{Success: true, Data: map[string]int64{"deleted": n}})
}

func (h *Handler) HandlerCleanupMappings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.logger.Info("Start HandlerCleanupMappings")
	defer h.logger.Info("End HandlerCleanupMappings")

	categories, products, err := h.service.CleanupMappings(r.Context(), r.URL.Query().Get("catalog_id"))
	if err != nil {
		status := http.StatusInternalServerError
		if err == sync.ErrAlreadyRunning {
			status = http.StatusConflict
		}
		h.logger.Errorf("failed in CleanupMappings, error: %v", err)
		h.writeError(w, status, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, Response{Success: true, Data: map[string]int64{"categories": categories, "products": products}})
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, Response{Success: false, Message: message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		h.logger.Errorf("failed to send response, error: %v", err)
	}
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return n, nil
}
