package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/volcanion-systems/volcanion-tracking/internal/models"
	"github.com/volcanion-systems/volcanion-tracking/internal/repository"
	"github.com/volcanion-systems/volcanion-tracking/internal/service"
	"github.com/volcanion-systems/volcanion-tracking/pkg/httputil"
	"github.com/volcanion-systems/volcanion-tracking/pkg/logging"
)

// List endpoints page their results; 50 per page unless the client
// asks for more, capped at 200.
const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type pagedList struct {
	Items      any                 `json:"items"`
	Pagination httputil.Pagination `json:"pagination"`
}

// PartnerHandler serves tenant, sub-system, and API key management.
type PartnerHandler struct {
	partners *service.PartnerService
	logger   *logging.Logger
}

func NewPartnerHandler(partners *service.PartnerService, logger *logging.Logger) *PartnerHandler {
	return &PartnerHandler{partners: partners, logger: logger}
}

func (h *PartnerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePartnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	partner, err := h.partners.CreatePartner(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusCreated, "partner created", partner)
}

func (h *PartnerHandler) Get(w http.ResponseWriter, r *http.Request) {
	partner, err := h.partners.GetPartner(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "", partner)
}

func (h *PartnerHandler) List(w http.ResponseWriter, r *http.Request) {
	partners, err := h.partners.ListPartners(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, meta := httputil.Paginate(partners, httputil.ParsePagination(r, defaultPageSize, maxPageSize))
	httputil.WriteSuccess(w, http.StatusOK, "", pagedList{Items: page, Pagination: meta})
}

func (h *PartnerHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.UpdatePartnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	partner, err := h.partners.UpdatePartner(r.Context(), r.PathValue("id"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "partner updated", partner)
}

func (h *PartnerHandler) CreateSubSystem(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSubSystemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	subSystem, err := h.partners.CreateSubSystem(r.Context(), r.PathValue("id"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusCreated, "sub-system created", subSystem)
}

func (h *PartnerHandler) ListSubSystems(w http.ResponseWriter, r *http.Request) {
	subSystems, err := h.partners.ListSubSystems(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, meta := httputil.Paginate(subSystems, httputil.ParsePagination(r, defaultPageSize, maxPageSize))
	httputil.WriteSuccess(w, http.StatusOK, "", pagedList{Items: page, Pagination: meta})
}

func (h *PartnerHandler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAPIKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	key, err := h.partners.CreateAPIKey(r.Context(), r.PathValue("id"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	// The plaintext key in this response is shown exactly once.
	httputil.WriteSuccess(w, http.StatusCreated, "api key created", key)
}

func (h *PartnerHandler) RevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	if err := h.partners.RevokeAPIKey(r.Context(), r.PathValue("keyId")); err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "api key revoked", nil)
}

func (h *PartnerHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repository.ErrPartnerNotFound),
		errors.Is(err, repository.ErrSubSystemNotFound),
		errors.Is(err, repository.ErrAPIKeyNotFound):
		httputil.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, repository.ErrPartnerExists),
		errors.Is(err, repository.ErrSubSystemExists):
		httputil.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidPartnerCode),
		errors.Is(err, service.ErrInvalidStatus):
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "partner operation failed", logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
