package patient

import (
	"github.com/gin-gonic/gin"

	"github.com/aproko/clinic-api/internal/middleware"
	"github.com/aproko/clinic-api/internal/model"
	"github.com/aproko/clinic-api/internal/service/patient"
	apperrors "github.com/aproko/clinic-api/pkg/errors"
	"github.com/aproko/clinic-api/pkg/httputil"
)

type Handler struct {
	service *patient.Service
}

func NewHandler(service *patient.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the self-service profile routes. The group is
// expected to already carry Authenticate plus the patient role gate.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	routes := rg.Group("/patients")
	{
		routes.GET("/me", h.GetProfile)
		routes.PUT("/me", h.UpdateProfile)
		routes.DELETE("/me", h.DeleteAccount)
	}
}

func (h *Handler) GetProfile(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized("not authenticated", nil))
		return
	}

	profile, err := h.service.GetProfile(c.Request.Context(), userID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, profile)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized("not authenticated", nil))
		return
	}

	var req model.UpdatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput(err.Error(), err))
		return
	}

	profile, err := h.service.UpdateProfile(c.Request.Context(), userID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, profile)
}

func (h *Handler) DeleteAccount(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized("not authenticated", nil))
		return
	}

	if err := h.service.DeleteAccount(c.Request.Context(), userID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"deleted": true})
}
