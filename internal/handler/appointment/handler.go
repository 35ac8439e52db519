package appointment

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aproko/clinic-api/internal/middleware"
	"github.com/aproko/clinic-api/internal/model"
	"github.com/aproko/clinic-api/internal/service/appointment"
	apperrors "github.com/aproko/clinic-api/pkg/errors"
	"github.com/aproko/clinic-api/pkg/httputil"
)

type Handler struct {
	service *appointment.Service
}

func NewHandler(service *appointment.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the patient booking endpoints. The group is expected
// to already carry Authenticate plus the patient role gate.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	routes := rg.Group("/appointments")
	{
		routes.POST("", h.Create)
		routes.GET("", h.ListMine)
		routes.DELETE("/:id", h.Cancel)
	}
}

func (h *Handler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized("not authenticated", nil))
		return
	}

	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput(err.Error(), err))
		return
	}

	booked, err := h.service.CreateAppointment(c.Request.Context(), userID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, booked)
}

func (h *Handler) ListMine(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized("not authenticated", nil))
		return
	}

	appointments, err := h.service.ListForPatient(c.Request.Context(), userID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, appointments)
}

func (h *Handler) Cancel(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized("not authenticated", nil))
		return
	}

	appointmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput("invalid appointment ID", err))
		return
	}

	if err := h.service.CancelAppointment(c.Request.Context(), userID, appointmentID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"cancelled": true})
}
