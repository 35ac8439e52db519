package doctor

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aproko/clinic-api/internal/middleware"
	"github.com/aproko/clinic-api/internal/model"
	appointmentsvc "github.com/aproko/clinic-api/internal/service/appointment"
	doctorsvc "github.com/aproko/clinic-api/internal/service/doctor"
	apperrors "github.com/aproko/clinic-api/pkg/errors"
	"github.com/aproko/clinic-api/pkg/httputil"
)

// Handler serves the public doctor directory and the doctor's own portal.
type Handler struct {
	doctors      *doctorsvc.Service
	appointments *appointmentsvc.Service
}

func NewHandler(doctors *doctorsvc.Service, appointments *appointmentsvc.Service) *Handler {
	return &Handler{doctors: doctors, appointments: appointments}
}

// RegisterPublicRoutes mounts the unauthenticated directory endpoints.
// Directory reads go on the cached group; availability must reflect every
// booking and cancellation immediately, so it stays uncached.
func (h *Handler) RegisterPublicRoutes(rg, cached *gin.RouterGroup) {
	cached.GET("/doctors", h.ListDirectory)
	cached.GET("/doctors/:id", h.GetDoctor)
	rg.GET("/doctors/:id/availability", h.GetAvailability)
}

// RegisterPortalRoutes mounts the doctor's own endpoints. The group is
// expected to already carry Authenticate plus the doctor role gate.
func (h *Handler) RegisterPortalRoutes(rg *gin.RouterGroup) {
	routes := rg.Group("/doctor")
	{
		routes.GET("/profile", h.GetOwnProfile)
		routes.PUT("/profile", h.UpdateOwnProfile)
		routes.GET("/appointments", h.ListOwnAppointments)
		routes.GET("/schedules", h.ListOwnSchedules)
		routes.POST("/schedules", h.CreateSchedule)
		routes.PUT("/schedules/:id", h.UpdateSchedule)
		routes.DELETE("/schedules/:id", h.DeleteSchedule)
	}
}

func (h *Handler) ListDirectory(c *gin.Context) {
	doctors, err := h.doctors.ListDirectory(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, doctors)
}

func (h *Handler) GetDoctor(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput("invalid doctor ID", err))
		return
	}

	doctor, err := h.doctors.GetPublic(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, doctor)
}

// GetAvailability returns the open 30-minute slots for ?date=YYYY-MM-DD.
func (h *Handler) GetAvailability(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput("invalid doctor ID", err))
		return
	}

	date, err := appointmentsvc.ParseDate(c.Query("date"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	// Directory consistency: a hidden doctor has no availability either.
	if _, err := h.doctors.GetPublic(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	slots, err := h.appointments.GetAvailability(c.Request.Context(), id, date)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{
		"doctor_id": id,
		"date":      c.Query("date"),
		"slots":     slots,
	})
}

func (h *Handler) GetOwnProfile(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized("not authenticated", nil))
		return
	}

	doctor, err := h.doctors.GetOwnProfile(c.Request.Context(), userID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, doctor)
}

func (h *Handler) UpdateOwnProfile(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized("not authenticated", nil))
		return
	}

	var req model.UpdateDoctorProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput(err.Error(), err))
		return
	}

	doctor, err := h.doctors.UpdateOwnProfile(c.Request.Context(), userID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, doctor)
}

func (h *Handler) ListOwnAppointments(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized("not authenticated", nil))
		return
	}

	appointments, err := h.appointments.ListForDoctor(c.Request.Context(), userID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appointments)
}

func (h *Handler) ListOwnSchedules(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized("not authenticated", nil))
		return
	}

	schedules, err := h.doctors.ListOwnSchedules(c.Request.Context(), userID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, schedules)
}

func (h *Handler) CreateSchedule(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized("not authenticated", nil))
		return
	}

	var req model.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput(err.Error(), err))
		return
	}

	schedule, err := h.doctors.CreateSchedule(c.Request.Context(), userID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, schedule)
}

func (h *Handler) UpdateSchedule(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized("not authenticated", nil))
		return
	}

	scheduleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput("invalid schedule ID", err))
		return
	}

	var req model.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput(err.Error(), err))
		return
	}

	schedule, err := h.doctors.UpdateSchedule(c.Request.Context(), userID, scheduleID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, schedule)
}

func (h *Handler) DeleteSchedule(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized("not authenticated", nil))
		return
	}

	scheduleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput("invalid schedule ID", err))
		return
	}

	if err := h.doctors.DeleteSchedule(c.Request.Context(), userID, scheduleID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"deleted": true})
}
