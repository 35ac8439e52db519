package admin

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aproko/clinic-api/internal/model"
	doctorsvc "github.com/aproko/clinic-api/internal/service/doctor"
	patientsvc "github.com/aproko/clinic-api/internal/service/patient"
	apperrors "github.com/aproko/clinic-api/pkg/errors"
	"github.com/aproko/clinic-api/pkg/httputil"
)

// Handler covers clinic administration: provisioning doctor accounts and
// looking up patient records.
type Handler struct {
	doctors  *doctorsvc.Service
	patients *patientsvc.Service
}

func NewHandler(doctors *doctorsvc.Service, patients *patientsvc.Service) *Handler {
	return &Handler{doctors: doctors, patients: patients}
}

// RegisterRoutes mounts the admin endpoints. The group is expected to
// already carry Authenticate plus the admin role gate.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	routes := rg.Group("/admin")
	{
		routes.POST("/doctors", h.ProvisionDoctor)
		routes.GET("/doctors", h.ListDoctors)
		routes.PATCH("/doctors/:id/status", h.SetDoctorStatus)
		routes.GET("/patients", h.SearchPatients)
		routes.GET("/patients/:id", h.GetPatient)
	}
}

func (h *Handler) ProvisionDoctor(c *gin.Context) {
	var req model.CreateDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput(err.Error(), err))
		return
	}

	resp, err := h.doctors.Provision(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, resp)
}

func (h *Handler) ListDoctors(c *gin.Context) {
	doctors, err := h.doctors.ListAll(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, doctors)
}

func (h *Handler) SetDoctorStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput("invalid doctor ID", err))
		return
	}

	var req model.UpdateDoctorStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput(err.Error(), err))
		return
	}

	if err := h.doctors.SetStatus(c.Request.Context(), id, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"status": req.Status})
}

func (h *Handler) SearchPatients(c *gin.Context) {
	var filters model.PatientFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput(err.Error(), err))
		return
	}

	patients, err := h.patients.Search(c.Request.Context(), &filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, patients)
}

func (h *Handler) GetPatient(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput("invalid patient ID", err))
		return
	}

	patient, err := h.patients.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, patient)
}
