package patient

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aproko/clinic-api/internal/model"
	"github.com/aproko/clinic-api/internal/repository"
	apperrors "github.com/aproko/clinic-api/pkg/errors"
)

type Service struct {
	patients repository.PatientRepository
	logger   zerolog.Logger
}

func NewService(patients repository.PatientRepository, logger zerolog.Logger) *Service {
	return &Service{patients: patients, logger: logger}
}

// GetProfile returns the profile for the authenticated patient.
func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*model.Patient, error) {
	return s.patients.GetByUserID(ctx, userID)
}

// UpdateProfile applies a full profile update. The request replaces every
// editable field; omitted optional fields clear their columns.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error) {
	patient, err := s.patients.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	patient.FirstName = req.FirstName
	patient.LastName = req.LastName
	patient.Phone = req.Phone
	patient.Gender = req.Gender
	patient.Address = req.Address
	patient.MedicalHistory = req.MedicalHistory
	patient.EmergencyContact = req.EmergencyContact

	patient.DateOfBirth = nil
	if req.DateOfBirth != nil {
		dob, err := time.Parse(model.DateLayout, *req.DateOfBirth)
		if err != nil {
			return nil, apperrors.InvalidInput("invalid date_of_birth, expected YYYY-MM-DD", err)
		}
		if dob.After(time.Now()) {
			return nil, apperrors.InvalidInput("date_of_birth cannot be in the future", nil)
		}
		patient.DateOfBirth = &dob
	}

	if err := s.patients.Update(ctx, patient); err != nil {
		return nil, err
	}
	return patient, nil
}

// Search lists patients matching the admin filters.
func (s *Service) Search(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error) {
	return s.patients.Search(ctx, filters)
}

// Get returns one patient by profile ID, for admin views.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	return s.patients.Get(ctx, id)
}

// DeleteAccount removes the patient's login and profile. The appointments
// cascade away with the profile; the outbox keeps the notification history.
func (s *Service) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	// Resolve first so a non-patient user gets a clean not-found instead
	// of a silent no-op delete.
	if _, err := s.patients.GetByUserID(ctx, userID); err != nil {
		return err
	}

	if err := s.patients.DeleteAccount(ctx, userID); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", userID.String()).Msg("patient account deleted")
	return nil
}
