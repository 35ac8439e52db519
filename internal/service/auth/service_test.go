package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aproko/clinic-api/internal/model"
	pkgauth "github.com/aproko/clinic-api/pkg/auth"
	apperrors "github.com/aproko/clinic-api/pkg/errors"
	"github.com/aproko/clinic-api/pkg/security"
)

type fakeUserRepo struct {
	byEmail map[string]*model.User
}

func (f *fakeUserRepo) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, apperrors.NotFound("user", nil)
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, apperrors.NotFound("user", nil)
	}
	return u, nil
}

func (f *fakeUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return nil
}

type fakePatientRepo struct {
	created  bool
	byUserID map[uuid.UUID]*model.Patient
}

func (f *fakePatientRepo) CreateWithUser(ctx context.Context, u *model.User, p *model.Patient) error {
	if _, exists := f.byUserID[u.ID]; exists {
		return apperrors.Conflict("email already registered", nil)
	}
	f.created = true
	f.byUserID[u.ID] = p
	return nil
}

func (f *fakePatientRepo) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	return nil, apperrors.NotFound("patient", nil)
}

func (f *fakePatientRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Patient, error) {
	p, ok := f.byUserID[userID]
	if !ok {
		return nil, apperrors.NotFound("patient", nil)
	}
	return p, nil
}

func (f *fakePatientRepo) Update(ctx context.Context, p *model.Patient) error { return nil }

func (f *fakePatientRepo) Search(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error) {
	return nil, nil
}

func (f *fakePatientRepo) DeleteAccount(ctx context.Context, userID uuid.UUID) error { return nil }

type fakeDoctorRepo struct{}

func (fakeDoctorRepo) CreateWithUser(ctx context.Context, u *model.User, d *model.Doctor, s []*model.Schedule) error {
	return nil
}
func (fakeDoctorRepo) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	return nil, apperrors.NotFound("doctor", nil)
}
func (fakeDoctorRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Doctor, error) {
	return nil, apperrors.NotFound("doctor", nil)
}
func (fakeDoctorRepo) ListActive(ctx context.Context) ([]*model.Doctor, error)      { return nil, nil }
func (fakeDoctorRepo) ListAll(ctx context.Context) ([]*model.Doctor, error)         { return nil, nil }
func (fakeDoctorRepo) UpdateProfile(ctx context.Context, d *model.Doctor) error     { return nil }
func (fakeDoctorRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return nil
}

func newTestService() (*Service, *fakeUserRepo, *fakePatientRepo) {
	users := &fakeUserRepo{byEmail: make(map[string]*model.User)}
	patients := &fakePatientRepo{byUserID: make(map[uuid.UUID]*model.Patient)}
	jwt := pkgauth.NewJWTService(pkgauth.Config{
		Secret:             "test-secret",
		RefreshSecret:      "test-refresh-secret",
		ExpiryHours:        1,
		RefreshExpiryHours: 24,
	})
	svc := NewService(users, patients, fakeDoctorRepo{}, security.NewBcryptHasher(4), jwt, zerolog.Nop())
	return svc, users, patients
}

func TestRegisterPatientIssuesTokens(t *testing.T) {
	svc, _, patients := newTestService()

	tokens, err := svc.RegisterPatient(context.Background(), &model.RegisterRequest{
		Email:     "Ada.Obi@Example.com",
		Password:  "correct-horse",
		FirstName: "Ada",
		LastName:  "Obi",
	})
	require.NoError(t, err)

	assert.True(t, patients.created)
	assert.Equal(t, "ada.obi@example.com", tokens.Email)
	assert.Equal(t, model.RolePatient, tokens.Role)
	assert.Equal(t, "Ada Obi", tokens.Name)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, users, _ := newTestService()

	hash, err := security.NewBcryptHasher(4).Hash("right-password")
	require.NoError(t, err)
	users.byEmail["ada@example.com"] = &model.User{
		ID:           uuid.New(),
		Email:        "ada@example.com",
		PasswordHash: hash,
		Role:         model.RolePatient,
	}

	_, err = svc.Login(context.Background(), &model.LoginRequest{
		Email:    "ada@example.com",
		Password: "wrong-password",
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized), "got %v", err)
}

func TestLoginUnknownEmailSameError(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Login(context.Background(), &model.LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever-password",
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized), "got %v", err)
}

func TestRefreshRoundTrip(t *testing.T) {
	svc, users, _ := newTestService()

	registered, err := svc.RegisterPatient(context.Background(), &model.RegisterRequest{
		Email:     "ada@example.com",
		Password:  "correct-horse",
		FirstName: "Ada",
		LastName:  "Obi",
	})
	require.NoError(t, err)

	// Register goes through the patient repo; mirror the user row the way
	// the real transaction would.
	users.byEmail["ada@example.com"] = &model.User{
		ID:    registered.UserID,
		Email: "ada@example.com",
		Role:  model.RolePatient,
	}

	refreshed, err := svc.Refresh(context.Background(), registered.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, registered.UserID, refreshed.UserID)
	assert.NotEmpty(t, refreshed.AccessToken)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc, _, _ := newTestService()

	registered, err := svc.RegisterPatient(context.Background(), &model.RegisterRequest{
		Email:     "ada@example.com",
		Password:  "correct-horse",
		FirstName: "Ada",
		LastName:  "Obi",
	})
	require.NoError(t, err)

	// Access tokens are signed with a different secret.
	_, err = svc.Refresh(context.Background(), registered.AccessToken)
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized), "got %v", err)
}
