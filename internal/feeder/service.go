package feeder

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/feedwell/feeder-core/internal/auth"
)

// Logger is the minimal logging interface this package needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Materializer is the slice of the daily record engine the service
// drives: first-record creation at registration and reconciliation
// after every schedule mutation.
type Materializer interface {
	EnsureDailyRecord(ctx context.Context, deviceID string) error
	Reconcile(ctx context.Context, deviceID string) error
}

// TokenIssuer mints the long-lived device token handed back at
// registration.
type TokenIssuer interface {
	IssueDeviceToken(feederID string) (string, error)
}

// UserDirectory resolves user accounts for linking.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*auth.User, error)
}

// Telemetry receives sensor readings as they arrive. Implementations
// must not block; delivery failures are theirs to handle.
type Telemetry interface {
	DepositLevel(deviceID string, level float64)
	CatPresence(deviceID string, present bool)
}

// Service implements feeder business operations over the repository.
type Service struct {
	repo         Repository
	users        UserDirectory
	materializer Materializer
	tokens       TokenIssuer
	telemetry    Telemetry
	logger       Logger
}

// NewService creates the feeder service.
func NewService(repo Repository, users UserDirectory, materializer Materializer, tokens TokenIssuer) *Service {
	return &Service{
		repo:         repo,
		users:        users,
		materializer: materializer,
		tokens:       tokens,
		logger:       noopLogger{},
	}
}

// SetLogger injects the application logger.
func (s *Service) SetLogger(l Logger) {
	if l != nil {
		s.logger = l
	}
}

// SetTelemetry injects the telemetry sink for sensor readings.
func (s *Service) SetTelemetry(t Telemetry) {
	s.telemetry = t
}

// CreateParams carries everything needed to register a feeder.
type CreateParams struct {
	DeviceID      string
	Name          string
	Password      string
	UserIDs       []string
	Configuration *Configuration
}

// CreateResult is returned from a successful registration.
type CreateResult struct {
	ID          string
	DeviceToken string
}

// Create registers a new feeder device. Every named user must already
// exist. The feeder receives the default three-meal configuration
// unless one is supplied, a long-lived device token for its channel
// connections, and an initial daily record so the diary is never empty.
func (s *Service) Create(ctx context.Context, p CreateParams) (*CreateResult, error) {
	if p.DeviceID == "" || p.Name == "" || p.Password == "" {
		return nil, fmt.Errorf("%w: device ID, name and password are required", ErrInvalidParams)
	}

	for _, userID := range p.UserIDs {
		if _, err := s.users.GetByID(ctx, userID); err != nil {
			return nil, fmt.Errorf("resolving user %s: %w", userID, err)
		}
	}

	cfg := DefaultConfiguration()
	if p.Configuration != nil {
		cfg = p.Configuration.DeepCopy()
	}
	assignScheduleIDs(&cfg)
	if err := ValidateConfiguration(cfg); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(p.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	f := &Feeder{
		ID:            uuid.NewString(),
		DeviceID:      p.DeviceID,
		Name:          p.Name,
		PasswordHash:  hash,
		Configuration: cfg,
		UserIDs:       p.UserIDs,
	}
	if err := s.repo.Create(ctx, f); err != nil {
		return nil, err
	}

	token, err := s.tokens.IssueDeviceToken(f.ID)
	if err != nil {
		return nil, fmt.Errorf("issuing device token: %w", err)
	}

	if err := s.materializer.EnsureDailyRecord(ctx, f.DeviceID); err != nil {
		return nil, fmt.Errorf("creating initial daily record: %w", err)
	}

	s.logger.Info("feeder registered", "device_id", f.DeviceID, "name", f.Name)
	return &CreateResult{ID: f.ID, DeviceToken: token}, nil
}

// Info retrieves a feeder by device ID.
func (s *Service) Info(ctx context.Context, deviceID string) (*Feeder, error) {
	f, err := s.repo.GetByDeviceID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	return f.DeepCopy(), nil
}

// Configuration returns the current feeding configuration for a
// device. Also serves as the snapshot source for control channel
// registration pushes.
func (s *Service) Configuration(ctx context.Context, deviceID string) (Configuration, error) {
	f, err := s.repo.GetByDeviceID(ctx, deviceID)
	if err != nil {
		return Configuration{}, err
	}
	return f.Configuration.DeepCopy(), nil
}

// List retrieves every feeder linked to the user.
func (s *Service) List(ctx context.Context, userID string) ([]Feeder, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Authorize verifies the user is linked to the feeder. Returns
// ErrUserNotLinked otherwise.
func (s *Service) Authorize(ctx context.Context, deviceID, userID string) error {
	f, err := s.repo.GetByDeviceID(ctx, deviceID)
	if err != nil {
		return err
	}
	if !f.HasUser(userID) {
		return ErrUserNotLinked
	}
	return nil
}

// AddUser links a user to a feeder. The caller proves possession of
// the feeder by supplying its password.
func (s *Service) AddUser(ctx context.Context, deviceID, userID, password string) error {
	f, err := s.repo.GetByDeviceID(ctx, deviceID)
	if err != nil {
		return err
	}

	ok, err := auth.VerifyPassword(password, f.PasswordHash)
	if err != nil {
		return fmt.Errorf("verifying password: %w", err)
	}
	if !ok {
		return ErrInvalidPassword
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return fmt.Errorf("resolving user: %w", err)
	}

	return s.repo.LinkUser(ctx, f.ID, userID)
}

// RemoveUser unlinks a user from a feeder.
func (s *Service) RemoveUser(ctx context.Context, deviceID, userID string) error {
	f, err := s.repo.GetByDeviceID(ctx, deviceID)
	if err != nil {
		return err
	}
	return s.repo.UnlinkUser(ctx, f.ID, userID)
}

// ScheduleChange is a single schedule edit within a configuration
// change. Matched against existing schedules by ID when set, time of
// day otherwise; unmatched entries are appended as new schedules.
type ScheduleChange struct {
	ID               string   `json:"id,omitempty"`
	TimeOfDay        string   `json:"timeOfDay"`
	CaloriesPerPlate *float64 `json:"caloriesPerPlate,omitempty"`
	Enabled          *bool    `json:"enabled,omitempty"`
}

// ConfigurationChange is a partial configuration update. Nil fields
// are left untouched.
type ConfigurationChange struct {
	Brand           *string          `json:"brand,omitempty"`
	GramsPerCalorie *float64         `json:"gramsPerCalorie,omitempty"`
	Schedules       []ScheduleChange `json:"schedules,omitempty"`
}

// ChangeConfiguration merges a partial update into the stored
// configuration, persists it, and reconciles the daily records so
// today's remaining meals reflect the new plan.
func (s *Service) ChangeConfiguration(ctx context.Context, deviceID string, change ConfigurationChange) (Configuration, error) {
	f, err := s.repo.GetByDeviceID(ctx, deviceID)
	if err != nil {
		return Configuration{}, err
	}

	cfg := f.Configuration.DeepCopy()
	if change.Brand != nil {
		cfg.Brand = *change.Brand
	}
	if change.GramsPerCalorie != nil {
		cfg.GramsPerCalorie = *change.GramsPerCalorie
	}

	for _, sc := range change.Schedules {
		target := matchSchedule(&cfg, sc)
		if target == nil {
			ns := Schedule{ID: uuid.NewString(), TimeOfDay: sc.TimeOfDay, Enabled: true}
			if sc.CaloriesPerPlate != nil {
				ns.CaloriesPerPlate = *sc.CaloriesPerPlate
			}
			if sc.Enabled != nil {
				ns.Enabled = *sc.Enabled
			}
			cfg.Schedules = append(cfg.Schedules, ns)
			continue
		}
		if sc.TimeOfDay != "" {
			target.TimeOfDay = sc.TimeOfDay
		}
		if sc.CaloriesPerPlate != nil {
			target.CaloriesPerPlate = *sc.CaloriesPerPlate
		}
		if sc.Enabled != nil {
			target.Enabled = *sc.Enabled
		}
	}

	return s.applyConfiguration(ctx, f, cfg)
}

// AddSchedule appends a new feeding slot. Returns ErrDuplicateSchedule
// when the time of day is already occupied.
func (s *Service) AddSchedule(ctx context.Context, deviceID string, sched Schedule) (Configuration, error) {
	f, err := s.repo.GetByDeviceID(ctx, deviceID)
	if err != nil {
		return Configuration{}, err
	}

	if sched.ID == "" {
		sched.ID = uuid.NewString()
	}
	cfg := f.Configuration.DeepCopy()
	cfg.Schedules = append(cfg.Schedules, sched)

	return s.applyConfiguration(ctx, f, cfg)
}

// RemoveSchedule deletes a feeding slot by schedule ID or time of day.
func (s *Service) RemoveSchedule(ctx context.Context, deviceID, key string) (Configuration, error) {
	f, err := s.repo.GetByDeviceID(ctx, deviceID)
	if err != nil {
		return Configuration{}, err
	}

	cfg := f.Configuration.DeepCopy()
	idx := -1
	for i, sched := range cfg.Schedules {
		if sched.ID == key || sched.TimeOfDay == key {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Configuration{}, fmt.Errorf("%w: %q", ErrScheduleNotFound, key)
	}
	cfg.Schedules = append(cfg.Schedules[:idx], cfg.Schedules[idx+1:]...)

	return s.applyConfiguration(ctx, f, cfg)
}

// applyConfiguration validates, persists and reconciles a new
// configuration. Reconciliation also pushes the change to the device.
func (s *Service) applyConfiguration(ctx context.Context, f *Feeder, cfg Configuration) (Configuration, error) {
	if err := ValidateConfiguration(cfg); err != nil {
		return Configuration{}, err
	}
	if err := s.repo.UpdateConfiguration(ctx, f.ID, cfg); err != nil {
		return Configuration{}, err
	}
	if err := s.materializer.Reconcile(ctx, f.DeviceID); err != nil {
		return Configuration{}, fmt.Errorf("reconciling daily records: %w", err)
	}

	s.logger.Info("configuration changed", "device_id", f.DeviceID, "schedules", len(cfg.Schedules))
	return cfg, nil
}

// ReportDeposit stores a hopper level reading from the device.
func (s *Service) ReportDeposit(ctx context.Context, deviceID string, level float64) error {
	f, err := s.repo.GetByDeviceID(ctx, deviceID)
	if err != nil {
		return err
	}
	if err := s.repo.SetDepositLevel(ctx, f.ID, level); err != nil {
		return err
	}
	if s.telemetry != nil {
		s.telemetry.DepositLevel(deviceID, level)
	}
	return nil
}

// ReportPresence stores a pet presence reading from the device.
func (s *Service) ReportPresence(ctx context.Context, deviceID string, present bool) error {
	f, err := s.repo.GetByDeviceID(ctx, deviceID)
	if err != nil {
		return err
	}
	if err := s.repo.SetCatPresence(ctx, f.ID, present); err != nil {
		return err
	}
	if s.telemetry != nil {
		s.telemetry.CatPresence(deviceID, present)
	}
	return nil
}

func matchSchedule(cfg *Configuration, sc ScheduleChange) *Schedule {
	if sc.ID != "" {
		return cfg.ScheduleByID(sc.ID)
	}
	for i := range cfg.Schedules {
		if cfg.Schedules[i].TimeOfDay == sc.TimeOfDay {
			return &cfg.Schedules[i]
		}
	}
	return nil
}

func assignScheduleIDs(cfg *Configuration) {
	for i := range cfg.Schedules {
		if cfg.Schedules[i].ID == "" {
			cfg.Schedules[i].ID = uuid.NewString()
		}
	}
}
