package feeder

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/feedwell/feeder-core/internal/auth"
)

// memRepo is an in-memory feeder repository for service tests.
type memRepo struct {
	feeders map[string]*Feeder // by ID
}

func newMemRepo() *memRepo {
	return &memRepo{feeders: make(map[string]*Feeder)}
}

func (r *memRepo) GetByID(_ context.Context, id string) (*Feeder, error) {
	f, ok := r.feeders[id]
	if !ok {
		return nil, ErrFeederNotFound
	}
	return f.DeepCopy(), nil
}

func (r *memRepo) GetByDeviceID(_ context.Context, deviceID string) (*Feeder, error) {
	for _, f := range r.feeders {
		if f.DeviceID == deviceID {
			return f.DeepCopy(), nil
		}
	}
	return nil, ErrFeederNotFound
}

func (r *memRepo) ListByUser(_ context.Context, userID string) ([]Feeder, error) {
	var out []Feeder
	for _, f := range r.feeders {
		if f.HasUser(userID) {
			out = append(out, *f.DeepCopy())
		}
	}
	return out, nil
}

func (r *memRepo) Create(_ context.Context, f *Feeder) error {
	for _, existing := range r.feeders {
		if existing.DeviceID == f.DeviceID || existing.Name == f.Name {
			return ErrFeederExists
		}
	}
	r.feeders[f.ID] = f.DeepCopy()
	return nil
}

func (r *memRepo) UpdateConfiguration(_ context.Context, id string, cfg Configuration) error {
	f, ok := r.feeders[id]
	if !ok {
		return ErrFeederNotFound
	}
	f.Configuration = cfg.DeepCopy()
	return nil
}

func (r *memRepo) SetDepositLevel(_ context.Context, id string, level float64) error {
	f, ok := r.feeders[id]
	if !ok {
		return ErrFeederNotFound
	}
	f.DepositLevel = level
	return nil
}

func (r *memRepo) SetCatPresence(_ context.Context, id string, present bool) error {
	f, ok := r.feeders[id]
	if !ok {
		return ErrFeederNotFound
	}
	f.CatPresent = present
	return nil
}

func (r *memRepo) LinkUser(_ context.Context, feederID, userID string) error {
	f, ok := r.feeders[feederID]
	if !ok {
		return ErrFeederNotFound
	}
	if !f.HasUser(userID) {
		f.UserIDs = append(f.UserIDs, userID)
	}
	return nil
}

func (r *memRepo) UnlinkUser(_ context.Context, feederID, userID string) error {
	f, ok := r.feeders[feederID]
	if !ok {
		return ErrFeederNotFound
	}
	for i, id := range f.UserIDs {
		if id == userID {
			f.UserIDs = append(f.UserIDs[:i], f.UserIDs[i+1:]...)
			return nil
		}
	}
	return nil
}

// userDirStub resolves a fixed set of user IDs.
type userDirStub struct {
	ids map[string]bool
}

func (d *userDirStub) GetByID(_ context.Context, id string) (*auth.User, error) {
	if d.ids[id] {
		return &auth.User{ID: id}, nil
	}
	return nil, auth.ErrUserNotFound
}

// materializerSpy counts engine calls.
type materializerSpy struct {
	ensured    []string
	reconciled []string
}

func (m *materializerSpy) EnsureDailyRecord(_ context.Context, deviceID string) error {
	m.ensured = append(m.ensured, deviceID)
	return nil
}

func (m *materializerSpy) Reconcile(_ context.Context, deviceID string) error {
	m.reconciled = append(m.reconciled, deviceID)
	return nil
}

// tokenStub issues predictable device tokens.
type tokenStub struct{}

func (tokenStub) IssueDeviceToken(feederID string) (string, error) {
	return "device-token-" + feederID, nil
}

func testService(t *testing.T) (*Service, *memRepo, *materializerSpy) {
	t.Helper()
	repo := newMemRepo()
	mat := &materializerSpy{}
	users := &userDirStub{ids: map[string]bool{"usr-1": true, "usr-2": true}}
	svc := NewService(repo, users, mat, tokenStub{})
	return svc, repo, mat
}

func createTestFeeder(t *testing.T, svc *Service) *CreateResult {
	t.Helper()
	res, err := svc.Create(context.Background(), CreateParams{
		DeviceID: "feeder-01",
		Name:     "Kitchen Feeder",
		Password: "hopper-secret",
		UserIDs:  []string{"usr-1"},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return res
}

func TestService_Create_Defaults(t *testing.T) {
	svc, _, mat := testService(t)
	ctx := context.Background()

	res := createTestFeeder(t, svc)
	if res.ID == "" {
		t.Error("Create() should assign an ID")
	}
	if !strings.HasPrefix(res.DeviceToken, "device-token-") {
		t.Errorf("DeviceToken = %q, want issued token", res.DeviceToken)
	}

	f, err := svc.Info(ctx, "feeder-01")
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}

	// Default three-meal plan with IDs assigned
	if len(f.Configuration.Schedules) != 3 {
		t.Fatalf("schedules = %d, want 3", len(f.Configuration.Schedules))
	}
	for i, s := range f.Configuration.Schedules {
		if s.ID == "" {
			t.Errorf("Schedules[%d] missing an ID", i)
		}
	}

	// Password is stored hashed, never plain
	if f.PasswordHash == "hopper-secret" || f.PasswordHash == "" {
		t.Error("password should be stored as a hash")
	}
	ok, err := auth.VerifyPassword("hopper-secret", f.PasswordHash)
	if err != nil || !ok {
		t.Errorf("stored hash should verify the original password, ok=%v err=%v", ok, err)
	}

	// Registration materialises the first daily record
	if len(mat.ensured) != 1 || mat.ensured[0] != "feeder-01" {
		t.Errorf("EnsureDailyRecord calls = %v, want [feeder-01]", mat.ensured)
	}
}

func TestService_Create_MissingFields(t *testing.T) {
	svc, _, _ := testService(t)

	_, err := svc.Create(context.Background(), CreateParams{DeviceID: "feeder-01"})
	if !errors.Is(err, ErrInvalidParams) {
		t.Errorf("Create() error = %v, want ErrInvalidParams", err)
	}
}

func TestService_Create_UnknownUser(t *testing.T) {
	svc, _, _ := testService(t)

	_, err := svc.Create(context.Background(), CreateParams{
		DeviceID: "feeder-01",
		Name:     "Kitchen Feeder",
		Password: "pw-123456",
		UserIDs:  []string{"usr-ghost"},
	})
	if !errors.Is(err, auth.ErrUserNotFound) {
		t.Errorf("Create() error = %v, want ErrUserNotFound", err)
	}
}

func TestService_Create_DuplicateDevice(t *testing.T) {
	svc, _, _ := testService(t)
	createTestFeeder(t, svc)

	_, err := svc.Create(context.Background(), CreateParams{
		DeviceID: "feeder-01",
		Name:     "Another Name",
		Password: "pw-123456",
	})
	if !errors.Is(err, ErrFeederExists) {
		t.Errorf("Create() error = %v, want ErrFeederExists", err)
	}
}

func TestService_Create_CustomConfiguration(t *testing.T) {
	svc, _, _ := testService(t)

	cfg := Configuration{
		Brand: "acme-salmon",
		Schedules: []Schedule{
			{TimeOfDay: "07:30", CaloriesPerPlate: 90, Enabled: true},
		},
	}
	_, err := svc.Create(context.Background(), CreateParams{
		DeviceID:      "feeder-02",
		Name:          "Hall Feeder",
		Password:      "pw-123456",
		Configuration: &cfg,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	f, _ := svc.Info(context.Background(), "feeder-02")
	if len(f.Configuration.Schedules) != 1 || f.Configuration.Schedules[0].TimeOfDay != "07:30" {
		t.Errorf("configuration = %+v, want the supplied plan", f.Configuration)
	}
	if f.Configuration.Schedules[0].ID == "" {
		t.Error("supplied schedules should gain IDs")
	}
}

func TestService_Authorize(t *testing.T) {
	svc, _, _ := testService(t)
	createTestFeeder(t, svc)
	ctx := context.Background()

	if err := svc.Authorize(ctx, "feeder-01", "usr-1"); err != nil {
		t.Errorf("Authorize() linked user error = %v", err)
	}
	if err := svc.Authorize(ctx, "feeder-01", "usr-2"); !errors.Is(err, ErrUserNotLinked) {
		t.Errorf("Authorize() unlinked user error = %v, want ErrUserNotLinked", err)
	}
	if err := svc.Authorize(ctx, "feeder-99", "usr-1"); !errors.Is(err, ErrFeederNotFound) {
		t.Errorf("Authorize() unknown device error = %v, want ErrFeederNotFound", err)
	}
}

func TestService_AddUser_RequiresPassword(t *testing.T) {
	svc, _, _ := testService(t)
	createTestFeeder(t, svc)
	ctx := context.Background()

	if err := svc.AddUser(ctx, "feeder-01", "usr-2", "wrong-password"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("AddUser() wrong password error = %v, want ErrInvalidPassword", err)
	}

	if err := svc.AddUser(ctx, "feeder-01", "usr-2", "hopper-secret"); err != nil {
		t.Fatalf("AddUser() error = %v", err)
	}
	if err := svc.Authorize(ctx, "feeder-01", "usr-2"); err != nil {
		t.Errorf("newly linked user should be authorized, got %v", err)
	}
}

func TestService_RemoveUser(t *testing.T) {
	svc, _, _ := testService(t)
	createTestFeeder(t, svc)
	ctx := context.Background()

	if err := svc.RemoveUser(ctx, "feeder-01", "usr-1"); err != nil {
		t.Fatalf("RemoveUser() error = %v", err)
	}
	if err := svc.Authorize(ctx, "feeder-01", "usr-1"); !errors.Is(err, ErrUserNotLinked) {
		t.Errorf("removed user should lose access, got %v", err)
	}
}

func TestService_ChangeConfiguration_MergesByID(t *testing.T) {
	svc, _, mat := testService(t)
	createTestFeeder(t, svc)
	ctx := context.Background()

	f, _ := svc.Info(ctx, "feeder-01")
	target := f.Configuration.Schedules[0]

	calories := 150.0
	enabled := false
	got, err := svc.ChangeConfiguration(ctx, "feeder-01", ConfigurationChange{
		Schedules: []ScheduleChange{
			{ID: target.ID, TimeOfDay: "09:15", CaloriesPerPlate: &calories, Enabled: &enabled},
		},
	})
	if err != nil {
		t.Fatalf("ChangeConfiguration() error = %v", err)
	}

	changed := got.ScheduleByID(target.ID)
	if changed == nil {
		t.Fatal("changed schedule missing from result")
	}
	if changed.TimeOfDay != "09:15" || changed.CaloriesPerPlate != 150 || changed.Enabled {
		t.Errorf("changed schedule = %+v", changed)
	}

	// Every mutation reconciles the records
	if len(mat.reconciled) != 1 {
		t.Errorf("Reconcile calls = %d, want 1", len(mat.reconciled))
	}
}

func TestService_ChangeConfiguration_AppendsUnmatched(t *testing.T) {
	svc, _, _ := testService(t)
	createTestFeeder(t, svc)
	ctx := context.Background()

	calories := 60.0
	got, err := svc.ChangeConfiguration(ctx, "feeder-01", ConfigurationChange{
		Schedules: []ScheduleChange{
			{TimeOfDay: "22:30", CaloriesPerPlate: &calories},
		},
	})
	if err != nil {
		t.Fatalf("ChangeConfiguration() error = %v", err)
	}

	if len(got.Schedules) != 4 {
		t.Fatalf("schedules = %d, want 4", len(got.Schedules))
	}
	var added *Schedule
	for i := range got.Schedules {
		if got.Schedules[i].TimeOfDay == "22:30" {
			added = &got.Schedules[i]
		}
	}
	if added == nil {
		t.Fatal("appended schedule missing")
	}
	if added.ID == "" || !added.Enabled || added.CaloriesPerPlate != 60 {
		t.Errorf("appended schedule = %+v", added)
	}
}

func TestService_ChangeConfiguration_BrandAndDensity(t *testing.T) {
	svc, _, _ := testService(t)
	createTestFeeder(t, svc)

	brand := "acme-salmon"
	density := 0.31
	got, err := svc.ChangeConfiguration(context.Background(), "feeder-01", ConfigurationChange{
		Brand:           &brand,
		GramsPerCalorie: &density,
	})
	if err != nil {
		t.Fatalf("ChangeConfiguration() error = %v", err)
	}
	if got.Brand != "acme-salmon" || got.GramsPerCalorie != 0.31 {
		t.Errorf("configuration = %+v", got)
	}
}

func TestService_ChangeConfiguration_RejectsDuplicateTime(t *testing.T) {
	svc, repo, _ := testService(t)
	createTestFeeder(t, svc)
	ctx := context.Background()

	f, _ := svc.Info(ctx, "feeder-01")
	target := f.Configuration.Schedules[0]

	// Move the first slot onto the second slot's time
	_, err := svc.ChangeConfiguration(ctx, "feeder-01", ConfigurationChange{
		Schedules: []ScheduleChange{
			{ID: target.ID, TimeOfDay: "14:00"},
		},
	})
	if !errors.Is(err, ErrDuplicateSchedule) {
		t.Fatalf("ChangeConfiguration() error = %v, want ErrDuplicateSchedule", err)
	}

	// Rejected change must not be persisted
	stored, _ := repo.GetByDeviceID(ctx, "feeder-01")
	if got := stored.Configuration.ScheduleByID(target.ID); got.TimeOfDay != "08:00" {
		t.Errorf("stored TimeOfDay = %q, want unchanged 08:00", got.TimeOfDay)
	}
}

func TestService_AddSchedule(t *testing.T) {
	svc, _, _ := testService(t)
	createTestFeeder(t, svc)
	ctx := context.Background()

	got, err := svc.AddSchedule(ctx, "feeder-01", Schedule{
		TimeOfDay: "23:00", CaloriesPerPlate: 40, Enabled: true,
	})
	if err != nil {
		t.Fatalf("AddSchedule() error = %v", err)
	}
	if len(got.Schedules) != 4 {
		t.Errorf("schedules = %d, want 4", len(got.Schedules))
	}

	// Occupied slot is rejected even if disabled
	_, err = svc.AddSchedule(ctx, "feeder-01", Schedule{
		TimeOfDay: "08:00", CaloriesPerPlate: 40, Enabled: false,
	})
	if !errors.Is(err, ErrDuplicateSchedule) {
		t.Errorf("AddSchedule() duplicate error = %v, want ErrDuplicateSchedule", err)
	}
}

func TestService_RemoveSchedule(t *testing.T) {
	svc, _, _ := testService(t)
	createTestFeeder(t, svc)
	ctx := context.Background()

	f, _ := svc.Info(ctx, "feeder-01")
	byID := f.Configuration.Schedules[0].ID

	got, err := svc.RemoveSchedule(ctx, "feeder-01", byID)
	if err != nil {
		t.Fatalf("RemoveSchedule() by ID error = %v", err)
	}
	if len(got.Schedules) != 2 {
		t.Errorf("schedules = %d, want 2", len(got.Schedules))
	}

	got, err = svc.RemoveSchedule(ctx, "feeder-01", "14:00")
	if err != nil {
		t.Fatalf("RemoveSchedule() by time error = %v", err)
	}
	if len(got.Schedules) != 1 {
		t.Errorf("schedules = %d, want 1", len(got.Schedules))
	}

	if _, err := svc.RemoveSchedule(ctx, "feeder-01", "03:33"); !errors.Is(err, ErrScheduleNotFound) {
		t.Errorf("RemoveSchedule() unknown key error = %v, want ErrScheduleNotFound", err)
	}
}

func TestService_ReportDepositAndPresence(t *testing.T) {
	svc, repo, _ := testService(t)
	createTestFeeder(t, svc)
	ctx := context.Background()

	if err := svc.ReportDeposit(ctx, "feeder-01", 63.5); err != nil {
		t.Fatalf("ReportDeposit() error = %v", err)
	}
	if err := svc.ReportPresence(ctx, "feeder-01", true); err != nil {
		t.Fatalf("ReportPresence() error = %v", err)
	}

	f, _ := repo.GetByDeviceID(ctx, "feeder-01")
	if f.DepositLevel != 63.5 {
		t.Errorf("DepositLevel = %v, want 63.5", f.DepositLevel)
	}
	if !f.CatPresent {
		t.Error("CatPresent = false, want true")
	}
}

func TestService_List(t *testing.T) {
	svc, _, _ := testService(t)
	createTestFeeder(t, svc)

	got, err := svc.List(context.Background(), "usr-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 1 || got[0].DeviceID != "feeder-01" {
		t.Errorf("List() = %+v, want the linked feeder", got)
	}

	got, err = svc.List(context.Background(), "usr-2")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("List() for unlinked user = %d feeders, want 0", len(got))
	}
}
