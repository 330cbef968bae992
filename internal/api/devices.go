package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/feedwell/feeder-core/internal/feeder"
	"github.com/feedwell/feeder-core/internal/food"
)

// deviceAccessMiddleware verifies the authenticated user is linked to
// the feeder in the URL before any device operation runs.
func (s *Server) deviceAccessMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deviceID := chi.URLParam(r, "deviceID")
		if err := s.feeders.Authorize(r.Context(), deviceID, userID(r)); err != nil {
			writeDomainError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// deviceSummary is the list view of a feeder.
type deviceSummary struct {
	DeviceID     string  `json:"deviceId"`
	Name         string  `json:"name"`
	DepositLevel float64 `json:"depositLevel"`
	CatPresent   bool    `json:"catPresent"`
	Online       bool    `json:"online"`
}

// handleListDevices returns the feeders linked to the caller.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	feeders, err := s.feeders.List(r.Context(), userID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]deviceSummary, 0, len(feeders))
	for i := range feeders {
		f := &feeders[i]
		out = append(out, deviceSummary{
			DeviceID:     f.DeviceID,
			Name:         f.Name,
			DepositLevel: f.DepositLevel,
			CatPresent:   f.CatPresent,
			Online:       s.registry.IsOnline(f.DeviceID),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// createDeviceRequest is the request body for POST /devices.
type createDeviceRequest struct {
	DeviceID      string                `json:"deviceId"`
	Name          string                `json:"name"`
	Password      string                `json:"password"`
	Configuration *feeder.Configuration `json:"configuration,omitempty"`
}

// createDeviceResponse returns the device token the hardware must
// present on its channel connections. It is only ever shown once.
type createDeviceResponse struct {
	ID          string `json:"id"`
	DeviceID    string `json:"deviceId"`
	DeviceToken string `json:"deviceToken"`
}

// handleCreateDevice registers a new feeder linked to the caller.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req createDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	result, err := s.feeders.Create(r.Context(), feeder.CreateParams{
		DeviceID:      req.DeviceID,
		Name:          req.Name,
		Password:      req.Password,
		UserIDs:       []string{userID(r)},
		Configuration: req.Configuration,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createDeviceResponse{
		ID:          result.ID,
		DeviceID:    req.DeviceID,
		DeviceToken: result.DeviceToken,
	})
}

// deviceInfo is the detail view of a feeder.
type deviceInfo struct {
	DeviceID      string               `json:"deviceId"`
	Name          string               `json:"name"`
	Configuration feeder.Configuration `json:"configuration"`
	DepositLevel  float64              `json:"depositLevel"`
	CatPresent    bool                 `json:"catPresent"`
	Online        bool                 `json:"online"`
	Users         []string             `json:"users"`
}

// handleGetDevice returns one feeder's details.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")
	f, err := s.feeders.Info(r.Context(), deviceID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, deviceInfo{
		DeviceID:      f.DeviceID,
		Name:          f.Name,
		Configuration: f.Configuration,
		DepositLevel:  f.DepositLevel,
		CatPresent:    f.CatPresent,
		Online:        s.registry.IsOnline(f.DeviceID),
		Users:         f.UserIDs,
	})
}

// handleGetConfiguration returns the feeding configuration.
func (s *Server) handleGetConfiguration(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.feeders.Configuration(r.Context(), chi.URLParam(r, "deviceID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// handleChangeConfiguration applies a partial configuration update and
// returns the resulting configuration.
func (s *Server) handleChangeConfiguration(w http.ResponseWriter, r *http.Request) {
	var change feeder.ConfigurationChange
	if err := json.NewDecoder(r.Body).Decode(&change); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	cfg, err := s.feeders.ChangeConfiguration(r.Context(), chi.URLParam(r, "deviceID"), change)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// handleAddSchedule appends a feeding slot.
func (s *Server) handleAddSchedule(w http.ResponseWriter, r *http.Request) {
	var sched feeder.Schedule
	if err := json.NewDecoder(r.Body).Decode(&sched); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	cfg, err := s.feeders.AddSchedule(r.Context(), chi.URLParam(r, "deviceID"), sched)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cfg)
}

// handleRemoveSchedule deletes a feeding slot by ID or time of day.
func (s *Server) handleRemoveSchedule(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.feeders.RemoveSchedule(r.Context(), chi.URLParam(r, "deviceID"), chi.URLParam(r, "key"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// addDeviceUserRequest is the request body for POST /devices/{deviceID}/users.
type addDeviceUserRequest struct {
	Password string `json:"password"`
}

// handleAddDeviceUser links the caller to a feeder. The feeder's
// password is the proof of possession.
func (s *Server) handleAddDeviceUser(w http.ResponseWriter, r *http.Request) {
	var req addDeviceUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	deviceID := chi.URLParam(r, "deviceID")
	if err := s.feeders.AddUser(r.Context(), deviceID, userID(r), req.Password); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "linked"})
}

// handleRemoveDeviceUser unlinks a user from a feeder.
func (s *Server) handleRemoveDeviceUser(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")
	target := chi.URLParam(r, "userID")

	if err := s.feeders.RemoveUser(r.Context(), deviceID, target); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unlinked"})
}

// handleBrands returns the embedded food brand catalogue.
func (s *Server) handleBrands(w http.ResponseWriter, _ *http.Request) {
	catalogue, err := food.Brands()
	if err != nil {
		s.logger.Error("brand catalogue load failed", "error", err)
		writeInternalError(w, "brand catalogue unavailable")
		return
	}
	writeJSON(w, http.StatusOK, catalogue)
}

// handleBrand returns one brand by its catalogue ID.
func (s *Server) handleBrand(w http.ResponseWriter, r *http.Request) {
	brand, ok := food.ByID(chi.URLParam(r, "brandID"))
	if !ok {
		writeNotFound(w, "unknown brand")
		return
	}
	writeJSON(w, http.StatusOK, brand)
}
