package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/feedwell/feeder-core/internal/record"
)

// handleDiary returns today's feeding diary, materialising it if this
// is the first touch of the day.
func (s *Server) handleDiary(w http.ResponseWriter, r *http.Request) {
	diary, err := s.records.Diary(r.Context(), chi.URLParam(r, "deviceID"), time.Now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, diary)
}

// handleRecordHistory returns diary entries from a start date forward.
// The from parameter is a YYYY-MM-DD date in the reference timezone; it
// defaults to seven days ago.
func (s *Server) handleRecordHistory(w http.ResponseWriter, r *http.Request) {
	from := time.Now().AddDate(0, 0, -7)
	if v := r.URL.Query().Get("from"); v != "" {
		// Parse in the day-bucketing zone so the window starts on the
		// named calendar day, not its UTC midnight.
		parsed, err := record.ParseDayKey(v, s.records.Location())
		if err != nil {
			writeBadRequest(w, "invalid from date, expected YYYY-MM-DD")
			return
		}
		from = parsed
	}

	history, err := s.records.History(r.Context(), chi.URLParam(r, "deviceID"), from)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}
