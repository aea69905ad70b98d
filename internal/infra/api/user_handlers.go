package api

import (
	"net/http"

	"idea-to-market/internal/domain/model"
	"idea-to-market/internal/usecase"
)

type updateProfileRequest struct {
	Name        *string                 `json:"name"`
	Phone       *string                 `json:"phone"`
	Preferences *model.PreferencesPatch `json:"preferences"`
}

type profileResponse struct {
	User model.PublicUser `json:"user"`
}

type trackRequest struct {
	Event      string         `json:"event"`
	Properties map[string]any `json:"properties"`
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.GetProfile(r.Context(), claimsFrom(r.Context()).UserID)
	if err != nil {
		s.errs.from(w, r, err, "PROFILE_ERROR")
		return
	}
	writeData(w, http.StatusOK, profileResponse{User: user.Public()})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		s.errs.from(w, r, err, "UPDATE_PROFILE_ERROR")
		return
	}
	user, err := s.users.UpdateProfile(r.Context(), claimsFrom(r.Context()).UserID, usecase.ProfileUpdate{
		Name:        req.Name,
		Phone:       req.Phone,
		Preferences: req.Preferences,
	})
	if err != nil {
		s.errs.from(w, r, err, "UPDATE_PROFILE_ERROR")
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    profileResponse{User: user.Public()},
		Message: s.errs.catalog.T(localeFrom(r.Context()), "PROFILE_UPDATED"),
	})
}

func (s *Server) handleGetUsage(w http.ResponseWriter, r *http.Request) {
	rep, err := s.users.GetUsage(r.Context(), claimsFrom(r.Context()).UserID)
	if err != nil {
		s.errs.from(w, r, err, "USAGE_ERROR")
		return
	}
	writeData(w, http.StatusOK, rep)
}

func (s *Server) handleRecordUsage(w http.ResponseWriter, r *http.Request) {
	var feature string
	if err := pathParam(r, "feature", &feature); err != nil {
		s.errs.from(w, r, err, "USAGE_ERROR")
		return
	}
	rep, err := s.users.RecordUsage(r.Context(), claimsFrom(r.Context()).UserID, feature)
	if err != nil {
		s.errs.from(w, r, err, "USAGE_ERROR")
		return
	}
	writeData(w, http.StatusOK, rep)
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := decodeJSON(r, &req); err != nil {
		s.errs.from(w, r, err, "TRACKING_ERROR")
		return
	}
	in := usecase.TrackInput{
		Event:      req.Event,
		Locale:     localeFrom(r.Context()),
		Properties: req.Properties,
		Metadata:   requestMetadata(r, s.cfg.HTTP.TrustProxy),
	}
	if c := claimsFrom(r.Context()); c != nil {
		in.UserID = c.UserID
	}
	if err := s.analytics.Track(r.Context(), in); err != nil {
		s.errs.from(w, r, err, "TRACKING_ERROR")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.analytics.Dashboard(r.Context(), claimsFrom(r.Context()).UserID)
	if err != nil {
		s.errs.from(w, r, err, "DASHBOARD_ERROR")
		return
	}
	writeData(w, http.StatusOK, d)
}
