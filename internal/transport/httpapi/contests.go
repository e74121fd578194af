package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ahrav/go-gavel-contests/internal/application"
	"github.com/ahrav/go-gavel-contests/internal/domain"
)

func (s *Server) assignJudges(w http.ResponseWriter, r *http.Request) {
	var in application.AssignJudgesInput
	if err := readJSON(w, r, &in); err != nil {
		writeErrorCode(w, r, http.StatusBadRequest, CodeBadJSON, err.Error(), nil)
		return
	}
	in.ContestID = chi.URLParam(r, "contestID")

	active, err := s.engine.AssignJudges(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"judges": active})
}

func (s *Server) getContestJudges(w http.ResponseWriter, r *http.Request) {
	active, err := s.engine.GetContestJudges(r.Context(), chi.URLParam(r, "contestID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"judges": active})
}

func (s *Server) getJudgeHistory(w http.ResponseWriter, r *http.Request) {
	all, err := s.engine.GetJudgeAssignmentHistory(r.Context(), chi.URLParam(r, "contestID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assignments": all})
}

func (s *Server) selectContestWinners(w http.ResponseWriter, r *http.Request) {
	var criteria domain.SelectionCriteria
	if err := readJSON(w, r, &criteria); err != nil {
		writeErrorCode(w, r, http.StatusBadRequest, CodeBadJSON, err.Error(), nil)
		return
	}
	res, err := s.engine.SelectContestWinners(r.Context(), chi.URLParam(r, "contestID"), criteria)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) selectGiveawayWinners(w http.ResponseWriter, r *http.Request) {
	var criteria domain.SelectionCriteria
	if err := readJSON(w, r, &criteria); err != nil {
		writeErrorCode(w, r, http.StatusBadRequest, CodeBadJSON, err.Error(), nil)
		return
	}
	res, err := s.engine.SelectGiveawayWinners(r.Context(), chi.URLParam(r, "giveawayID"), criteria)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) winnerStats(kind, param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := s.engine.GetWinnerStats(r.Context(), kind, chi.URLParam(r, param))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ws)
	}
}
