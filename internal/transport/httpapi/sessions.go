package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ahrav/go-gavel-contests/internal/application"
)

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var in application.CreateSessionInput
	if err := readJSON(w, r, &in); err != nil {
		writeErrorCode(w, r, http.StatusBadRequest, CodeBadJSON, err.Error(), nil)
		return
	}
	sess, err := s.engine.CreateJudgingSession(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.engine.GetJudgingSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// submitScore takes the session from the path; a session_id in the body
// is overwritten.
func (s *Server) submitScore(w http.ResponseWriter, r *http.Request) {
	var in application.SubmitScoreInput
	if err := readJSON(w, r, &in); err != nil {
		writeErrorCode(w, r, http.StatusBadRequest, CodeBadJSON, err.Error(), nil)
		return
	}
	in.SessionID = chi.URLParam(r, "sessionID")

	score, err := s.engine.SubmitJudgeScore(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, score)
}

func (s *Server) getResults(w http.ResponseWriter, r *http.Request) {
	res, found, err := s.engine.GetSessionResults(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !found {
		writeErrorCode(w, r, http.StatusNotFound, CodeNotFound, "no scores submitted yet", nil)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) getJudgeScore(w http.ResponseWriter, r *http.Request) {
	score, err := s.engine.GetJudgeScore(r.Context(), chi.URLParam(r, "submissionID"), chi.URLParam(r, "judgeID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, score)
}

func (s *Server) addComment(w http.ResponseWriter, r *http.Request) {
	var in application.CommentInput
	if err := readJSON(w, r, &in); err != nil {
		writeErrorCode(w, r, http.StatusBadRequest, CodeBadJSON, err.Error(), nil)
		return
	}
	in.SessionID = chi.URLParam(r, "sessionID")

	entry, err := s.engine.AddDiscussionComment(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// getDiscussion shows the thread as seen by the judge_id query parameter.
func (s *Server) getDiscussion(w http.ResponseWriter, r *http.Request) {
	entries, err := s.engine.GetSessionDiscussion(r.Context(), chi.URLParam(r, "sessionID"), r.URL.Query().Get("judge_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
