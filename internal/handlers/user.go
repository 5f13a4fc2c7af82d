package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/jason-s-yu/blackjack/internal/database"
	"github.com/jason-s-yu/blackjack/internal/models"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// decodeCredentials accepts a JSON body or a regular form post.
func decodeCredentials(r *http.Request) (credentials, error) {
	var c credentials
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		err := json.NewDecoder(r.Body).Decode(&c)
		return c, err
	}
	if err := r.ParseForm(); err != nil {
		return c, err
	}
	c.Username = r.FormValue("username")
	c.Password = r.FormValue("password")
	return c, nil
}

// CreateUserHandler signs a new user up and logs them in.
//
// Request payload:
//
//	{
//	  "username": "alice",
//	  "password": "optional"
//	}
//
// An empty username is rejected with 400 and a taken one with 409.
func (s *Server) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCredentials(r)
	if err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	user := models.User{Username: req.Username, Password: req.Password}
	if err := s.accounts.CreateUser(r.Context(), &user); err != nil {
		switch {
		case errors.Is(err, database.ErrEmptyUsername):
			http.Error(w, "Please enter a unique username", http.StatusBadRequest)
		case errors.Is(err, database.ErrUsernameTaken):
			http.Error(w, "That username is already in use. Please enter a new one.", http.StatusConflict)
		default:
			s.logger.Errorf("failed to create user: %v", err)
			http.Error(w, "error creating user", http.StatusInternalServerError)
		}
		return
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.logger.Errorf("failed to issue token: %v", err)
		http.Error(w, "error creating session", http.StatusInternalServerError)
		return
	}
	s.setAuthCookie(w, token)

	user.Password = ""
	s.writeJSON(w, http.StatusCreated, loginResponse{Token: token, User: &user})
}

// LoginHandler authenticates a user by username (and password, if the account
// has one) and returns a session token, also set as the auth_token cookie.
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCredentials(r)
	if err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}

	user, err := s.accounts.AuthenticateUser(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrUserNotFound):
			http.Error(w, fmt.Sprintf("User with username: %s not found", req.Username), http.StatusForbidden)
		case errors.Is(err, database.ErrInvalidCredentials):
			http.Error(w, "authentication failed", http.StatusForbidden)
		default:
			s.logger.Errorf("failed to authenticate user: %v", err)
			http.Error(w, "authentication failed", http.StatusInternalServerError)
		}
		return
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.logger.Errorf("failed to issue token: %v", err)
		http.Error(w, "error creating session", http.StatusInternalServerError)
		return
	}
	s.setAuthCookie(w, token)

	user.Password = ""
	s.writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

// LogoutHandler drops the session cookie. The stored round is kept so the
// user can pick it up after logging back in.
func (s *Server) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	s.clearAuthCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// MeHandler returns the authenticated user with their running win count.
func (s *Server) MeHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	user, err := s.accounts.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		s.logger.Errorf("failed to load user %s: %v", userID, err)
		http.Error(w, "error loading user", http.StatusInternalServerError)
		return
	}
	user.Password = ""
	s.writeJSON(w, http.StatusOK, user)
}

// HistoryHandler lists the caller's recently resolved rounds, newest first.
// Rounds show up once the historian has flushed them.
func (s *Server) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	limit, ok := limitParam(w, r, 20)
	if !ok {
		return
	}
	records, err := s.accounts.RoundHistory(r.Context(), userID, limit)
	if err != nil {
		s.logger.Errorf("failed to load round history for %s: %v", userID, err)
		http.Error(w, "error loading history", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []models.RoundResultRecord{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

type leaderboardEntry struct {
	Username string `json:"username"`
	Wins     int    `json:"wins"`
}

// LeaderboardHandler lists the users with the most wins.
func (s *Server) LeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(w, r, 10)
	if !ok {
		return
	}

	users, err := s.accounts.TopWinners(r.Context(), limit)
	if err != nil {
		s.logger.Errorf("failed to load leaderboard: %v", err)
		http.Error(w, "error loading leaderboard", http.StatusInternalServerError)
		return
	}
	entries := make([]leaderboardEntry, len(users))
	for i, u := range users {
		entries[i] = leaderboardEntry{Username: u.Username, Wins: u.Wins}
	}
	s.writeJSON(w, http.StatusOK, entries)
}

// limitParam reads ?limit=, capped at 100. It writes a 400 and returns false
// when the value is not a positive integer.
func limitParam(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		http.Error(w, "invalid limit", http.StatusBadRequest)
		return 0, false
	}
	return min(n, 100), true
}
