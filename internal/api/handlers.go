package api

import (
	"encoding/json"
	"net/http"
	"slices"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-notechat/internal/server"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CredentialsRequest is the body of /login and /verifyAndDelete.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AddNoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Email   string `json:"email"`
}

type UpdateSocketRequest struct {
	Email    string `json:"email"`
	SocketId string `json:"socket_id"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type LoginResponse struct {
	Message string `json:"message"`
	User    any    `json:"user"`
}

func (s *GoChatApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *GoChatApp) writeError(w http.ResponseWriter, err error) {
	errResp := errorFromService(err)
	if errResp.StatusCode == http.StatusInternalServerError {
		s.log.Printf("internal error: %v", err)
	}

	s.writeJson(w, errResp.StatusCode, errResp)
}

// sessionOwner returns the session email if it equals email, otherwise it
// writes the error response and returns false.
func (s *GoChatApp) sessionOwner(w http.ResponseWriter, r *http.Request, email string) bool {
	sessionEmail, ok := Email(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return false
	}

	if email == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return false
	}

	if email != sessionEmail {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return false
	}

	return true
}

func (s *GoChatApp) index(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("go-notechat is running"))
}

func (s *GoChatApp) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		s.log.Printf("health check: %v", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("OK"))
}

func (s *GoChatApp) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, err := s.accounts.Register(r.Context(), req.Username, req.Email, req.Password); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, MessageResponse{Message: "User added successfully"})
}

func (s *GoChatApp) login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}

	token, err := s.createJwtForSession(user.EmailAddress, defaultJwtExpiration)
	if err != nil {
		s.writeError(w, err)
		return
	}

	http.SetCookie(w, createJwtCookie(token, defaultJwtExpiration))
	s.writeJson(w, http.StatusOK, LoginResponse{
		Message: "Login successful",
		User:    user,
	})
}

func (s *GoChatApp) logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, expiredJwtCookie())
	w.WriteHeader(http.StatusNoContent)
}

func (s *GoChatApp) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.accounts.ListAll(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, users)
}

func (s *GoChatApp) addNote(w http.ResponseWriter, r *http.Request) {
	var req AddNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !s.sessionOwner(w, r, req.Email) {
		return
	}

	note, err := s.notes.AddNote(r.Context(), req.Title, req.Content, req.Email)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, note)
}

func (s *GoChatApp) getNotes(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if !s.sessionOwner(w, r, email) {
		return
	}

	notes, err := s.notes.ListNotes(r.Context(), email)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, notes)
}

func (s *GoChatApp) deleteNote(w http.ResponseWriter, r *http.Request) {
	email, ok := Email(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.notes.DeleteNote(r.Context(), id, email); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, MessageResponse{Message: "Note deleted successfully"})
}

func (s *GoChatApp) verifyAndDelete(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.accounts.DeleteVerified(r.Context(), req.Email, req.Password); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, MessageResponse{Message: "User deleted successfully"})
}

func (s *GoChatApp) updateSocket(w http.ResponseWriter, r *http.Request) {
	var req UpdateSocketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !s.sessionOwner(w, r, req.Email) {
		return
	}

	if err := s.accounts.UpdateConnection(r.Context(), req.Email, req.SocketId); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, MessageResponse{Message: "Socket updated successfully"})
}

func (s *GoChatApp) serveWs(w http.ResponseWriter, r *http.Request) {
	email, ok := Email(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client, err := server.NewClient(email, conn, s.relay, s.log)
	if err != nil {
		s.log.Println("error creating client:", err)
		conn.Close()
		return
	}

	if !s.relay.RegisterClient(client) {
		conn.Close()
		return
	}

	go client.Write()
	go client.Read()
}
