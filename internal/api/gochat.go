package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/npezzotti/go-notechat/internal/config"
	"github.com/npezzotti/go-notechat/internal/database"
	"github.com/npezzotti/go-notechat/internal/server"
	"github.com/npezzotti/go-notechat/internal/service"
)

type GoChatApp struct {
	log            *log.Logger
	db             database.NotesRepository
	accounts       *service.AccountService
	notes          *service.NoteService
	relay          *server.Relay
	srv            *http.Server
	signingKey     []byte
	allowedOrigins []string
}

func NewGoChatApp(mux *http.ServeMux, logger *log.Logger, relay *server.Relay, db database.NotesRepository, cfg *config.Config) *GoChatApp {
	s := &GoChatApp{
		log:            logger,
		db:             db,
		accounts:       service.NewAccountService(db),
		notes:          service.NewNoteService(db),
		relay:          relay,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("GET /{$}", s.index)
	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("POST /register", s.register)
	mux.HandleFunc("POST /login", s.login)
	mux.HandleFunc("GET /logout", s.logout)
	mux.HandleFunc("POST /verifyAndDelete", s.verifyAndDelete)
	mux.HandleFunc("GET /users", s.authMiddleware(s.listUsers))
	mux.HandleFunc("POST /addNote", s.authMiddleware(s.addNote))
	mux.HandleFunc("GET /getNotes", s.authMiddleware(s.getNotes))
	mux.HandleFunc("DELETE /deleteNote/{id}", s.authMiddleware(s.deleteNote))
	mux.HandleFunc("POST /update-socket", s.authMiddleware(s.updateSocket))
	mux.HandleFunc("GET /ws", s.authMiddleware(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	s.srv = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	return s
}

func (s *GoChatApp) Start() error {
	s.log.Printf("starting server on %s\n", s.srv.Addr)
	return s.srv.ListenAndServe()
}

func (s *GoChatApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
