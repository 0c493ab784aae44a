package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/hyunlab/swarm-arena/game/service"
)

// AddrInfo describes the currently discovered reachable address.
type AddrInfo struct {
	IP     string
	WSPort int
}

// AddrFunc returns the current address info; ok is false while none has been
// discovered yet.
type AddrFunc func() (AddrInfo, bool)

// Server is the auxiliary HTTP server: address info, diagnostics, health.
type Server struct {
	service service.RelayService
	addr    AddrFunc
	router  *mux.Router
}

// NewServer builds the API router. addr may be nil when address discovery is
// disabled.
func NewServer(svc service.RelayService, addr AddrFunc) *Server {
	s := &Server{
		service: svc,
		addr:    addr,
		router:  mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(corsMiddleware)

	api.HandleFunc("/ip", s.handleIP).Methods("GET")
	api.HandleFunc("/state", s.handleState).Methods("GET")
	api.HandleFunc("/clients", s.handleClients).Methods("GET")

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// handleIP reports the discovered address so the game page can show guests
// where to connect.
func (s *Server) handleIP(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"success":   true,
		"timestamp": time.Now().UnixMilli(),
	}

	if s.addr != nil {
		if info, ok := s.addr(); ok {
			resp["remoteAddress"] = info.IP
			resp["port"] = info.WSPort
			resp["wsUrl"] = "ws://" + info.IP + ":" + strconv.Itoa(info.WSPort)
			resp["localUrl"] = "ws://localhost:" + strconv.Itoa(info.WSPort)
			respondJSON(w, http.StatusOK, resp)
			return
		}
	}

	resp["remoteAddress"] = nil
	resp["wsUrl"] = nil
	respondJSON(w, http.StatusOK, resp)
}

// handleState exposes the authoritative snapshot for diagnostics.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.service.Snapshot())
}

// handleClients lists the connected participants.
func (s *Server) handleClients(w http.ResponseWriter, r *http.Request) {
	type clientInfo struct {
		ClientID string `json:"clientId"`
		PlayerID string `json:"playerId"`
		IsHost   bool   `json:"isHost"`
	}

	participants := s.service.Participants()
	clients := make([]clientInfo, 0, len(participants))
	for _, p := range participants {
		clients = append(clients, clientInfo{
			ClientID: p.ClientID,
			PlayerID: p.EntityID,
			IsHost:   p.IsHost,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(clients),
		"clients": clients,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// AssetHandler serves the game's static files from dir. Every request
// touches the activity clock; touch may be nil.
func AssetHandler(dir string, touch func()) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if touch != nil {
			touch()
		}
		fs.ServeHTTP(w, r)
	})
}
