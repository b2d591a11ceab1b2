package main

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/equipment-maintenance/internal/auth"
	"github.com/ukydev/equipment-maintenance/internal/db"
	"github.com/ukydev/equipment-maintenance/internal/events"
	"github.com/ukydev/equipment-maintenance/internal/handlers"
	"github.com/ukydev/equipment-maintenance/internal/lifecycle"
	"github.com/ukydev/equipment-maintenance/internal/middleware"
	"github.com/ukydev/equipment-maintenance/internal/websocket"
)

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// buildRouter wires every HTTP route onto a fresh mux.
func buildRouter(engine *lifecycle.Engine, hub *websocket.Hub) *http.ServeMux {
	requestHandler := handlers.NewRequestHandler(engine)
	boardHandler := handlers.NewBoardHandler(engine)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/requests", requestHandler.Requests)
	mux.HandleFunc("/api/requests/", requestHandler.RequestByID)
	mux.HandleFunc("/api/equipment/", requestHandler.EquipmentNextDue)
	mux.HandleFunc("/api/board", boardHandler.Board)
	mux.HandleFunc("/api/board/move", boardHandler.MoveCard)
	mux.HandleFunc("/api/calendar", boardHandler.Calendar)
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		websocket.HandleWebSocket(hub, w, r)
	})
	mux.HandleFunc("/health", healthHandler)
	return mux
}

// wrapMiddleware applies the rate-limit and auth chain around the router.
// Authenticate runs before RequireWriteAccess so claims are already in the
// request context when the role check fires.
func wrapMiddleware(mux http.Handler, authService *auth.Service) http.Handler {
	authMiddleware := middleware.NewAuthMiddleware(authService)
	rateLimiter := middleware.NewRateLimitMiddleware()

	var handler http.Handler = mux
	handler = authMiddleware.RequireWriteAccess(handler)
	handler = authMiddleware.Authenticate(handler)
	handler = rateLimiter.RateLimit(100, 60)(handler)
	return handler
}

// newPublisher picks the event publisher from the environment. Without a
// broker URL events are dropped, which keeps local development broker-free.
func newPublisher() (events.Publisher, error) {
	brokerURL := os.Getenv("MQTT_BROKER_URL")
	if brokerURL == "" {
		return events.NoopPublisher{}, nil
	}
	clientID := os.Getenv("MQTT_CLIENT_ID")
	if clientID == "" {
		clientID = "maintenance-api"
	}
	return events.NewMQTTPublisher(brokerURL, clientID)
}

func main() {
	_ = godotenv.Load()

	client, err := db.ConnectMongo()
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	log.Info("Connected to MongoDB")

	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "equipment_maintenance"
	}
	database := client.Database(dbName)

	requests := &db.MongoRequestCollection{Collection: database.Collection("maintenance_requests")}
	equipment := &db.MongoEquipmentCollection{Collection: database.Collection("equipment")}
	teams := &db.MongoTeamCollection{Collection: database.Collection("teams")}

	publisher, err := newPublisher()
	if err != nil {
		log.WithError(err).Fatal("Failed to connect event publisher")
	}
	defer publisher.Close()

	authService, err := auth.NewService()
	if err != nil {
		log.WithError(err).Fatal("Failed to initialise auth service")
	}

	hub := websocket.NewHub()
	engine := lifecycle.NewEngine(requests, equipment, teams, publisher, hub)

	handler := wrapMiddleware(buildRouter(engine, hub), authService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.WithField("port", port).Info("HTTP server listening")
	log.Fatal(http.ListenAndServe(":"+port, handler))
}
