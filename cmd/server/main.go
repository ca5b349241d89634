// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/dropfour/connect4/internal/auth"
	"github.com/dropfour/connect4/internal/database"
	"github.com/dropfour/connect4/internal/handlers"
	"github.com/dropfour/connect4/internal/history"
	"github.com/dropfour/connect4/internal/middleware"
)

func main() {
	auth.Init()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	srv := handlers.NewServer(logger)
	srv.Recorder = database.Connect(context.Background(), logger)
	srv.History = history.Connect(logger)

	mux := http.NewServeMux()

	// game websocket
	mux.Handle("/ws", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.WSHandler(logger, srv),
	)))

	// standalone position analysis
	mux.Handle("/analyse/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.AnalyseHandler(srv),
	)))

	// client assets
	mux.Handle("/", http.FileServer(http.Dir("static")))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
