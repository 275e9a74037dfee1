package main

import (
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/xisxus/ConnectApp/internal/auth"
	"github.com/xisxus/ConnectApp/internal/handlers"
	"github.com/xisxus/ConnectApp/internal/middleware"
	"github.com/xisxus/ConnectApp/internal/store/sqlstore"
	"github.com/xisxus/ConnectApp/internal/ws"
)

var (
	addr     = flag.String("addr", ":8080", "http service address")
	dbDriver = flag.String("db-driver", "sqlite3", "database driver: sqlite3 or postgres")
	dsn      = flag.String("dsn", "connectapp.db", "database connection string")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	store, err := sqlstore.New(*dbDriver, *dsn)
	if err != nil {
		log.Fatal(err)
	}

	hub := ws.NewHub(store)

	authHandler := &handlers.AuthHandler{Store: store}
	chatHandler := &handlers.ChatHandler{Hub: hub}

	r := mux.NewRouter()
	r.Use(loggingMiddleware)

	// API Endpoints
	r.HandleFunc("/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/users/search", authHandler.SearchUsers).Methods("GET")
	r.Handle("/messages/public", middleware.AuthMiddleware(http.HandlerFunc(chatHandler.GetPublicMessages))).Methods("GET")
	r.Handle("/messages/private/{user}", middleware.AuthMiddleware(http.HandlerFunc(chatHandler.GetPrivateMessages))).Methods("GET")
	r.Handle("/messages/group/{name}", middleware.AuthMiddleware(http.HandlerFunc(chatHandler.GetGroupMessages))).Methods("GET")
	r.Handle("/groups", middleware.AuthMiddleware(http.HandlerFunc(chatHandler.GetGroups))).Methods("GET")

	// WebSocket Endpoint
	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(auth.IdentityCookie)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		username, err := auth.VerifyIdentity(cookie.Value)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ws.ServeWs(hub, w, r, username)
	})

	// Serve the single-page client
	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, "static/index.html")
	})
	r.PathPrefix("/").Handler(http.FileServer(http.Dir("static")))

	log.Println("Starting server on", *addr)
	log.Fatal(http.ListenAndServe(*addr, r))
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}
