package main

import (
	"log"
	"net/http"

	"github.com/forkful/gateway/internal/config"
	"github.com/forkful/gateway/internal/handlers"
	"github.com/forkful/gateway/internal/infrastructure/redis"
	"github.com/forkful/gateway/internal/middleware"
	"github.com/forkful/gateway/internal/services/proxy"
	"github.com/forkful/gateway/internal/services/refresh"
	"github.com/gorilla/mux"
)

func main() {
	redisService := redis.NewService()
	if redisService != nil {
		defer redisService.Close()
	}

	upstreamBase := config.GetUpstreamBaseURL()
	timeout := config.GetUpstreamTimeout()

	coordinator := refresh.NewCoordinator(upstreamBase, timeout, redisService)
	forwarder := proxy.NewForwarder(upstreamBase, timeout)

	r := setupRouter(coordinator, forwarder)

	addr := config.GetListenAddr()
	log.Println("Gateway starting on " + addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal("ListenAndServe error:", err)
	}
}

func setupRouter(coordinator *refresh.Coordinator, forwarder *proxy.Forwarder) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Recover(), middleware.RequestLog())

	proxyHandler := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		handlers.HandleProxy(coordinator, forwarder, w, req)
	})
	r.PathPrefix(proxy.Prefix + "/").Handler(middleware.RateLimit("proxy")(proxyHandler))

	validateHandler := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		handlers.HandleValidate(coordinator, w, req)
	})
	r.Handle("/api/auth/validate", middleware.RateLimit("auth_validate")(validateHandler)).Methods("POST")

	r.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, req *http.Request) {
		handlers.HandleLogout(coordinator, w, req)
	}).Methods("POST")

	r.HandleFunc("/healthz", handlers.HandleHealth).Methods("GET")

	return r
}
