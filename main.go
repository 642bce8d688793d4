package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/kinforge/kinforgebackend/cache"
	"github.com/kinforge/kinforgebackend/config"
	"github.com/kinforge/kinforgebackend/database"
	"github.com/kinforge/kinforgebackend/handlers"
	"github.com/kinforge/kinforgebackend/provider"
	"github.com/kinforge/kinforgebackend/realtime"
	"github.com/kinforge/kinforgebackend/repository"
	"github.com/kinforge/kinforgebackend/services"
	"github.com/kinforge/kinforgebackend/workers"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	db, err := database.InitGormDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database: %v", err)
	}
	if err := database.AutoMigrateModels(db); err != nil {
		log.Fatalf("FATAL: Failed to migrate database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("FATAL: Failed to get underlying sql.DB: %v", err)
	}

	personRepo := repository.NewPersonRepository(db)
	identityRepo := repository.NewIdentityRepository(db)
	eventRepo := repository.NewEventRepository(db)
	claimRepo := repository.NewClaimRepository(db)
	edgeRepo := repository.NewEdgeRepository(db)
	overrideRepo := repository.NewOverrideRepository(db)
	payloadRepo := repository.NewPayloadRepository(db)

	queryCache := cache.New(cfg.CacheCapacity, cfg.CacheTTL)
	log.Printf("Query cache initialized (capacity=%d, ttl=%s)", cfg.CacheCapacity, cfg.CacheTTL)

	identityService := services.NewIdentityService(personRepo, identityRepo, cfg.DefaultProvider)
	overrideService := services.NewOverrideService(overrideRepo, eventRepo, claimRepo, personRepo)
	integrityService := services.NewIntegrityService(sqlDB, queryCache, cfg.StalePayloadAge)

	hub := realtime.NewHub()
	go hub.Run()

	providerClient := provider.NewHTTPClient(cfg.FetchBaseURL, cfg.FetchPerSecond)
	indexer := workers.NewIndexer(db, sqlDB, identityService, payloadRepo, providerClient, hub, queryCache, cfg.StalePayloadAge)

	log.Printf("Using database: %s", cfg.DatabasePath)
	log.Printf("Default provider: %s, crawl depth: %d generations", cfg.DefaultProvider, cfg.MaxGenerations)

	r := chi.NewRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"}, //TODO: configurable
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}

	corsHandler := cors.New(corsOptions)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsHandler.Handler)

	personHandler := &handlers.PersonHandler{PersonRepo: personRepo, Overrides: overrideService, Identity: identityService, Cache: queryCache}
	overrideHandler := &handlers.OverrideHandler{Overrides: overrideService, Cache: queryCache}
	graphHandler := &handlers.GraphHandler{EdgeRepo: edgeRepo, Cache: queryCache}
	indexHandler := &handlers.IndexHandler{Indexer: indexer}
	integrityHandler := &handlers.IntegrityHandler{Integrity: integrityService}

	r.Route("/api", func(r chi.Router) {
		r.Route("/people", func(r chi.Router) {
			r.Get("/", personHandler.ListPeople)
			r.Get("/search", personHandler.SearchPeople)
			r.Route("/{person_id}", func(r chi.Router) {
				r.Get("/", personHandler.GetPerson)
				r.Get("/identities", personHandler.GetIdentities)
				r.Get("/overrides", personHandler.GetOverrides)
				r.Post("/events/override", overrideHandler.SetEventOverride)
			})
		})

		r.Route("/overrides", func(r chi.Router) {
			r.Post("/", overrideHandler.SetOverride)
			r.Delete("/{entity_type}/{entity_id}/{field_name}", overrideHandler.RemoveOverride)
		})

		r.Route("/graph", func(r chi.Router) {
			r.Get("/paths/shortest", graphHandler.ShortestPath)
			r.Get("/paths/longest", graphHandler.LongestPath)
			r.Get("/paths/random", graphHandler.RandomPath)
			r.Get("/tree", graphHandler.Tree)
		})

		r.Route("/index", func(r chi.Router) {
			r.Post("/", indexHandler.StartIndexing)
			r.Get("/status", indexHandler.JobStatus)
			r.Post("/cancel", indexHandler.CancelJob)
			r.Post("/discover", indexHandler.StartDiscovery)
		})

		r.Route("/integrity", func(r chi.Router) {
			r.Get("/summary", integrityHandler.Summary)
			r.Get("/coverage", integrityHandler.CoverageGaps)
			r.Get("/linkage", integrityHandler.LinkageGaps)
			r.Get("/orphans", integrityHandler.OrphanedEdges)
			r.Get("/stale", integrityHandler.StalePayloads)
			r.Get("/cache", integrityHandler.CacheStats)
		})
	})

	r.Get("/ws/progress", hub.ServeWS)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	serverAddr := ":" + port
	log.Printf("Server listening on %s", serverAddr)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.Fatal(server.ListenAndServe())
}
