package main

import (
	"context"
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/mindwell-app/mindwell-backend/internal/adapters/enrichment"
	httpadapter "github.com/mindwell-app/mindwell-backend/internal/adapters/http"
	"github.com/mindwell-app/mindwell-backend/internal/adapters/identity"
	"github.com/mindwell-app/mindwell-backend/internal/adapters/llm"
	firestorestore "github.com/mindwell-app/mindwell-backend/internal/adapters/storage/firestore"
	memstore "github.com/mindwell-app/mindwell-backend/internal/adapters/storage/memory"
	"github.com/mindwell-app/mindwell-backend/internal/app/chat"
	"github.com/mindwell-app/mindwell-backend/internal/app/referrals"
	"github.com/mindwell-app/mindwell-backend/internal/app/reports"
	"github.com/mindwell-app/mindwell-backend/internal/app/sessions"
	"github.com/mindwell-app/mindwell-backend/internal/config"
	"github.com/mindwell-app/mindwell-backend/internal/domain"
	"github.com/mindwell-app/mindwell-backend/internal/keypool"
)

func main() {
	ctx := context.Background()

	// A local .env is optional; real deployments set env vars directly.
	_ = godotenv.Load()

	cfg := config.Load()

	// Upstream LLM: mock or Gemini.
	var llmClient domain.StreamClient
	if cfg.UseMockLLM {
		log.Println("[LLM] Using MOCK LLM client")
		llmClient = llm.NewMockLLM()
	} else {
		log.Printf("[LLM] Using Gemini client (model=%s, keys=%d)", cfg.ModelName, len(cfg.GeminiAPIKeys))
		if len(cfg.GeminiAPIKeys) == 0 {
			log.Println("[LLM] WARNING: no Gemini API keys configured, chat will report unavailable")
		}
		llmClient = llm.NewGeminiClient(cfg.ModelName)
	}

	// Storage: Firestore or Memory. One store implements every port.
	var (
		sessionStore  domain.SessionStore
		reportStore   domain.ReportStore
		referralStore domain.ReferralStore
		profileStore  domain.ProfileStore
	)
	switch cfg.StorageBackend {
	case "firestore":
		log.Printf("[STORE] Using Firestore storage (project=%s)", cfg.GCPProjectID)
		fsStore, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			log.Fatalf("error initializing Firestore store: %v", err)
		}
		sessionStore = fsStore
		reportStore = fsStore
		referralStore = fsStore
		profileStore = fsStore

	default:
		log.Println("[STORE] Using in-memory storage")
		mem := memstore.NewStore()
		sessionStore = mem
		reportStore = mem
		referralStore = mem
		profileStore = mem
	}

	// Identity: Firebase in production, static tokens locally.
	var verifier domain.TokenVerifier
	switch cfg.AuthBackend {
	case "firebase":
		log.Printf("[AUTH] Using Firebase token verification (project=%s)", cfg.GCPProjectID)
		fb, err := identity.NewFirebaseVerifier(ctx, cfg.GCPProjectID)
		if err != nil {
			log.Fatalf("error initializing Firebase auth: %v", err)
		}
		verifier = fb
	default:
		log.Println("[AUTH] Using static token verification (local mode)")
		verifier = identity.NewStaticVerifier()
	}

	// Enrichment: YouTube lookup, disabled without a key.
	var enricher domain.Enricher
	if cfg.YouTubeAPIKey != "" {
		yt, err := enrichment.NewYouTubeClient(ctx, cfg.YouTubeAPIKey)
		if err != nil {
			log.Fatalf("error initializing YouTube client: %v", err)
		}
		enricher = yt
	} else {
		log.Println("[ENRICH] No YouTube API key, video suggestions disabled")
	}

	pool := keypool.New(cfg.GeminiAPIKeys)

	// One upstream call per second sustained, small bursts allowed.
	limiter := rate.NewLimiter(rate.Limit(1), 5)

	dispatcher := chat.NewDispatcher(pool, llmClient, cfg.UpstreamTimeout, limiter)
	reconciler := sessions.NewReconciler(sessionStore, cfg.StorageTimeout)
	chatSvc := chat.NewService(dispatcher, reconciler, enricher, cfg.EnrichTimeout)
	reportSvc := reports.NewService(dispatcher, reportStore, cfg.StorageTimeout)
	referralSvc := referrals.NewService(referralStore, profileStore)

	handler := httpadapter.NewServer(chatSvc, reconciler, reportSvc, referralSvc, verifier)

	addr := ":" + cfg.Port
	log.Println("MindWell API listening on", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatal(err)
	}
}
