package main

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/ollkyy/scoutbot/internal/api"
	"github.com/ollkyy/scoutbot/internal/bot"
	"github.com/ollkyy/scoutbot/internal/db"
	"github.com/ollkyy/scoutbot/internal/middleware"
	"github.com/ollkyy/scoutbot/internal/records"
	"github.com/ollkyy/scoutbot/internal/services"
	"github.com/ollkyy/scoutbot/internal/transport"
	"github.com/ollkyy/scoutbot/internal/utils"
)

func main() {
	token := os.Getenv("BOT_TOKEN")
	if token == "" {
		log.Fatal("BOT_TOKEN is required")
	}
	reviewers := utils.ParseIdentityList(os.Getenv("ADMIN_IDS"))
	if len(reviewers) == 0 {
		log.Printf("warning: ADMIN_IDS is empty, submissions will reach no reviewers")
	}

	store, err := openStore()
	if err != nil {
		log.Fatalf("open record store: %v", err)
	}

	tg, err := transport.NewTelegram(token)
	if err != nil {
		log.Fatalf("connect transport: %v", err)
	}
	log.Printf("authorized as @%s", tg.Username())

	convo := services.NewConversationService()
	review := services.NewReviewService(store, tg, reviewers)

	if addr := os.Getenv("SCOUTBOT_ADMIN_ADDR"); addr != "" {
		startAdminAPI(addr, review)
	}

	bot.NewDispatcher(tg, convo, review, reviewers).Run()
}

func openStore() (services.DecisionStore, error) {
	if path := os.Getenv("SCOUTBOT_SQLITE_PATH"); path != "" {
		return db.Open(path)
	}
	var retention time.Duration
	if raw := os.Getenv("SCOUTBOT_RETENTION_HOURS"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil {
			log.Printf("config: invalid SCOUTBOT_RETENTION_HOURS=%q, keeping unbounded retention", raw)
		} else {
			retention = time.Duration(hours) * time.Hour
		}
	}
	return records.OpenFileStore(utils.SafeEnv("SCOUTBOT_DATA_DIR", "."), retention)
}

func startAdminAPI(addr string, review *services.ReviewService) {
	pass := os.Getenv("SCOUTBOT_ADMIN_PASSWORD")
	if pass == "" {
		log.Printf("SCOUTBOT_ADMIN_ADDR is set but SCOUTBOT_ADMIN_PASSWORD is empty, admin API disabled")
		return
	}
	router, err := api.NewRouter(review, pass)
	if err != nil {
		log.Printf("admin API disabled: %v", err)
		return
	}
	mux := http.NewServeMux()
	router.Register(mux)
	go func() {
		log.Printf("admin API listening on %s", addr)
		if err := http.ListenAndServe(addr, middleware.WithAuth(mux)); err != nil {
			log.Printf("admin API server: %v", err)
		}
	}()
}
