package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PayFox/app/repository"
	"github.com/ManuelReschke/PayFox/internal/pkg/authorize"
	"github.com/ManuelReschke/PayFox/internal/pkg/cache"
	"github.com/ManuelReschke/PayFox/internal/pkg/database"
	"github.com/ManuelReschke/PayFox/internal/pkg/env"
	"github.com/ManuelReschke/PayFox/internal/pkg/fraud"
	"github.com/ManuelReschke/PayFox/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/PayFox/internal/pkg/payment"
	"github.com/ManuelReschke/PayFox/internal/pkg/scheduler"
	"github.com/ManuelReschke/PayFox/internal/pkg/webhook"
)

// counterFlushInterval is how often the Redis delivery counters are drained
// into the endpoint totals columns.
const counterFlushInterval = time.Minute

func main() {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	repository.InitializeFactory(database.GetDB())
	repos := repository.GetGlobalFactory().GetRepositories()

	engine := fraud.NewEngine(fraud.DefaultConfig(), repos.Charge)
	simulator := authorize.NewSimulator(nil)
	dispatcher := webhook.NewDispatcher(repos)
	service := payment.NewService(repos, engine, simulator, dispatcher)

	worker := webhook.NewWorker(dispatcher, repos.WebhookEvent, 3)
	worker.Start()

	billing := scheduler.NewBillingScheduler(repos, service, dispatcher)
	billing.Start(scheduler.RunInterval())

	flusherStop := make(chan struct{})
	go counter.StartFlusher(counterFlushInterval, flusherStop)

	log.Info("[PayFox] Payment pipeline running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("[PayFox] Shutting down...")
	billing.Stop()
	worker.Stop()
	close(flusherStop)
	log.Info("[PayFox] Shutdown complete")
}
