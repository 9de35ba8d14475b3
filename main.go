package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bounty-hunter-agent/handlers"
	"bounty-hunter-agent/middleware"
	"bounty-hunter-agent/models"
	"bounty-hunter-agent/services"
	"bounty-hunter-agent/utils"
	"bounty-hunter-agent/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// evmChainConfig maps each EVM chain to its env vars and chain ID.
var evmChainConfig = []struct {
	Chain   models.Chain
	RPCEnv  string
	ChainID int64
}{
	{models.ChainEthereum, "ETHEREUM_RPC_URL", 1},
	{models.ChainPolygon, "POLYGON_RPC_URL", 137},
	{models.ChainArbitrum, "ARBITRUM_RPC_URL", 42161},
	{models.ChainOptimism, "OPTIMISM_RPC_URL", 10},
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{})

	// 🔐 GLOBAL: only Gateway requests allowed
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Session-Token, X-User-ID",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Bounty{},
		&models.HunterUser{},
		&models.ClaimTransaction{},
		&models.AgentLog{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	demoMode := envBool("DEMO_MODE", true)
	failOpen := envBool("VALIDATION_FAIL_OPEN", false)

	submitters := buildSubmitters()
	claimer := services.NewClaimingService(submitters, demoMode, failOpen)
	notifier := services.NewNotificationService()
	source := services.NewHTTPListingSource()

	agentOpts := []services.AgentOption{
		services.WithClaimDelay(time.Duration(envInt("CLAIM_DELAY_MS", 2000)) * time.Millisecond),
		services.WithOnChainValidation(envBool("VALIDATE_ON_CHAIN", true)),
	}

	// Cycle reports are archived to R2 when the bucket is configured
	if os.Getenv("R2_BUCKET_NAME") != "" {
		if err := utils.InitR2(); err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		agentOpts = append(agentOpts, services.WithArchiver(reportArchiver{}))
	}

	agent := services.NewBountyAgent(db, source, claimer, notifier, agentOpts...)
	bountyService := services.NewBountyService(db, agent)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go workers.PollExpiredBounties(ctx, db, 1*time.Minute)

	cycleInterval := time.Duration(envInt("AGENT_CYCLE_MINUTES", 30)) * time.Minute
	sched, err := services.StartCycleScheduler(agent, cycleInterval)
	if err != nil {
		log.Fatal("failed to start cycle scheduler:", err)
	}
	defer func() { _ = sched.Shutdown() }()

	handlers.SetupAgentRoutes(app, bountyService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Printf("✅ Cycle scheduler running (every %s)", cycleInterval)
	log.Println("✅ Bounty expiry polling running (every 1m)")
	log.Printf("✅ Demo mode: %t | Validation fail-open: %t", demoMode, failOpen)
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}

// buildSubmitters wires one claim backend per configured chain. A chain
// without an RPC URL is skipped; in demo mode missing backends fall back
// to simulated claims inside the claiming service.
func buildSubmitters() map[models.Chain]services.ChainSubmitter {
	submitters := make(map[models.Chain]services.ChainSubmitter)

	privKey := os.Getenv("AGENT_PRIVATE_KEY")
	for _, cfg := range evmChainConfig {
		endpoint := os.Getenv(cfg.RPCEnv)
		if endpoint == "" {
			continue
		}
		contract := os.Getenv("CLAIM_CONTRACT_" + strings.ToUpper(string(cfg.Chain)))
		if contract == "" {
			contract = os.Getenv("CLAIM_CONTRACT_ADDRESS")
		}
		if contract == "" || privKey == "" {
			log.Printf("⚠️ %s: RPC configured but contract/key missing, skipping", cfg.Chain)
			continue
		}

		submitter, err := services.DialEVMSubmitter(endpoint, contract, privKey, cfg.ChainID)
		if err != nil {
			log.Printf("⚠️ %s connection failed: %v", cfg.Chain, err)
			continue
		}
		submitters[cfg.Chain] = submitter
		log.Printf("✅ %s claim backend ready", cfg.Chain)
	}

	if solanaRPC := os.Getenv("SOLANA_RPC_URL"); solanaRPC != "" {
		// Solana key custody stays external; without a signer every claim
		// errors, which demo mode downgrades to a simulated result.
		submitters[models.ChainSolana] = services.NewSolanaSubmitter(solanaRPC, nil)
		log.Println("✅ solana claim backend ready")
	}

	return submitters
}

// reportArchiver adapts the R2 uploader to the agent's archiver contract.
type reportArchiver struct {
	r2 utils.R2ReportArchiver
}

func (a reportArchiver) ArchiveReport(ctx context.Context, report *services.CycleReport) error {
	return a.r2.ArchiveReport(ctx, report)
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v == "true" || v == "1"
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
