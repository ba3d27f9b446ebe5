package main

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/joho/godotenv"

	"github.com/baitline/baitline/pkg/agent"
	"github.com/baitline/baitline/pkg/callback"
	"github.com/baitline/baitline/pkg/config"
	"github.com/baitline/baitline/pkg/detect"
	"github.com/baitline/baitline/pkg/engage"
	"github.com/baitline/baitline/pkg/intel"
	"github.com/baitline/baitline/pkg/ratelimit"
	"github.com/baitline/baitline/pkg/session"
)

const Version = "0.1.0"

const maxBatchSize = 100

// buildDetector assembles the scoring engine, loading optional extra
// pattern rules from disk.
func buildDetector(cfg *config.Config) *detect.Engine {
	engine := detect.NewEngine(cfg.ScamThreshold)

	if cfg.PatternRulesPath != "" {
		if err := engine.LoadPatternRules(cfg.PatternRulesPath); err != nil {
			log.Printf("○ Extra pattern rules disabled (%v)", err)
		} else {
			log.Printf("✓ Extra pattern rules loaded from %s", cfg.PatternRulesPath)
		}
	}

	if engine.StatisticalReady() {
		log.Println("✓ Statistical detector trained")
	} else {
		log.Println("○ Statistical detector untrained (contributes zero)")
	}
	return engine
}

// buildResponder assembles the engagement engine, loading an optional
// strategy pack over the built-ins.
func buildResponder(cfg *config.Config) *engage.Engine {
	pack := engage.DefaultPack()
	if cfg.StrategyPackPath != "" {
		loaded, err := engage.LoadPack(cfg.StrategyPackPath)
		if err != nil {
			log.Printf("○ Strategy pack ignored (%v), using built-ins", err)
		} else {
			pack = loaded
			log.Printf("✓ Strategy pack loaded from %s", cfg.StrategyPackPath)
		}
	}
	return engage.NewEngine(pack)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		port := ""
		if len(os.Args) > 2 {
			port = os.Args[2]
		}
		runHTTPServer(port)
	case "scan":
		if len(os.Args) < 3 {
			fmt.Println("Usage: baitline scan <text>")
			os.Exit(1)
		}
		runCLIScan(strings.Join(os.Args[2:], " "))
	case "version":
		fmt.Printf("Baitline v%s\n", Version)
		fmt.Println("Scam Engagement Honeypot")
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("Baitline v%s - Scam Engagement Honeypot\n\n", Version)
	fmt.Println("Usage:")
	fmt.Println("  baitline serve [port]   Start HTTP gateway (default: 8080)")
	fmt.Println("  baitline scan <text>    Score a single message and extract artifacts")
	fmt.Println("  baitline version        Show version")
	fmt.Println("")
	fmt.Println("Examples:")
	fmt.Println("  baitline serve 8080")
	fmt.Println("  baitline scan \"Your account will be blocked. Verify immediately.\"")
	fmt.Println("")
	fmt.Println("Environment Variables:")
	fmt.Println("  BAITLINE_API_KEY        API key required on /api routes")
	fmt.Println("  BAITLINE_CALLBACK_URL   Evaluation collector endpoint")
	fmt.Println("  BAITLINE_REDIS_ADDR     Redis for the rate limiter (optional)")
	fmt.Println("  BAITLINE_STRATEGY_PACK  YAML strategy pack overriding built-ins")
	fmt.Println("  BAITLINE_PATTERN_RULES  YAML file with extra scam pattern rules")
}

// ============================================================================
// HTTP Server Mode
// ============================================================================

func runHTTPServer(port string) {
	cfg := config.NewDefaultConfig()
	if port != "" {
		cfg.ListenPort = port
	}
	cfg.MustValidate()

	a := agent.New(cfg, buildDetector(cfg), buildResponder(cfg))
	defer a.Close()

	limiter := ratelimit.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RateLimitPerMin, time.Minute)
	if cfg.RedisAddr != "" {
		log.Printf("✓ Rate limiter configured (%d req/min, redis %s)", cfg.RateLimitPerMin, cfg.RedisAddr)
	} else {
		log.Printf("○ Rate limiter in-memory (%d req/min, no redis configured)", cfg.RateLimitPerMin)
	}
	if cfg.CallbackURL != "" {
		log.Printf("✓ Final reports will be delivered to %s", cfg.CallbackURL)
	} else {
		log.Println("○ No collector URL configured; terminated sessions will not be reported")
	}

	app := fiber.New(fiber.Config{
		AppName: "Baitline",
	})

	// Health check, unauthenticated.
	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "version": Version})
	})

	app.Get("/dashboard", func(c fiber.Ctx) error {
		c.Set("Content-Type", "text/html; charset=utf-8")
		return c.SendString(dashboardHTML)
	})

	api := app.Group("/api", rateLimitMiddleware(limiter), authMiddleware(cfg.APIKey))

	// One conversation turn: score, engage, extract, maybe terminate.
	api.Post("/message", func(c fiber.Ctx) error {
		var req agent.Request
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}
		return c.JSON(a.ProcessMessage(c.Context(), req))
	})

	// Stateless scoring of independent texts; no sessions are touched.
	api.Post("/detect/batch", func(c fiber.Ctx) error {
		var req struct {
			Texts []string `json:"texts"`
		}
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}
		if len(req.Texts) == 0 {
			return c.Status(400).JSON(fiber.Map{"error": "texts field is required"})
		}
		if len(req.Texts) > maxBatchSize {
			return c.Status(400).JSON(fiber.Map{"error": fmt.Sprintf("at most %d texts per batch", maxBatchSize)})
		}
		return c.JSON(fiber.Map{"results": a.DetectBatch(req.Texts)})
	})

	api.Get("/session/:id", func(c fiber.Ctx) error {
		status, err := a.SessionStatus(c.Params("id"))
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				return c.Status(404).JSON(fiber.Map{"error": "session not found"})
			}
			return c.Status(500).JSON(fiber.Map{"error": "internal error"})
		}
		return c.JSON(status)
	})

	// Operator-triggered end: closes the session and delivers (or
	// re-delivers) the final report synchronously.
	api.Post("/session/:id/end", func(c fiber.Ctx) error {
		status, err := a.EndSession(c.Context(), c.Params("id"))
		switch {
		case errors.Is(err, session.ErrNotFound):
			return c.Status(404).JSON(fiber.Map{"error": "session not found"})
		case errors.Is(err, callback.ErrValidation):
			return c.Status(409).JSON(fiber.Map{"error": err.Error(), "session": status})
		case err != nil:
			return c.Status(502).JSON(fiber.Map{"error": err.Error(), "session": status})
		}
		return c.JSON(status)
	})

	api.Get("/stats", func(c fiber.Ctx) error {
		return c.JSON(a.Stats())
	})

	log.Printf("Baitline gateway starting on :%s", cfg.ListenPort)
	log.Printf("Endpoints:")
	log.Printf("  GET  /health               - Health check")
	log.Printf("  GET  /dashboard            - Minimal status page")
	log.Printf("  POST /api/message          - Process one conversation turn")
	log.Printf("  POST /api/detect/batch     - Score texts without side effects")
	log.Printf("  GET  /api/session/:id      - Session status")
	log.Printf("  POST /api/session/:id/end  - End a session and send its report")
	log.Printf("  GET  /api/stats            - Service counters")

	if err := app.Listen(":" + cfg.ListenPort); err != nil {
		log.Fatal(err)
	}
}

// authMiddleware requires the configured API key on every /api route.
// An empty configured key (development) disables the check.
func authMiddleware(apiKey string) fiber.Handler {
	if apiKey == "" {
		log.Println("○ API authentication disabled (BAITLINE_API_KEY not set)")
		return func(c fiber.Ctx) error {
			return c.Next()
		}
	}
	want := []byte(apiKey)
	return func(c fiber.Ctx) error {
		got := []byte(c.Get("X-API-Key"))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			return c.Status(401).JSON(fiber.Map{"error": "unauthorized"})
		}
		return c.Next()
	}
}

// rateLimitMiddleware throttles by client IP. Limiter errors fail open;
// losing rate limiting is better than dropping scammer traffic.
func rateLimitMiddleware(limiter ratelimit.Limiter) fiber.Handler {
	return func(c fiber.Ctx) error {
		ok, err := limiter.Allow(c.Context(), c.IP())
		if err != nil {
			log.Printf("[WARN] rate limiter error: %v", err)
			return c.Next()
		}
		if !ok {
			return c.Status(429).JSON(fiber.Map{"error": "rate limit exceeded"})
		}
		return c.Next()
	}
}

// ============================================================================
// CLI Mode
// ============================================================================

func runCLIScan(text string) {
	cfg := config.NewDefaultConfig()
	detector := buildDetector(cfg)

	result := detector.Detect(text, nil)
	artifacts := intel.Extract([]string{text})

	out, _ := json.MarshalIndent(struct {
		Detection detect.Result      `json:"detection"`
		Artifacts *intel.Intelligence `json:"artifacts"`
	}{result, artifacts}, "", "  ")
	fmt.Println(string(out))
}

const dashboardHTML = `<!DOCTYPE html>
<html>
<head>
<title>Baitline</title>
<style>
body { font-family: monospace; background: #111; color: #ddd; margin: 2em; }
h1 { color: #7fd4a0; }
pre { background: #1a1a1a; padding: 1em; border-radius: 4px; }
</style>
</head>
<body>
<h1>Baitline</h1>
<p>Scam engagement honeypot. Live counters:</p>
<pre id="stats">loading...</pre>
<script>
fetch('/api/stats')
  .then(function (r) { return r.json(); })
  .then(function (s) { document.getElementById('stats').textContent = JSON.stringify(s, null, 2); })
  .catch(function (e) { document.getElementById('stats').textContent = 'stats unavailable: ' + e; });
</script>
</body>
</html>
`
