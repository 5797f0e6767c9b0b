package main

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"storefront-gateway/internal/catalog"
	"storefront-gateway/internal/checkout"
	"storefront-gateway/internal/upstream"
	"storefront-gateway/pkg/cache"
)

const sessionCookie = "shop_session-id"

var (
	rateLimiters = make(map[string]*rate.Limiter)
	rateMutex    = &sync.RWMutex{}
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8085"
	}
	upstreamURL := os.Getenv("UPSTREAM_URL")
	if upstreamURL == "" {
		upstreamURL = "http://localhost:3000"
	}
	shippingFee := 0.0
	if fee := os.Getenv("SHIPPING_FEE"); fee != "" {
		if f, err := strconv.ParseFloat(fee, 64); err == nil {
			shippingFee = f
		}
	}
	debounce := 300 * time.Millisecond
	if ms := os.Getenv("SEARCH_DEBOUNCE_MS"); ms != "" {
		if n, err := strconv.Atoi(ms); err == nil && n > 0 {
			debounce = time.Duration(n) * time.Millisecond
		}
	}
	challengeURL := os.Getenv("CHALLENGE_URL")

	client := upstream.NewClient(upstreamURL)
	redisCache := cache.NewRedisCache()

	sessions := newSessionRegistry(sessionConfig{
		client:       client,
		cache:        redisCache,
		shippingFee:  shippingFee,
		debounce:     debounce,
		challengeURL: challengeURL,
		idleTTL:      30 * time.Minute,
	})
	go sessions.janitor()

	r := gin.Default()

	// Add CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Add request ID middleware
	r.Use(func(c *gin.Context) {
		requestID := fmt.Sprintf("%d", time.Now().UnixNano())
		c.Header("X-Request-ID", requestID)
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"req_id": requestID,
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		}).Infof("handled in %v", time.Since(start))
	})

	r.Use(rateLimitMiddleware())

	// Enhanced health check with cache status
	r.GET("/health", func(c *gin.Context) {
		health := gin.H{
			"status":   "healthy",
			"service":  "storefront-gateway",
			"version":  "1.0.0",
			"upstream": upstreamURL,
		}

		if redisCache != nil && redisCache.IsAvailable() {
			health["cache"] = "redis connected"
		} else {
			health["cache"] = "redis unavailable"
		}

		c.JSON(http.StatusOK, health)
	})

	// Rate limit status endpoint
	r.GET("/rate-limit/status", func(c *gin.Context) {
		ip := c.ClientIP()
		limiter := getRateLimiter(ip)

		c.JSON(http.StatusOK, gin.H{
			"ip":               ip,
			"limit_per_second": limiter.Limit(),
			"burst_capacity":   limiter.Burst(),
			"tokens_available": limiter.Tokens(),
		})
	})

	// Cache stats endpoint
	r.GET("/cache/stats", func(c *gin.Context) {
		if redisCache == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "cache not available",
			})
			return
		}
		c.JSON(http.StatusOK, redisCache.GetStats())
	})

	// Cache debug endpoint
	r.GET("/cache/debug", func(c *gin.Context) {
		if redisCache == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "cache not available",
			})
			return
		}

		keys := redisCache.GetAllKeys()
		keyDetails := make([]gin.H, 0, len(keys))
		for _, key := range keys {
			ttl := redisCache.GetKeyTTL(key)
			keyDetails = append(keyDetails, gin.H{
				"key":         key,
				"ttl_seconds": int(ttl.Seconds()),
				"expires_in":  ttl.String(),
			})
		}

		c.JSON(http.StatusOK, gin.H{
			"total_keys":  len(keys),
			"cache_keys":  keyDetails,
			"cache_stats": redisCache.GetStats(),
		})
	})

	// Cache flush endpoint (for testing)
	r.DELETE("/cache/flush", func(c *gin.Context) {
		if redisCache == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "cache not available",
			})
			return
		}
		if err := redisCache.FlushCache(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "failed to flush cache",
				"details": err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "cache flushed successfully"})
	})

	// Session-scoped storefront routes
	s := r.Group("/", sessions.middleware())
	{
		s.GET("/catalog/listing", getListing)
		s.POST("/catalog/refresh", refreshListing)
		s.PUT("/catalog/filters/pending", putPendingFilters)
		s.POST("/catalog/filters/apply", applyFilters)
		s.POST("/catalog/filters/clear", clearFilters)
		s.PUT("/catalog/sort", putSort)
		s.PUT("/catalog/page", putPage)
		s.PUT("/catalog/search", putSearch)
		s.GET("/catalog/search/results", getSearchResults)
		s.GET("/catalog/filters/descriptors", getFilterDescriptors)

		s.GET("/cart", getCart)
		s.POST("/cart/items", addCartItem)
		s.PUT("/cart/items/:productId", setCartItemQty)
		s.DELETE("/cart/items/:productId", removeCartItem)
		s.DELETE("/cart", clearCart)

		s.POST("/checkout/submit", checkoutSubmit)
		s.GET("/checkout/channels", checkoutChannels)
		s.POST("/checkout/method", checkoutChooseMethod)
		s.POST("/checkout/resend", checkoutResend)
		s.GET("/checkout/state", checkoutState)
		s.POST("/checkout/reset", checkoutReset)
	}

	log.Infof("Starting storefront gateway on :%s (upstream %s)", port, upstreamURL)
	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}

func getRateLimiter(ip string) *rate.Limiter {
	rateMutex.RLock()
	limiter, exists := rateLimiters[ip]
	rateMutex.RUnlock()

	if !exists {
		rateMutex.Lock()
		limiter = rate.NewLimiter(rate.Limit(10), 20) // 10 req/sec, burst 20
		rateLimiters[ip] = limiter
		rateMutex.Unlock()
	}

	return limiter
}

func rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		limiter := getRateLimiter(ip)

		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate_limit_exceeded",
				"message":     "Too many requests from your IP",
				"retry_after": "1 second",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// session bundles the per-browser-tab state containers: one catalog
// coordinator, one cart and one checkout coordinator.
type session struct {
	id       string
	catalog  *catalog.Coordinator
	cart     *checkout.Cart
	checkout *checkout.Coordinator
	lastSeen time.Time
}

type sessionConfig struct {
	client       *upstream.Client
	cache        *cache.RedisCache
	shippingFee  float64
	debounce     time.Duration
	challengeURL string
	idleTTL      time.Duration
}

type sessionRegistry struct {
	mu  sync.Mutex
	m   map[string]*session
	cfg sessionConfig
}

func newSessionRegistry(cfg sessionConfig) *sessionRegistry {
	return &sessionRegistry{m: make(map[string]*session), cfg: cfg}
}

func (sr *sessionRegistry) get(id string) *session {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	if s, ok := sr.m[id]; ok {
		s.lastSeen = time.Now()
		return s
	}

	var listingCache catalog.ListingCache
	var cooldownStore checkout.CooldownStore
	if sr.cfg.cache.IsAvailable() {
		listingCache = sr.cfg.cache
		cooldownStore = sr.cfg.cache
	}

	cart := checkout.NewCart()
	var challenger checkout.Challenger
	if sr.cfg.challengeURL != "" {
		challenger = checkout.NewHTTPChallenger(sr.cfg.challengeURL)
	} else {
		// No provider configured: the browser runs the invisible widget and
		// forwards its token with the submit request.
		challenger = checkout.PassthroughChallenger{}
	}

	s := &session{
		id:      id,
		catalog: catalog.New(sr.cfg.client, listingCache, catalog.Options{Debounce: sr.cfg.debounce}),
		cart:    cart,
		checkout: checkout.New(sr.cfg.client, challenger, cart, cooldownStore, checkout.Options{
			ShippingFee: sr.cfg.shippingFee,
		}),
		lastSeen: time.Now(),
	}
	sr.m[id] = s
	return s
}

// janitor evicts idle sessions, tearing down their debounce timers and
// in-flight requests.
func (sr *sessionRegistry) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-sr.cfg.idleTTL)
		sr.mu.Lock()
		for id, s := range sr.m {
			if s.lastSeen.Before(cutoff) {
				s.catalog.Close()
				delete(sr.m, id)
				log.Debugf("evicted idle session %s", id)
			}
		}
		sr.mu.Unlock()
	}
}

// middleware resolves (or creates) the session from the shop_session-id
// cookie and stores it on the request context.
func (sr *sessionRegistry) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(sessionCookie)
		if err != nil || id == "" {
			id = uuid.NewString()
			c.SetCookie(sessionCookie, id, 60*60*48, "/", "", false, true)
		}
		c.Set("session", sr.get(id))
		c.Next()
	}
}

func currentSession(c *gin.Context) *session {
	return c.MustGet("session").(*session)
}
