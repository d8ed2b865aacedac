package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/techetime/timeclock_backend/config"
	"github.com/techetime/timeclock_backend/middlewares"
	"github.com/techetime/timeclock_backend/models"
	"github.com/techetime/timeclock_backend/models/reports"
	"github.com/techetime/timeclock_backend/utils"
	"go.opentelemetry.io/otel"
)

const defaultPort = "8080"

var tracer = otel.Tracer("timeclock-backend")

// Define a struct to represent the rate limiter.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func getRedisClient(redisAddress string) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddress,
	})
	return client
}

// respondError maps the error taxonomy onto HTTP statuses. Anything outside
// the taxonomy is a 500 and gets logged with its correlation id.
func respondError(c *gin.Context, err error) {
	switch {
	case utils.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case utils.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case utils.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		correlationId, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		config.GetLogger().WithFields(logrus.Fields{
			"correlation_id": correlationId,
			"path":           c.Request.URL.Path,
		}).Error(err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// respondBindError turns gin binding failures into a field error map.
func respondBindError(c *gin.Context, err error) {
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) {
		fields := map[string]string{}
		for _, fe := range fieldErrors {
			fields[strings.ToLower(fe.Field())] = fe.Tag()
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": fields})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		user, err := models.FindUserByEmail(c.Request.Context(), req.Email)
		if err != nil || utils.ComparePassword(user.PasswordHash, req.Password) != nil {
			// same answer for unknown email and wrong password
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		if !user.Role.CanManage() {
			c.JSON(http.StatusForbidden, gin.H{"error": "workers punch with a PIN"})
			return
		}

		token, err := utils.JwtGenerate(user.ID, string(user.Role), user.BusinessId, user.Name())
		if err != nil {
			respondError(c, err)
			return
		}
		user.PrepareGive()
		c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
	}
}

func registerBusinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.NewBusiness
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		business, owner, err := models.RegisterBusiness(c.Request.Context(), &req)
		if err != nil {
			respondError(c, err)
			return
		}
		token, err := utils.JwtGenerate(owner.ID, string(owner.Role), business.ID, owner.Name())
		if err != nil {
			respondError(c, err)
			return
		}
		owner.PrepareGive()
		c.JSON(http.StatusCreated, gin.H{"business": business, "owner": owner, "token": token})
	}
}

// kioskPunchHandler is the shared-device punch. The kiosk is authenticated
// as a device of one business; the PIN picks the worker.
func kioskPunchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.PinPunchInput
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		result, err := models.TogglePin(c.Request.Context(), &req)
		if err != nil {
			respondError(c, err)
			return
		}
		if result.HoursWorked != nil {
			rounded := utils.Round2(*result.HoursWorked)
			result.HoursWorked = &rounded
		}
		c.JSON(http.StatusOK, result)
	}
}

func clockInHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.NewTimeEntry
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		entry, err := models.ClockIn(c.Request.Context(), &req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, entry)
	}
}

type clockOutRequest struct {
	UserId int `json:"user_id" binding:"required"`
}

func clockOutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req clockOutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		entry, err := models.ClockOut(c.Request.Context(), req.UserId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, entry)
	}
}

func openShiftHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		entry, err := models.GetOpenEntry(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"open": entry != nil, "entry": entry})
	}
}

func updateTimeEntryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req models.UpdateTimeEntryInput
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		entry, err := models.UpdateTimeEntry(c.Request.Context(), id, &req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, entry)
	}
}

func deleteTimeEntryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		if err := models.DeleteTimeEntry(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func createLocationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.NewLocation
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		location, err := models.CreateLocation(c.Request.Context(), &req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, location)
	}
}

func updateLocationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req models.NewLocation
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		location, err := models.UpdateLocation(c.Request.Context(), id, &req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, location)
	}
}

func deactivateLocationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		location, err := models.DeactivateLocation(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, location)
	}
}

func listLocationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		locations, err := models.GetLocations(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, locations)
	}
}

func createUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.NewUser
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		user, err := models.CreateUser(c.Request.Context(), &req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, user)
	}
}

func updateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req models.UpdateUserInput
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		user, err := models.UpdateUser(c.Request.Context(), id, &req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func listUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := models.GetUsers(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, users)
	}
}

func appendPayRateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req models.NewPayRate
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		rate, err := models.AppendPayRate(c.Request.Context(), id, &req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, rate)
	}
}

func listPayRatesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		rates, err := models.GetPayRates(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, rates)
	}
}

const (
	reportFormatJSON        = "json"
	reportFormatCSVSummary  = "csv_summary"
	reportFormatCSVDetailed = "csv_detailed"
	reportFormatExcel       = "xlsx"
)

func payrollReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "payroll_report")
		defer span.End()

		var req reports.PayrollReportInput
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		format := c.DefaultQuery("format", reportFormatJSON)

		report, err := reports.BuildPayrollReport(ctx, &req)
		if err != nil {
			respondError(c, err)
			return
		}

		switch format {
		case reportFormatJSON:
			c.JSON(http.StatusOK, report)
			return
		case reportFormatCSVSummary, reportFormatCSVDetailed, reportFormatExcel:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown format " + format})
			return
		}

		var payload []byte
		var contentType, filename string
		switch format {
		case reportFormatCSVSummary:
			payload, err = reports.RenderSummaryCSV(report)
			contentType = "text/csv"
			filename = fmt.Sprintf("payroll-summary-%s.csv", report.FromDate.Format("2006-01-02"))
		case reportFormatCSVDetailed:
			payload, err = reports.RenderDetailedCSV(report)
			contentType = "text/csv"
			filename = fmt.Sprintf("payroll-detailed-%s.csv", report.FromDate.Format("2006-01-02"))
		case reportFormatExcel:
			payload, err = reports.RenderExcel(report)
			contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
			filename = fmt.Sprintf("payroll-%s.xlsx", report.FromDate.Format("2006-01-02"))
		}
		if err != nil {
			respondError(c, err)
			return
		}

		models.WriteAudit(ctx, models.AuditActionReportExported, "payroll_reports", 0,
			map[string]interface{}{"format": format}, report.ReportId)

		c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
		c.Data(http.StatusOK, contentType, payload)
	}
}

func listAuditHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
		records, err := models.GetAuditRecords(c.Request.Context(), limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, records)
	}
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

func registerRoutes(r *gin.Engine) {
	r.POST("/auth/register", registerBusinessHandler())
	r.POST("/auth/login", loginHandler())

	authed := r.Group("/", middlewares.RequireAuth())
	authed.POST("/kiosk/punch", middlewares.PinRateLimiter(), kioskPunchHandler())
	authed.GET("/time-entries/open/:id", openShiftHandler())

	admin := authed.Group("/", middlewares.RequireManager())
	admin.POST("/time-entries/clock-in", clockInHandler())
	admin.POST("/time-entries/clock-out", clockOutHandler())
	admin.PUT("/time-entries/:id", updateTimeEntryHandler())
	admin.DELETE("/time-entries/:id", deleteTimeEntryHandler())

	admin.GET("/locations", listLocationsHandler())
	admin.POST("/locations", createLocationHandler())
	admin.PUT("/locations/:id", updateLocationHandler())
	admin.DELETE("/locations/:id", deactivateLocationHandler())

	admin.GET("/users", listUsersHandler())
	admin.POST("/users", createUserHandler())
	admin.PUT("/users/:id", updateUserHandler())
	admin.GET("/users/:id/pay-rates", listPayRatesHandler())
	admin.POST("/users/:id/pay-rates", appendPayRateHandler())

	admin.POST("/reports/payroll", payrollReportHandler())
	admin.GET("/audit", listAuditHandler())
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Shutdown coordination.
	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until DB/Redis are ready, we return 503 for app endpoints.
	r := gin.New()
	r.Use(func(c *gin.Context) {
		// Always allow Cloud Run startup probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		// Gate critical endpoints on dependency readiness.
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// Production-safe CORS:
	// - In production, require explicit allowlist via CORS_ALLOWED_ORIGINS (comma-separated).
	// - In non-production, allow all (developer convenience).
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			// Safer default: deny all if not configured in production.
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization", "X-Correlation-Id")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	// Optional rate limiting (recommended for production).
	// Env:
	// - RATE_LIMIT_ENABLED=true
	// - RATE_LIMIT_WINDOW_SECONDS=60
	// - RATE_LIMIT_MAX_REQUESTS=600
	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		client := getRedisClient(os.Getenv("REDIS_ADDRESS"))
		limit := int64(600)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				limit = n
			}
		}
		windowSec := int64(60)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				windowSec = n
			}
		}
		rateLimiter := NewRateLimiter(client, limit, time.Duration(windowSec)*time.Second)
		r.Use(rateLimiter.RateLimitMiddleware)
	}

	r.Use(middlewares.AuthMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())
	registerRoutes(r)
	r.NoRoute(customNotFoundHandler)

	// Start listening immediately (Cloud Run startup probe is TCP based).
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// IMPORTANT: AutoMigrate can run DDL that blocks tables and causes 504/502 timeouts.
	// Allow disabling migrations on startup (run them as a separate job instead).
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		if err := models.MigrateTables(); err != nil {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Error(err.Error())
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Set the session isolation level to READ COMMITTED
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	log.Println("Server started successfully on port " + port)

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Drain HTTP requests.
	shutdownTimeout := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	// Close Redis (best-effort).
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

// Initialize a new RateLimiter instance.
func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Middleware function to check rate limits.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	key := c.ClientIP()

	exists, err := rl.client.Exists(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	// If the key doesn't exist, create it and set expiry.
	if exists == 0 {
		err := rl.client.Set(c.Request.Context(), key, 1, rl.window).Err()
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.Next()
		return
	}

	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
