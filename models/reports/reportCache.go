package reports

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/techetime/timeclock_backend/config"
	"github.com/techetime/timeclock_backend/utils"
)

func reportCacheEnabled() bool {
	v := strings.TrimSpace(os.Getenv("ENABLE_REPORT_CACHE"))
	return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes") || strings.EqualFold(v, "on")
}

func reportCacheTTL() time.Duration {
	// Env: REPORT_CACHE_TTL_SECONDS (default 120s)
	ttl := 120
	if v := strings.TrimSpace(os.Getenv("REPORT_CACHE_TTL_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			ttl = n
		}
	}
	return time.Duration(ttl) * time.Second
}

func reportSlowMs() int64 {
	// Env: REPORT_SLOW_MS (default 500ms)
	ms := int64(500)
	if v := strings.TrimSpace(os.Getenv("REPORT_SLOW_MS")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			ms = n
		}
	}
	return ms
}

func getCachedReport(ctx context.Context, reportId string) (*PayrollReport, bool) {
	if !reportCacheEnabled() {
		return nil, false
	}
	var report PayrollReport
	exists, err := config.GetRedisObject("PayrollReport:"+reportId, &report)
	if err != nil || !exists {
		return nil, false
	}
	return &report, true
}

func setCachedReport(ctx context.Context, reportId string, report *PayrollReport) {
	if !reportCacheEnabled() {
		return
	}
	if err := config.SetRedisObject("PayrollReport:"+reportId, report, reportCacheTTL()); err != nil {
		config.LogError(config.GetLogger(), "reportCache.go", "setCachedReport", "SetRedisObject", reportId, err)
	}
}

func logSlowReport(ctx context.Context, name string, started time.Time, extra map[string]interface{}) {
	elapsed := time.Since(started)
	if elapsed.Milliseconds() < reportSlowMs() {
		return
	}
	businessId, _ := utils.GetBusinessIdFromContext(ctx)
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	config.GetLogger().WithFields(logrus.Fields{
		"report":         name,
		"ms":             elapsed.Milliseconds(),
		"business_id":    businessId,
		"correlation_id": correlationId,
		"extra":          extra,
	}).Warn("slow report")
}
