package api

import (
    "encoding/json"
    "errors"
    "net/http"
    "strconv"
    "time"

    models "GridPulse/internal/domain/models"
    domrepo "GridPulse/internal/domain/repository"
    icache "GridPulse/internal/service/cache"
    "GridPulse/internal/service/metrics"
    "GridPulse/internal/service/ratelimit"
    "GridPulse/internal/usecase"
    xhttp "GridPulse/pkg/http"
    "GridPulse/pkg/http/middleware"
    xlogger "GridPulse/pkg/logger"

    "github.com/labstack/echo/v4"
)

// CacheTTLs controls per-endpoint response caching.
type CacheTTLs struct {
    Latest    time.Duration
    Analytics time.Duration
    Billing   time.Duration
}

// MeterEchoHandler implements Echo-based HTTP handlers following Clean Architecture.
type MeterEchoHandler struct {
    logger  *xlogger.Logger
    proc    *usecase.ReadingProcessor
    agg     *usecase.UsageAggregator
    billing *usecase.BillingCalculator
    advisor *usecase.AdvisorUseCase
    store   domrepo.ReadingStore
    cache   icache.BytesCache
    rl      *ratelimit.Limiter
    apiKey  string
    ttl     CacheTTLs
}

func NewMeterEchoHandler(
    logger *xlogger.Logger,
    proc *usecase.ReadingProcessor,
    agg *usecase.UsageAggregator,
    billing *usecase.BillingCalculator,
    advisor *usecase.AdvisorUseCase,
    store domrepo.ReadingStore,
    apiKey string,
    ttl CacheTTLs,
) *MeterEchoHandler {
    metrics.Register()
    if ttl.Latest <= 0 {
        ttl.Latest = 5 * time.Second
    }
    if ttl.Analytics <= 0 {
        ttl.Analytics = 30 * time.Second
    }
    if ttl.Billing <= 0 {
        ttl.Billing = 15 * time.Second
    }
    return &MeterEchoHandler{
        logger:  logger,
        proc:    proc,
        agg:     agg,
        billing: billing,
        advisor: advisor,
        store:   store,
        rl:      ratelimit.New(),
        apiKey:  apiKey,
        ttl:     ttl,
    }
}

// SetCache injects a response cache.
func (h *MeterEchoHandler) SetCache(c icache.BytesCache) { h.cache = c }

func (h *MeterEchoHandler) RegisterRoutes(e *echo.Echo) {
    g := e.Group("/api")
    g.POST("/ingest", h.Ingest, middleware.APIKey(h.apiKey))
    g.GET("/usage/latest", h.Latest)
    g.GET("/analytics", h.Analytics)
    g.GET("/billing/current", h.Billing)
    g.POST("/payments", h.Payment)
    g.GET("/advisor", h.Advisor)
    e.GET("/health", h.Health)
}

type ingestResponse struct {
    CustomerID int64     `json:"customer_id"`
    Timestamp  time.Time `json:"timestamp"`
    Kwh        float64   `json:"kwh"`
    Voltage    *float64  `json:"voltage,omitempty"`
    Current    *float64  `json:"current,omitempty"`
    Cost       float64   `json:"cost"`
    Anomaly    bool      `json:"anomaly"`
    Note       string    `json:"note,omitempty"`
}

func (h *MeterEchoHandler) Ingest(c echo.Context) error {
    start := time.Now()
    defer func() { metrics.APILatency.WithLabelValues("ingest").Observe(time.Since(start).Seconds()) }()

    req := &models.IngestRequest{}
    if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
        return xhttp.BadRequestResponse(c, verr)
    }

    raw := &models.RawReading{
        CustomerID: req.CustomerID,
        Timestamp:  req.Timestamp,
        Kwh:        req.Kwh,
        Voltage:    req.Voltage,
        Current:    req.Current,
    }
    rec, err := h.proc.Process(c.Request().Context(), raw, "api")
    if err != nil {
        if errors.Is(err, models.ErrMalformedTimestamp) || errors.Is(err, models.ErrInvalidReading) {
            return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{
                Code:    "ERR_INVALID_READING",
                Message: err.Error(),
            }})
        }
        metrics.APIErrors.WithLabelValues("ingest").Inc()
        h.logger.Error("ingest usecase error", xlogger.Error(err))
        return xhttp.AppErrorResponse(c, err)
    }

    return xhttp.CreatedResponse(c, ingestResponse{
        CustomerID: rec.Reading.CustomerID,
        Timestamp:  rec.Reading.Timestamp,
        Kwh:        rec.Reading.Kwh,
        Voltage:    rec.Reading.Voltage,
        Current:    rec.Reading.Current,
        Cost:       rec.Derived.Cost,
        Anomaly:    rec.Derived.Anomaly,
        Note:       rec.Derived.AnomalyNote,
    })
}

func (h *MeterEchoHandler) Latest(c echo.Context) error {
    start := time.Now()
    defer func() { metrics.APILatency.WithLabelValues("latest").Observe(time.Since(start).Seconds()) }()

    req := &models.LatestRequest{}
    if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
        return xhttp.BadRequestResponse(c, verr)
    }

    cacheKey := "latest:" + strconv.FormatInt(req.CustomerID, 10)
    if b, ok := h.cacheGet(cacheKey, "latest"); ok {
        return c.JSONBlob(http.StatusOK, b)
    }

    res, err := h.agg.Latest(c.Request().Context(), req.CustomerID)
    if err != nil {
        metrics.APIErrors.WithLabelValues("latest").Inc()
        h.logger.Error("latest usecase error", xlogger.Error(err))
        return xhttp.AppErrorResponse(c, err)
    }
    h.cacheSet(cacheKey, "latest", res, h.ttl.Latest)
    return xhttp.SuccessResponse(c, res)
}

type analyticsResponse struct {
    CustomerID  int64                `json:"customer_id"`
    Granularity string               `json:"granularity"`
    Count       int                  `json:"count"`
    Buckets     []models.UsageBucket `json:"buckets"`
}

func (h *MeterEchoHandler) Analytics(c echo.Context) error {
    start := time.Now()
    defer func() { metrics.APILatency.WithLabelValues("analytics").Observe(time.Since(start).Seconds()) }()

    req := &models.AnalyticsRequest{}
    if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
        return xhttp.BadRequestResponse(c, verr)
    }
    gran := domrepo.NormalizeGranularity(req.Granularity)
    from := xhttp.ParseTimeDefault(req.From, time.Time{})
    to := xhttp.ParseTimeDefault(req.To, time.Time{})

    if !h.rl.Allow(c.RealIP()+":analytics", 5, 2) {
        h.logger.Warn("analytics rate_limited", xlogger.String("remote", c.RealIP()))
        return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
    }

    cacheKey := "analytics:" + strconv.FormatInt(req.CustomerID, 10) + ":" + string(gran) + ":" + req.From + ":" + req.To
    if b, ok := h.cacheGet(cacheKey, "analytics"); ok {
        return c.JSONBlob(http.StatusOK, b)
    }

    buckets, err := h.agg.Aggregate(c.Request().Context(), usecase.AggregateParams{
        CustomerID:  req.CustomerID,
        Granularity: gran,
        From:        from,
        To:          to,
    })
    if err != nil {
        metrics.APIErrors.WithLabelValues("analytics").Inc()
        h.logger.Error("analytics usecase error", xlogger.Error(err))
        return xhttp.AppErrorResponse(c, err)
    }

    res := analyticsResponse{
        CustomerID:  req.CustomerID,
        Granularity: string(gran),
        Count:       len(buckets),
        Buckets:     buckets,
    }
    h.cacheSet(cacheKey, "analytics", res, h.ttl.Analytics)
    return xhttp.SuccessResponse(c, res)
}

func (h *MeterEchoHandler) Billing(c echo.Context) error {
    start := time.Now()
    defer func() { metrics.APILatency.WithLabelValues("billing").Observe(time.Since(start).Seconds()) }()

    req := &models.BillingRequest{}
    if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
        return xhttp.BadRequestResponse(c, verr)
    }

    cacheKey := "billing:" + strconv.FormatInt(req.CustomerID, 10)
    if b, ok := h.cacheGet(cacheKey, "billing"); ok {
        return c.JSONBlob(http.StatusOK, b)
    }

    stmt, err := h.billing.CurrentStatement(c.Request().Context(), req.CustomerID)
    if err != nil {
        metrics.APIErrors.WithLabelValues("billing").Inc()
        h.logger.Error("billing usecase error", xlogger.Error(err))
        return xhttp.AppErrorResponse(c, err)
    }
    h.cacheSet(cacheKey, "billing", stmt, h.ttl.Billing)
    return xhttp.SuccessResponse(c, stmt)
}

func (h *MeterEchoHandler) Payment(c echo.Context) error {
    start := time.Now()
    defer func() { metrics.APILatency.WithLabelValues("payment").Observe(time.Since(start).Seconds()) }()

    req := &models.PaymentRequest{}
    if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
        return xhttp.BadRequestResponse(c, verr)
    }

    p, err := h.billing.RecordPayment(c.Request().Context(), req)
    if err != nil {
        metrics.APIErrors.WithLabelValues("payment").Inc()
        h.logger.Error("payment usecase error", xlogger.Error(err))
        return xhttp.AppErrorResponse(c, err)
    }
    return xhttp.CreatedResponse(c, p)
}

func (h *MeterEchoHandler) Advisor(c echo.Context) error {
    start := time.Now()
    defer func() { metrics.APILatency.WithLabelValues("advisor").Observe(time.Since(start).Seconds()) }()

    req := &models.AdvisorRequest{}
    if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
        return xhttp.BadRequestResponse(c, verr)
    }
    if !h.rl.Allow(c.RealIP()+":advisor", 3, 1) {
        h.logger.Warn("advisor rate_limited", xlogger.String("remote", c.RealIP()))
        return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
    }

    report, err := h.advisor.Report(c.Request().Context(), req.CustomerID, req.Days)
    if err != nil {
        metrics.APIErrors.WithLabelValues("advisor").Inc()
        h.logger.Error("advisor usecase error", xlogger.Error(err))
        return xhttp.AppErrorResponse(c, err)
    }
    return xhttp.SuccessResponse(c, report)
}

func (h *MeterEchoHandler) Health(c echo.Context) error {
    status := "ok"
    if err := h.store.Health(c.Request().Context()); err != nil {
        status = "degraded"
        h.logger.Warn("health store check failed", xlogger.Error(err))
    }
    return xhttp.SuccessResponse(c, map[string]string{"status": status})
}

// cacheGet returns a cached response envelope for key, if present.
func (h *MeterEchoHandler) cacheGet(key, endpoint string) ([]byte, bool) {
    if h.cache == nil {
        return nil, false
    }
    b, ok, err := h.cache.GetBytes(key)
    if err != nil {
        h.logger.Warn(endpoint+" cache_get_error", xlogger.Error(err))
        return nil, false
    }
    if !ok {
        h.logger.Debug(endpoint+" cache_miss", xlogger.String("key", key))
        return nil, false
    }
    h.logger.Debug(endpoint+" cache_hit", xlogger.String("key", key))
    return b, true
}

// cacheSet stores the response envelope the same way echo would emit it.
func (h *MeterEchoHandler) cacheSet(key, endpoint string, data interface{}, ttl time.Duration) {
    if h.cache == nil {
        return
    }
    b, err := json.Marshal(xhttp.APIResponse{
        Status:  http.StatusOK,
        Message: http.StatusText(http.StatusOK),
        Data:    data,
    })
    if err != nil {
        h.logger.Warn(endpoint+" cache_marshal_error", xlogger.Error(err))
        return
    }
    if err := h.cache.SetBytes(key, b, ttl); err != nil {
        h.logger.Warn(endpoint+" cache_set_error", xlogger.Error(err))
    }
}
