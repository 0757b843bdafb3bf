package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"alumni/internal/admin"
	"alumni/internal/auth"
	"alumni/internal/config"
	"alumni/internal/directory"
	"alumni/internal/errtrack"
	"alumni/internal/event"
	"alumni/internal/httpmiddleware"
	"alumni/internal/jobs"
	"alumni/internal/member"
	"alumni/internal/membership"
	"alumni/internal/metrics"
	"alumni/internal/payment"
	"alumni/internal/testimonial"
)

// maxUploadBytes caps multipart registration bodies.
const maxUploadBytes = 8 << 20

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Healthy(ctx context.Context) bool
}

// OrderGateway creates and looks up payment gateway orders.
type OrderGateway interface {
	CreateOrder(req payment.OrderRequest) (payment.Order, error)
	FetchOrder(orderID string) (payment.Order, error)
}

// Deps are the collaborators of the HTTP API.
type Deps struct {
	Config       config.App
	Logger       zerolog.Logger
	DB           Pinger
	Redis        Pinger
	Members      *member.Service
	Testimonials *testimonial.Service
	Events       *event.Service
	Directory    *directory.Repository
	Admins       *admin.Service
	Jobs         *jobs.Service
	Orders       OrderGateway
	Signer       *auth.Signer
}

// Server holds the route handlers.
type Server struct {
	Deps
	logger zerolog.Logger
}

var registerValidators sync.Once

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(d Deps) *gin.Engine {
	registerValidators.Do(RegisterValidators)
	s := &Server{Deps: d, logger: d.Logger.With().Str("component", "api").Logger()}

	r := gin.New()
	r.MaxMultipartMemory = maxUploadBytes
	r.Use(gin.Recovery())
	r.Use(errtrack.Middleware())
	r.Use(httpmiddleware.Logger(d.Logger))
	r.Use(corsMiddleware(d.Config.CORSOrigins))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.NewIPRateLimiter(d.Config.RateLimitPerMin, d.Config.RateLimitPerMin).GinMiddleware())
	r.Use(httpmiddleware.Metrics())

	r.GET("/", s.index)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/healthz", s.healthz)

	adminOnly := auth.AdminAuth(d.Signer)
	jobOnly := auth.JobSecret(d.Config.JobSecret)

	r.POST("/auth", s.login)

	r.POST("/register/user", s.registerUser)
	r.GET("/user/:alt_id", s.userByAltID)
	r.GET("/user/get/:email", s.userExists)
	r.GET("/user/id/:email", s.manualPaymentDetails)
	r.GET("/card_details/:alt_user_id", s.cardDetails)
	r.GET("/membership/:membership_id", adminOnly, s.membershipByID)
	r.PUT("/payment_status", adminOnly, s.confirmManualPayment)
	r.PUT("/manual_payment/notification/:email", s.notifyManualPayment)
	r.PUT("/email_subscription", s.unsubscribe)
	r.GET("/alumni/search", adminOnly, s.searchAlumni)
	r.GET("/alumni/birthdays", jobOnly, s.birthdays)

	r.POST("/orders", s.createOrder)
	r.POST("/verification", s.verifyPayment)

	r.GET("/renewal_details/:renewal_hash", s.renewalDetails)
	r.PUT("/membership_renewal", s.commitRenewal)
	r.PUT("/renewal_hash/clear", s.clearRenewalHash)
	r.PUT("/renewal_hash", jobOnly, s.issueRenewalHash)
	r.GET("/expiring_memberships/:days_remaining", jobOnly, s.expiringMemberships)
	r.PUT("/expire_active_memberships", jobOnly, s.expireMembership)
	r.GET("/recently_expired_memberships", jobOnly, s.recentlyExpired)

	r.GET("/testimonials", s.randomTestimonials)
	r.GET("/testimonials/all", s.allTestimonials)
	r.POST("/testimonials", s.submitTestimonial)
	r.GET("/testimonials/verify/:token", s.verifyTestimonial)

	r.POST("/events", adminOnly, s.createEvent)
	r.GET("/events/:status", s.listEvents)
	r.GET("/events/search/:search_text", s.searchEvents)
	r.GET("/events/upcoming/current_week", s.currentWeekEvents)
	r.GET("/event/:id", s.getEvent)
	r.GET("/gallery/images/all", s.gallery)

	dashboard := r.Group("/alumniassn/dashboard", adminOnly)
	dashboard.GET("/totals", s.dashboardTotals)
	dashboard.GET("/:membership_type/:payment_status", s.dashboardMembers)

	r.GET("/committee", s.committee)
	r.GET("/famous_alumni/all", s.famousAlumni)

	r.PUT("/jobs", jobOnly, s.pingJob)
	r.GET("/jobs", adminOnly, s.jobStatus)

	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", auth.JobSecretHeader},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// RegisterValidators adds the membership_type and payment_mode tags to gin's validator.
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("membership_type", func(fl validator.FieldLevel) bool {
		return membership.Type(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("payment_mode", func(fl validator.FieldLevel) bool {
		mode := fl.Field().String()
		return mode == member.PaymentOnline || mode == member.PaymentManual
	})
}

func (s *Server) healthz(c *gin.Context) {
	ctx := c.Request.Context()
	dbHealthy := s.DB != nil && s.DB.Healthy(ctx)
	body := gin.H{"status": "ok", "db": dbHealthy}
	healthy := dbHealthy
	if s.Redis != nil {
		redisHealthy := s.Redis.Healthy(ctx)
		body["redis"] = redisHealthy
		healthy = healthy && redisHealthy
	}
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
	}
	c.JSON(status, body)
}
