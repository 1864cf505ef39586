// README: Entry point; loads config, wires services, starts the HTTP server and the booking expiry monitor.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hammamiayoub/vtc-new-sub000/internal/config"
	httptransport "github.com/hammamiayoub/vtc-new-sub000/internal/http"
	"github.com/hammamiayoub/vtc-new-sub000/internal/http/handlers"
	"github.com/hammamiayoub/vtc-new-sub000/internal/infra"
	"github.com/hammamiayoub/vtc-new-sub000/internal/maps"
	"github.com/hammamiayoub/vtc-new-sub000/internal/metrics"
	"github.com/hammamiayoub/vtc-new-sub000/internal/modules/availability"
	"github.com/hammamiayoub/vtc-new-sub000/internal/modules/booking"
	"github.com/hammamiayoub/vtc-new-sub000/internal/modules/location"
	"github.com/hammamiayoub/vtc-new-sub000/internal/modules/matching"
	"github.com/hammamiayoub/vtc-new-sub000/internal/modules/notification"
	"github.com/hammamiayoub/vtc-new-sub000/internal/modules/pricing"
	"github.com/hammamiayoub/vtc-new-sub000/internal/modules/subscription"
	"github.com/hammamiayoub/vtc-new-sub000/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := infra.NewLogger(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Firebase.ProjectID == "" {
		logger.Fatal("VTC_FIREBASE_PROJECT_ID is required")
	}
	fb, err := infra.NewFirebase(ctx, cfg.Firebase)
	if err != nil {
		logger.Fatal("firebase init", zap.Error(err))
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		logger.Fatal("postgres init", zap.Error(err))
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis)
	defer redisClient.Close()

	m := metrics.New()

	policy, err := pricing.PolicyFromConfig(cfg.Pricing)
	if err != nil {
		logger.Fatal("pricing policy", zap.Error(err))
	}
	pricingSvc := pricing.NewService(policy)

	var searcher location.AddressSearcher
	var router location.Router
	if cfg.Maps.APIKey != "" {
		geocodeSvc, err := maps.NewGeocodeService(cfg.Maps.APIKey, cfg.Maps.Country, cfg.Maps.Language)
		if err != nil {
			logger.Fatal("maps geocoder", zap.Error(err))
		}
		routeSvc, err := maps.NewRouteService(cfg.Maps.APIKey)
		if err != nil {
			logger.Fatal("maps router", zap.Error(err))
		}
		searcher, router = geocodeSvc, routeSvc
	} else {
		logger.Warn("maps api key not set; using the city table and haversine distances only")
	}
	geocoder := location.NewGeocoder(searcher, cfg.Maps.Timeout, logger)
	routeCache := location.NewStore(redisClient, cfg.Maps.RouteCacheTTL, logger)
	distance := location.NewDistanceCalculator(router, routeCache, cfg.Maps.Timeout, logger).
		WithObserver(func(src location.DistanceSource) { m.DistanceSource(string(src)) })
	planner := service.NewTripPlanner(geocoder, distance, pricingSvc, m, logger)

	availabilitySvc := availability.NewService(availability.NewStore(dbPool))
	oracle := subscription.NewOracle(subscription.NewStore(dbPool), cfg.Subscription.FreeMonthlyBookings, policy.Location, logger)

	matchingSvc := matching.NewService(matching.Deps{
		Availability: availabilitySvc,
		Drivers:      matching.NewDriverStore(dbPool),
		Quota:        oracle,
		Geocoder:     geocoder,
		Generations:  matching.NewStore(redisClient, cfg.Matching.GenerationTTL),
		Metrics:      m,
		Log:          logger,
	}, cfg.Matching)

	deviceTokens := notification.NewStore(dbPool)
	notifiers := []notification.Notifier{
		notification.NewFCMNotifier(fb.Messaging, deviceTokens, logger),
	}
	if cfg.RabbitMQ.URL != "" {
		mq, err := infra.NewRabbitMQ(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			logger.Fatal("rabbitmq init", zap.Error(err))
		}
		defer mq.Close()
		notifiers = append(notifiers, notification.NewEmailPublisher(mq.Channel, cfg.RabbitMQ.Exchange))
	}
	dispatcher := notification.NewDispatcher(cfg.Booking.NotifyTimeout, logger, m, notifiers...)

	bookingSvc := booking.NewService(booking.Deps{
		Store:       booking.NewStore(dbPool),
		Planner:     planner,
		Distance:    pricingSvc,
		Quota:       oracle,
		Eligibility: matchingSvc,
		Publisher:   dispatcher,
		Metrics:     m,
		Log:         logger,
		Location:    policy.Location,
	}, cfg.Booking)

	handler := httptransport.NewRouter(httptransport.RouterDeps{
		Quotes:   handlers.NewQuoteHandler(planner, matchingSvc, policy.Location, policy.MinDistanceKm),
		Bookings: handlers.NewBookingHandler(bookingSvc, policy.Location),
		Drivers:  handlers.NewDriverHandler(availabilitySvc, oracle, policy.Location),
		Devices:  handlers.NewDeviceHandler(deviceTokens),
		Verifier: fb.Verifier,
		Metrics:  m,
		Log:      logger,
	})

	go bookingSvc.RunExpiryMonitor(ctx, cfg.Booking.ExpiryInterval)

	server := httptransport.NewServer(cfg.HTTP, handler, logger)
	if err := server.Run(ctx); err != nil {
		logger.Error("http server", zap.Error(err))
	}

	waitDone := make(chan struct{})
	go func() {
		dispatcher.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(cfg.Booking.NotifyTimeout):
		logger.Warn("pending notifications dropped on shutdown")
	}
}
