package cmd

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"food-ordering/api/auth"
	"food-ordering/api/checkout"
	"food-ordering/api/config"
	"food-ordering/api/events"
	"food-ordering/api/handlers"
	"food-ordering/api/media"
	"food-ordering/api/realtime"
	"food-ordering/api/server"
	"food-ordering/api/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ordering API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		if port := viper.GetString("port"); port != "" {
			cfg.Server.Port = port
		}
		return serve(cfg, viper.GetBool("memory"), viper.GetString("cart-dir"))
	},
}

func init() {
	serveCmd.Flags().String("port", "", "listen port (overrides SERVER_PORT)")
	serveCmd.Flags().Bool("memory", false, "keep all data in process memory instead of Postgres and Redis")
	serveCmd.Flags().String("cart-dir", "", "with --memory, keep carts as JSON files in this directory")
	cobra.CheckErr(viper.BindPFlags(serveCmd.Flags()))
}

func serve(cfg *config.Config, inMemory bool, cartDir string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackend(ctx, cfg, inMemory, cartDir)
	if err != nil {
		return err
	}
	defer b.Close()

	hub := realtime.NewHub(cfg.Server.SubscriberBuffer)
	var publisher realtime.Publisher = hub
	if cfg.RabbitMQ.URL != "" {
		relay, err := realtime.DialAMQPRelay(cfg.RabbitMQ.URL, cfg.RabbitMQ.ExchangeName, hub)
		if err != nil {
			return err
		}
		defer relay.Close()
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("Change relay stopped: %v", err)
			}
		}()
		publisher = relay
	}

	var audit events.Logger = events.NopLogger{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := events.NewKafkaLogger(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer kafka.Close()
		audit = kafka
	}

	var images media.Store
	if cfg.S3.Bucket != "" {
		s3Store, err := media.NewS3Store(ctx, cfg.S3.Region, cfg.S3.Bucket)
		if err != nil {
			return err
		}
		images = s3Store
	}

	sessions := session.NewManager(cfg.JWT.SecretKey, cfg.JWT.TTL, b.Revoker)
	pricing := checkout.Pricing{DeliveryFee: cfg.Checkout.DeliveryFee, TaxRate: cfg.Checkout.TaxRate}

	h := handlers.New(handlers.Deps{
		Sessions: sessions,
		Auth: auth.NewService(b.Users, b.Owners, sessions, b.Confirmations, auth.Options{
			RequireEmailConfirmation: cfg.Auth.RequireEmailConfirmation,
			ConfirmationTTL:          cfg.Auth.ConfirmationTTL,
		}),
		Restaurants: b.Restaurants,
		MenuItems:   b.MenuItems,
		Orders:      b.Orders,
		Carts:       b.Carts,
		Checkout:    checkout.NewService(b.Orders, publisher, audit, pricing, cfg.Checkout.ScheduleDelay),
		Flows:       b.Flows,
		Hub:         hub,
		Publisher:   publisher,
		Events:      audit,
		Images:      images,
	})
	app := server.New(cfg.Server, h)

	go func() {
		<-ctx.Done()
		log.Println("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	log.Printf("Server starting on port %s", cfg.Server.Port)
	return app.Listen(":" + cfg.Server.Port)
}
