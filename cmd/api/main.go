package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"bookameal/internal/database"
	"bookameal/internal/env"
	"bookameal/internal/events"
	"bookameal/internal/logging"
	"bookameal/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

const tokenPurgeInterval = time.Hour

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
	cfg := env.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		logger.WithError(err).Fatal("open database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logger.WithError(err).Fatal("migrate database")
	}

	// Event publisher: RabbitMQ when configured, the log otherwise
	var publisher events.Publisher = events.NewLogPublisher(logging.Component(logger, "events"))
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.WithError(err).Fatal("connect to broker")
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
	}

	srv := server.New(server.Deps{
		DB:        db,
		Log:       logger,
		Publisher: publisher,
		Config:    cfg,
	})

	if err := srv.Users.EnsureAdmin(ctx, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword); err != nil {
		logger.WithError(err).Fatal("bootstrap admin")
	}

	// Expired tokens are purged in the background
	go func() {
		ticker := time.NewTicker(tokenPurgeInterval)
		defer ticker.Stop()
		for {
			if n, err := srv.Tokens.PurgeExpired(ctx); err != nil {
				logger.WithError(err).Warn("purge expired tokens")
			} else if n > 0 {
				logger.WithField("purged", n).Info("expired tokens purged")
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("http server")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown")
	}
}

/*
Book-A-Meal API. Backend for caterers publishing daily menus and customers ordering from them.
API Copyright (C) 2025 The Book-A-Meal Authors
    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
