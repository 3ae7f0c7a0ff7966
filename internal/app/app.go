package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/schooltrack/schooltrack/internal/auth"
	"github.com/schooltrack/schooltrack/internal/config"
	"github.com/schooltrack/schooltrack/internal/db"
	"github.com/schooltrack/schooltrack/internal/http/api"
	"github.com/schooltrack/schooltrack/internal/mail"
	"github.com/schooltrack/schooltrack/internal/models"
	"github.com/schooltrack/schooltrack/internal/security"
)

// shutdownTimeout bounds graceful HTTP server shutdown.
const shutdownTimeout = 10 * time.Second

// RunServer wires configuration, storage, and routes, then serves HTTP
// until ctx is cancelled.
func RunServer(ctx context.Context, cfg config.AppConfig, port int) error {
	dsn, errDSN := config.LoadDatabaseDSN(cfg.ConfigPath)
	if errDSN != nil {
		return fmt.Errorf("resolve database dsn: %w", errDSN)
	}

	conn, errOpen := db.Open(dsn)
	if errOpen != nil {
		return fmt.Errorf("open database: %w", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return fmt.Errorf("migrate database: %w", errMigrate)
	}

	jwtCfg, errJWT := config.LoadJWTConfig(cfg.ConfigPath)
	if errJWT != nil {
		return fmt.Errorf("load jwt config: %w", errJWT)
	}
	if jwtCfg.Secret == "" {
		return errors.New("jwt secret is not configured (set JWT_SECRET or jwt.secret)")
	}

	if bootstrap := config.LoadAdminBootstrap(); bootstrap.Username != "" && bootstrap.Password != "" {
		if errAdmin := EnsureAdminUser(ctx, conn, bootstrap); errAdmin != nil {
			return fmt.Errorf("ensure admin user: %w", errAdmin)
		}
	}

	var mailer mail.Mailer
	mailCfg, errMail := config.LoadMailConfig(cfg.ConfigPath)
	if errMail != nil {
		return fmt.Errorf("load mail config: %w", errMail)
	}
	if mailCfg.Configured() {
		mailer = mail.NewSMTPMailer(mailCfg)
		log.Infof("mail: smtp transport enabled via %s:%d", mailCfg.Host, mailCfg.Port)
	} else {
		log.Warn("mail: smtp not configured, one-time codes will be returned in responses")
	}

	blacklist, errBlacklist := buildBlacklist(ctx, cfg.ConfigPath)
	if errBlacklist != nil {
		return errBlacklist
	}

	svc := auth.NewService(conn, jwtCfg, auth.NewOTPService(conn), blacklist, mailer)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	api.RegisterRoutes(r, conn, jwtCfg, svc)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("http: listening on %s", srv.Addr)
		if errServe := srv.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			errCh <- errServe
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		log.Info("http: shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
			return fmt.Errorf("shutdown http server: %w", errShutdown)
		}
		return <-errCh
	case errServe := <-errCh:
		return errServe
	}
}

// buildBlacklist selects the shared Redis revocation store when configured,
// falling back to the single-instance in-memory store.
func buildBlacklist(ctx context.Context, configPath string) (auth.Blacklist, error) {
	revokeCfg, errRevoke := config.LoadRevocationConfig(configPath)
	if errRevoke != nil {
		return nil, fmt.Errorf("load revocation config: %w", errRevoke)
	}
	if revokeCfg.RedisAddr == "" {
		log.Warn("revocation: using in-memory store, revoked tokens are not shared across instances")
		return auth.NewMemoryBlacklist(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     revokeCfg.RedisAddr,
		Password: revokeCfg.RedisPassword,
		DB:       revokeCfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if errPing := client.Ping(pingCtx).Err(); errPing != nil {
		return nil, fmt.Errorf("ping revocation redis %s: %w", revokeCfg.RedisAddr, errPing)
	}
	log.Infof("revocation: redis store enabled via %s", revokeCfg.RedisAddr)
	return auth.NewRedisBlacklist(client, revokeCfg.RedisPrefix), nil
}

// EnsureAdminUser creates the bootstrap admin account when no admin exists yet.
func EnsureAdminUser(ctx context.Context, conn *gorm.DB, bootstrap config.AdminBootstrap) error {
	var count int64
	if errCount := conn.WithContext(ctx).Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).Count(&count).Error; errCount != nil {
		return errCount
	}
	if count > 0 {
		return nil
	}

	hash, errHash := security.HashPassword(bootstrap.Password)
	if errHash != nil {
		return errHash
	}
	admin := models.User{
		ID:       uuid.NewString(),
		FullName: bootstrap.Username,
		Username: bootstrap.Username,
		Email:    bootstrap.Email,
		Password: hash,
		Role:     models.RoleAdmin,
	}
	if errCreate := conn.WithContext(ctx).Create(&admin).Error; errCreate != nil {
		return errCreate
	}
	log.Infof("bootstrap: created admin user %s", bootstrap.Username)
	return nil
}

// requestLogger emits one structured line per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Info("request")
	}
}
