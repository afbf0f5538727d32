package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bookwell/authcore"
	"github.com/bookwell/authcore/metrics/export/prometheus"
	"github.com/bookwell/authcore/middleware"
	"github.com/bookwell/authcore/password"
	"github.com/gin-gonic/gin"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var pruneEvery time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the demo booking auth server",
		Long: `Run an HTTP server exposing login, refresh, logout and a guarded /me route,
plus /healthz and /metrics. Accounts come from DEMO_ACCOUNTS.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, pruneEvery)
		},
	}
	cmd.Flags().DurationVar(&pruneEvery, "prune-interval", time.Minute, "how often expired revocations are pruned (0 disables)")

	return cmd
}

func runServe(cmd *cobra.Command, pruneEvery time.Duration) error {
	proc, err := loadProcessConfig()
	if err != nil {
		return oops.Code("CONFIG_INVALID").With("operation", "parse process config").Wrap(err)
	}
	authCfg, err := authcore.LoadConfigFromEnv()
	if err != nil {
		return oops.Code("CONFIG_INVALID").With("operation", "parse auth config").Wrap(err)
	}
	accounts, err := proc.accounts()
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	logger := newLogger(proc.Logger)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, cleanup, err := buildEngine(ctx, authCfg, proc, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	hasher, err := password.NewHasher(password.DefaultConfig())
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              proc.HTTPAddr,
		Handler:           newRouter(engine, hasher, accounts, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if pruneEvery > 0 && engine.RevocationEnabled() {
		go pruneLoop(ctx, engine, pruneEvery, logger)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", proc.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return oops.Code("HTTP_SERVE_FAILED").Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return oops.Code("HTTP_SHUTDOWN_FAILED").Wrap(err)
	}
	return nil
}

func pruneLoop(ctx context.Context, engine *authcore.Engine, every time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := engine.Prune(ctx)
			if err != nil {
				logger.Warn("prune revocations", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Debug("pruned revocations", zap.Int64("count", n))
			}
		}
	}
}

// passwordVerifier hashes and checks passwords.
type passwordVerifier interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, encoded string) (bool, error)
}

const unknownSubjectPassword = "authcore-unknown-subject"

type loginRequest struct {
	Subject  string `json:"subject" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func newRouter(engine *authcore.Engine, hasher passwordVerifier, accounts map[string]demoAccount, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/login", loginHandler(engine, hasher, accounts))
	r.POST("/refresh", refreshHandler(engine, logger))
	r.POST("/logout", logoutHandler(engine, logger))

	r.GET("/me", middleware.GinGuard(engine), func(c *gin.Context) {
		id, _ := middleware.GinIdentity(c)
		c.JSON(http.StatusOK, gin.H{
			"subject":    id.Subject,
			"role":       id.Role,
			"session_id": id.SessionID,
			"expires_at": id.ExpiresAt,
		})
	})

	r.GET("/healthz", func(c *gin.Context) {
		if err := engine.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/metrics", gin.WrapH(prometheus.NewPrometheusExporter(engine).Handler()))

	return r
}

func clientContext(c *gin.Context) context.Context {
	ctx := authcore.WithClientIP(c.Request.Context(), c.ClientIP())
	return authcore.WithUserAgent(ctx, c.Request.UserAgent())
}

func loginHandler(engine *authcore.Engine, hasher passwordVerifier, accounts map[string]demoAccount) gin.HandlerFunc {
	// Unknown subjects are verified against this hash so they cost the same
	// argon2 work as a wrong password.
	dummyHash, _ := hasher.Hash(unknownSubjectPassword)

	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
			return
		}

		acct, ok := accounts[req.Subject]
		encoded := acct.PasswordHash
		if !ok {
			encoded = dummyHash
		}
		match, err := hasher.Verify(req.Password, encoded)
		if !ok || err != nil || !match {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		if _, err := engine.Login(clientContext(c), c.Writer, acct.Subject, acct.Role); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"subject":    acct.Subject,
			"role":       acct.Role,
			"expires_in": int64(engine.Lifetime() / time.Second),
		})
	}
}

func refreshHandler(engine *authcore.Engine, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := engine.RefreshCookie(c.Writer, c.Request); err != nil {
			if errors.Is(err, authcore.ErrStoreUnavailable) {
				logger.Warn("refresh", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "try again"})
				return
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func logoutHandler(engine *authcore.Engine, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := engine.Logout(c.Writer, c.Request); err != nil {
			logger.Warn("logout", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "try again"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}
