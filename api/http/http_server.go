package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	cors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"CaseVault/internal/config"
	"CaseVault/internal/initial"
	jwtMiddleware "CaseVault/internal/middleware/jwt"
	archiveHandler "CaseVault/internal/modules/archive/interface/http"
	"CaseVault/pkg/ssl"
	"CaseVault/pkg/zlog"
)

// BuildEngine assembles the gin engine over the wired archive services.
// Health stays open; everything else sits behind JWT.
func BuildEngine(arc *initial.Archive) *gin.Engine {
	ge := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	ge.Use(cors.New(corsConfig))

	conf := config.GetConfig()
	if conf.MainConfig.EnableTLS {
		ge.Use(ssl.TlsHandler(conf.MainConfig.Host, conf.MainConfig.Port))
	}

	searchH := archiveHandler.NewSearchHandler(arc.Search)
	statsH := archiveHandler.NewStatsHandler(arc.Stats)
	adminH := archiveHandler.NewAdminHandler(arc.Reconcile)

	ge.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authed := ge.Group("/")
	authed.Use(jwtMiddleware.Auth())
	authed.POST("/search", searchH.Search)
	authed.GET("/stats", statsH.Stats)
	authed.POST("/admin/reconcile", adminH.Reconcile)

	return ge
}

// Serve runs the engine until ctx is cancelled, then drains in-flight
// requests before returning.
func Serve(ctx context.Context, ge *gin.Engine) error {
	conf := config.GetConfig()
	addr := fmt.Sprintf("%s:%d", conf.MainConfig.Host, conf.MainConfig.Port)

	srv := &http.Server{Addr: addr, Handler: ge}
	errCh := make(chan error, 1)
	go func() {
		zlog.Info("http server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zlog.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
