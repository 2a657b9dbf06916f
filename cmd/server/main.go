package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/parsekit/parsekit-converter/api/handlers"
	"github.com/parsekit/parsekit-converter/api/routes"
	"github.com/parsekit/parsekit-converter/config"
	"github.com/parsekit/parsekit-converter/internal/converter"
	"github.com/parsekit/parsekit-converter/pkg/execx"
	"github.com/parsekit/parsekit-converter/pkg/logger"
)

func main() {
	cfg := config.Get()

	log, err := logger.NewLogger(
		logger.WithLevel(cfg.Log.Level),
		logger.WithEncoding(cfg.Log.Encoding),
		logger.WithOutputPaths(cfg.Log.OutputPaths),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	runner := execx.NewLocalRunner(log.Named("execx"))
	office := converter.NewOfficeConverter(runner, log.Named("office"),
		cfg.Converter.LibreOfficeBin, cfg.Converter.OfficeTimeout())
	raster := converter.NewRasterizer(runner, log.Named("raster"),
		cfg.Converter.PdfInfoBin, cfg.Converter.PdfToPpmBin)
	service := converter.NewService(office, raster, log.Named("converter"))

	h := handlers.NewHandlers(service, log)
	r := gin.New()
	r.MaxMultipartMemory = cfg.Server.MaxMultipartMemory
	routes.SetupRoutes(r, h)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}

	go func() {
		log.Info("server starting", logger.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", logger.Error(err))
		}
	}()

	// wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", logger.Error(err))
	}
}
