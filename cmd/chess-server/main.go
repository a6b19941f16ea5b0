package main

import (
    "context"
    "errors"
    "log"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "go.uber.org/zap"

    appcfg "github.com/park285/cheese-chess-server/internal/config"
    "github.com/park285/cheese-chess-server/internal/chessbuilder"
    "github.com/park285/cheese-chess-server/internal/obslog"
)

func main() {
    cfg, err := appcfg.Load()
    if err != nil {
        log.Fatalf("config error: %v", err)
    }
    if err := obslog.Init(obslog.Options{
        Level:     cfg.Log.Level,
        Format:    cfg.Log.Format,
        ToConsole: cfg.Log.ToConsole,
        ToFile:    cfg.Log.ToFile,
        File:      cfg.Log.File,
        Caller:    cfg.Log.Caller,
    }); err != nil {
        log.Fatalf("logger init error: %v", err)
    }
    logger := obslog.L()
    defer func() { _ = logger.Sync() }()

    ictx, icancel := context.WithTimeout(context.Background(), 15*time.Second)
    deps, err := chessbuilder.New(ictx, cfg, logger)
    icancel()
    if err != nil {
        logger.Fatal("chess_init_error", zap.Error(err))
    }
    defer func() { _ = deps.Close() }()

    srv := &http.Server{
        Addr:              cfg.ListenAddr,
        Handler:           deps.Server.Router(),
        ReadHeaderTimeout: 10 * time.Second,
    }
    errCh := make(chan error, 1)
    go func() {
        logger.Info("http_listen", zap.String("addr", cfg.ListenAddr), zap.String("ws_path", cfg.WSPath))
        if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
            errCh <- err
        }
    }()

    // Wait for termination signal
    sigCh := make(chan os.Signal, 1)
    signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
    select {
    case sig := <-sigCh:
        logger.Info("shutdown_signal", zap.String("signal", sig.String()))
    case err := <-errCh:
        logger.Error("http_serve_error", zap.Error(err))
    }

    sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer scancel()
    if err := deps.Server.Shutdown(sctx); err != nil {
        logger.Warn("ws_shutdown_incomplete", zap.Error(err))
    }
    if err := srv.Shutdown(sctx); err != nil {
        logger.Warn("http_shutdown_error", zap.Error(err))
    }
}
