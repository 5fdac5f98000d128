package handler

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"oahushop/internal/app"
	"oahushop/internal/config"
	"oahushop/internal/logx"
)

var (
	once    sync.Once
	shop    *app.App
	initErr error
)

func setup() {
	cfg, err := config.Load()
	if err != nil {
		initErr = err
		return
	}
	logx.Init(logx.LoggerOpts{Environment: cfg.Environment()})
	gin.SetMode(gin.ReleaseMode)
	shop, initErr = app.New(cfg)
}

// Handler is the serverless entry point; the shop is built on first request.
func Handler(w http.ResponseWriter, r *http.Request) {
	once.Do(setup)
	if initErr != nil {
		logx.Error().Err(initErr).Msg("shop init failed")
		http.Error(w, "서비스를 시작할 수 없습니다.", http.StatusInternalServerError)
		return
	}
	shop.Router().ServeHTTP(w, r)
}
