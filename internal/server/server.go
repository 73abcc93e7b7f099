package server

import (
	"app/internal/config"
	"app/internal/handler"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// New はechoを組み立てて返す（テストからも使う）。
func New(cfg config.Config, cartH *handler.CartHandler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	RegisterRoutes(e, cfg, cartH)

	return e
}

func Start(addr string, cfg config.Config, cartH *handler.CartHandler) error {
	e := New(cfg, cartH)
	return e.Start(addr)
}
