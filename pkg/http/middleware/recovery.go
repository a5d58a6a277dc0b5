package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"

	applogger "RiskPulse/pkg/logger"
)

// Recover converts a handler panic into a logged 500 in the usual envelope.
func Recover(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				l.Error("panic while serving request",
					applogger.String("route", c.Path()),
					applogger.Error(fmt.Errorf("%v", r)),
					applogger.String("stack", string(debug.Stack())),
				)
				code := http.StatusInternalServerError
				err = c.JSON(code, echo.Map{"status": code, "message": http.StatusText(code)})
			}()
			return next(c)
		}
	}
}
