package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/shinyyama/inventory-backend/internal/reqctx"
)

// RequestID propagates X-Request-ID, minting one when the client sent none.
func RequestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		rid := c.Request().Header.Get(echo.HeaderXRequestID)
		if rid == "" || len(rid) > 128 {
			rid = uuid.NewString()
		}
		c.Response().Header().Set(echo.HeaderXRequestID, rid)
		c.SetRequest(c.Request().WithContext(reqctx.WithRID(c.Request().Context(), rid)))
		return next(c)
	}
}
