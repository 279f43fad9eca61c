package dataloader

import "github.com/labstack/echo/v4"

// Middleware instantiates per-request loaders and stores them in the request context.
func Middleware(src Source) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			c.SetRequest(req.WithContext(WithLoaders(req.Context(), NewLoaders(src))))
			return next(c)
		}
	}
}
