package middleware

import "github.com/labstack/echo/v4"

// writeError renders the same {"message": ...} body as echo.HTTPError for
// middleware that answers without calling the handler.
func writeError(c echo.Context, status int, message string) error {
	if c.Response().Committed {
		return nil
	}
	return c.JSON(status, map[string]string{"message": message})
}
