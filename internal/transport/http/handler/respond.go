package handler

import (
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/accounts/internal/form"
	"github.com/gin-gonic/gin"
)

func reply(c *gin.Context, status int, sub *form.Submission) {
	c.JSON(status, sub.Reply())
}

func fail(c *gin.Context, sub *form.Submission) {
	reply(c, http.StatusBadRequest, sub)
}

func redirect(c *gin.Context, location string, cookies ...*http.Cookie) {
	setCookies(c, cookies...)
	c.Redirect(http.StatusFound, location)
}

func internalError(c *gin.Context, logger *slog.Logger, msg string, err error) {
	logger.ErrorContext(c.Request.Context(), msg, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
}
