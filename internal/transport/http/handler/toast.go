package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	toastSuccess = "success"
	toastMessage = "message"
	toastError   = "error"
)

// Toast is a one-shot notification shown on the page a flow redirects to.
type Toast struct {
	Type        string `json:"type"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description"`
}

// toastCookie encodes t; on failure the toast is dropped and logged.
func (k *Cookies) toastCookie(c *gin.Context, logger *slog.Logger, t Toast) *http.Cookie {
	sess := k.Toast.Get(c.Request)
	sess.Set("type", t.Type)
	sess.Set("title", t.Title)
	sess.Set("description", t.Description)
	ck, err := k.Toast.Commit(sess)
	if err != nil {
		logger.WarnContext(c.Request.Context(), "encode toast", "error", err)
		return nil
	}
	return ck
}

type ToastHandler struct {
	cookies *Cookies
}

func NewToastHandler(cookies *Cookies) *ToastHandler {
	return &ToastHandler{cookies: cookies}
}

// Pop returns the pending toast, if any, and clears it.
// GET /resources/toast
func (h *ToastHandler) Pop(c *gin.Context) {
	sess := h.cookies.Toast.Get(c.Request)
	desc, ok := sess.Get("description")
	if !ok {
		c.JSON(http.StatusOK, gin.H{"toast": nil})
		return
	}
	typ, _ := sess.Get("type")
	title, _ := sess.Get("title")
	setCookies(c, h.cookies.Toast.Destroy(sess))
	c.JSON(http.StatusOK, gin.H{"toast": Toast{Type: typ, Title: title, Description: desc}})
}
