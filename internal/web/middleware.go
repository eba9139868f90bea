package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const ctxIsAdmin = "isAdmin"

// loadSession resolves the session cookie to the admin flag and slides the
// cookie expiry forward for authorized requests.
func (s *Server) loadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := s.guard.FromRequest(c.Request)
		if fresh, ok := s.guard.Refresh(token); ok {
			c.Set(ctxIsAdmin, true)
			http.SetCookie(c.Writer, s.guard.Cookie(fresh))
		}
		c.Next()
	}
}

func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isAdmin(c) {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

func isAdmin(c *gin.Context) bool {
	return c.GetBool(ctxIsAdmin)
}
