package httpserver

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	authsvc "ebook-storefront/internal/service/auth"
)

type generateLinkRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (h *handlers) generateLink(c *gin.Context) {
	var req generateLinkRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.deps.AuthSvc.GenerateLink(c.Request.Context(), req.Email); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Please check your email to verify your account."})
}

func (h *handlers) verify(c *gin.Context) {
	user, session, err := h.deps.AuthSvc.Verify(c.Request.Context(), c.Query("userId"), c.Query("token"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, session, int(h.deps.AuthSvc.SessionTTL().Seconds()), "/", "", h.opts.SecureCookies, true)

	if h.opts.AuthSuccessURL == "" {
		c.JSON(http.StatusOK, gin.H{"profile": user})
		return
	}
	profile, err := json.Marshal(user)
	if err != nil {
		writeError(c, err)
		return
	}
	target, err := url.Parse(h.opts.AuthSuccessURL)
	if err != nil {
		writeError(c, err)
		return
	}
	q := target.Query()
	q.Set("profile", string(profile))
	target.RawQuery = q.Encode()
	c.Redirect(http.StatusFound, target.String())
}

func (h *handlers) profile(c *gin.Context) {
	user, _ := currentUser(c)
	c.JSON(http.StatusOK, gin.H{"profile": user})
}

func (h *handlers) updateProfile(c *gin.Context) {
	user, _ := currentUser(c)

	in := authsvc.UpdateProfileInput{Name: c.PostForm("name")}
	if fh, err := c.FormFile("avatar"); err == nil {
		f, err := fh.Open()
		if err != nil {
			badRequest(c, "invalid avatar")
			return
		}
		defer f.Close()
		in.Avatar = &authsvc.Avatar{Filename: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Body: f}
	}

	updated, err := h.deps.AuthSvc.UpdateProfile(c.Request.Context(), user, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": updated})
}

func (h *handlers) logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, "", -1, "/", "", h.opts.SecureCookies, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
