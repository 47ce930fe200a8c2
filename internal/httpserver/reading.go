package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	historysvc "ebook-storefront/internal/service/history"
	reviewsvc "ebook-storefront/internal/service/review"
)

func (h *handlers) updateHistory(c *gin.Context) {
	user, _ := currentUser(c)
	var in historysvc.UpdateInput
	if !bindJSON(c, &in) {
		return
	}
	hist, err := h.deps.HistorySvc.Update(c.Request.Context(), user.ID, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": toHistory(*hist)})
}

func (h *handlers) getHistory(c *gin.Context) {
	user, _ := currentUser(c)
	hist, err := h.deps.HistorySvc.Get(c.Request.Context(), user.ID, c.Param("bookId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": toHistory(*hist)})
}

func (h *handlers) upsertReview(c *gin.Context) {
	user, _ := currentUser(c)
	var in reviewsvc.Input
	if !bindJSON(c, &in) {
		return
	}
	rv, err := h.deps.ReviewSvc.Upsert(c.Request.Context(), user.ID, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"review": toReview(*rv, false)})
}

func (h *handlers) getReview(c *gin.Context) {
	user, _ := currentUser(c)
	rv, err := h.deps.ReviewSvc.Get(c.Request.Context(), user.ID, c.Param("bookId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"review": toReview(*rv, false)})
}

func (h *handlers) listReviews(c *gin.Context) {
	reviews, err := h.deps.ReviewSvc.List(c.Request.Context(), c.Param("bookId"))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]reviewResponse, 0, len(reviews))
	for _, rv := range reviews {
		out = append(out, toReview(rv, true))
	}
	c.JSON(http.StatusOK, gin.H{"reviews": out})
}
