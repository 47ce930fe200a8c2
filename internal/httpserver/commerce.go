package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ebook-storefront/internal/domain"
	cartsvc "ebook-storefront/internal/service/cart"
)

type cartItemRequest struct {
	Product  string `json:"product" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,min=-2147483647,max=2147483647"`
}

type updateCartRequest struct {
	Items []cartItemRequest `json:"items" binding:"required,min=1,dive"`
}

func (h *handlers) updateCart(c *gin.Context) {
	user, _ := currentUser(c)
	var req updateCartRequest
	if !bindJSON(c, &req) {
		return
	}
	in := cartsvc.UpdateInput{Items: make([]domain.CartItem, len(req.Items))}
	for i, it := range req.Items {
		in.Items[i] = domain.CartItem{BookID: it.Product, Quantity: it.Quantity}
	}
	cart, err := h.deps.CartSvc.Update(c.Request.Context(), user.ID, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": toCart(*cart)})
}

func (h *handlers) getCart(c *gin.Context) {
	user, _ := currentUser(c)
	cart, err := h.deps.CartSvc.Get(c.Request.Context(), user.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": toCart(*cart)})
}

func (h *handlers) clearCart(c *gin.Context) {
	user, _ := currentUser(c)
	if err := h.deps.CartSvc.Clear(c.Request.Context(), user.ID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *handlers) checkout(c *gin.Context) {
	user, _ := currentUser(c)
	co, err := h.deps.CheckoutSvc.InitiateCheckout(c.Request.Context(), user.ID, user.Email)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orderId": co.OrderID, "sessionId": co.SessionID, "checkoutUrl": co.URL})
}

func (h *handlers) listOrders(c *gin.Context) {
	user, _ := currentUser(c)
	orders, err := h.deps.OrderSvc.List(c.Request.Context(), user.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrder(o))
	}
	c.JSON(http.StatusOK, gin.H{"orders": out})
}

type orderSuccessRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
}

func (h *handlers) orderSuccess(c *gin.Context) {
	user, _ := currentUser(c)
	var req orderSuccessRequest
	if !bindJSON(c, &req) {
		return
	}
	o, err := h.deps.OrderSvc.Success(c.Request.Context(), user.ID, req.SessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := toOrder(*o)
	c.JSON(http.StatusOK, gin.H{"orders": resp.Items, "totalAmount": resp.Total, "paymentStatus": resp.Status})
}

func (h *handlers) checkPurchase(c *gin.Context) {
	user, _ := currentUser(c)
	ok, err := h.deps.OrderSvc.HasPurchased(c.Request.Context(), user.ID, c.Param("bookId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": ok})
}
