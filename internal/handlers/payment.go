package handlers

import (
	"net/http"
	"net/netip"

	"github.com/promptforge/backend/internal/apperr"
	"github.com/promptforge/backend/internal/paywall"
)

type Payments struct {
	Engine   *paywall.Engine
	Checkout *paywall.Checkout
}

type payURLRequest struct {
	ProductID       string   `json:"productId"`
	PromoCode       *string  `json:"promoCode"`
	CategoryIDs     []string `json:"categoryIds"`
	ExpandProductID *string  `json:"expandProductId"`
}

// POST /pay/url opens a provider checkout and returns the redirect URL.
func (h *Payments) CreateURL(w http.ResponseWriter, r *http.Request) {
	var req payURLRequest
	if !decode(w, r, &req) {
		return
	}
	url, err := h.Checkout.CreateURL(r.Context(), paywall.CheckoutRequest{
		UserID:          caller(r).UserID,
		ProductID:       req.ProductID,
		PromoCode:       req.PromoCode,
		CategoryIDs:     req.CategoryIDs,
		ExpandProductID: req.ExpandProductID,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "status success",
		"url":     url,
	})
}

type callbackRequest struct {
	Event  string `json:"event"`
	Object struct {
		ID string `json:"id"`
	} `json:"object"`
}

// Callback is the provider's server-to-server notification endpoint. It is
// unauthenticated; the source address allow-list is the only gate.
func (h *Payments) Callback(w http.ResponseWriter, r *http.Request) {
	source, err := sourceAddr(r.RemoteAddr)
	if err != nil {
		writeErr(w, apperr.New(apperr.Forbidden, "this endpoint is only for the payment provider"))
		return
	}

	var req callbackRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.Checkout.Confirm(source, req.Event, req.Object.ID); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "status success"})
}

// sourceAddr handles both the bare-IP form the RealIP middleware leaves
// behind and the ip:port form of a direct connection.
func sourceAddr(remote string) (netip.Addr, error) {
	if addr, err := netip.ParseAddr(remote); err == nil {
		return addr, nil
	}
	ap, err := netip.ParseAddrPort(remote)
	if err != nil {
		return netip.Addr{}, err
	}
	return ap.Addr(), nil
}

type productJSON struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Price          int      `json:"price"`
	DurationDays   *int     `json:"durationDays"`
	UsageCount     *int     `json:"usageCount"`
	CategoriesSize *int     `json:"categoriesSize"`
	Expanding      bool     `json:"expanding"`
	CategoryIDs    []string `json:"categoryIds"`
}

// GET /pay/products
func (h *Payments) Products(w http.ResponseWriter, r *http.Request) {
	views, err := h.Engine.Products()
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]productJSON, 0, len(views))
	for _, v := range views {
		out = append(out, productJSON{
			ID:             v.Product.ID,
			Title:          v.Product.Title,
			Description:    v.Product.Description,
			Price:          v.Product.Price,
			DurationDays:   v.Product.DurationDays,
			UsageCount:     v.Product.UsageCount,
			CategoriesSize: v.Product.CategoriesSize,
			Expanding:      v.Product.Expanding,
			CategoryIDs:    v.CategoryIDs,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "status success",
		"data":    out,
	})
}

type promoRequest struct {
	ProductID string `json:"productId"`
	PromoCode string `json:"promoCode"`
}

// POST /pay/promo quotes the discounted price without opening a checkout.
func (h *Payments) CheckPromo(w http.ResponseWriter, r *http.Request) {
	var req promoRequest
	if !decode(w, r, &req) {
		return
	}
	price, err := h.Engine.Price(req.ProductID, &req.PromoCode)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "status success",
		"newPrice": price,
	})
}
