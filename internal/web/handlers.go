package web

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/order-importer/internal/address"
)

// Handlers holds the dependencies shared by all endpoints.
type Handlers struct {
	DB     *sql.DB
	Parser address.Parser
	Logger *zap.Logger
}

type parseRequest struct {
	Address string `json:"address"`
	Role    string `json:"role"`
}

type parseResponse struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Parse runs a one-off address parse.
func (h *Handlers) Parse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role := address.Role(req.Role)
	if role == "" {
		role = address.RoleShipping
	}
	if role != address.RoleShipping && role != address.RoleBilling {
		writeError(w, http.StatusBadRequest, "role must be shipping or billing")
		return
	}

	c, ok := h.Parser.Parse(req.Address, role)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "address could not be parsed")
		return
	}

	writeJSON(w, http.StatusOK, parseResponse{
		Line1:      c.Line1,
		Line2:      c.Line2,
		City:       c.City,
		State:      c.State,
		PostalCode: c.PostalCode,
		Country:    c.Country,
	})
}

type addressRecord struct {
	ID         int64  `json:"id"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type orderAddressesResponse struct {
	OrderID  string        `json:"order_id"`
	Shipping addressRecord `json:"shipping"`
	Billing  addressRecord `json:"billing"`
}

// OrderAddresses returns the resolved shipping and billing addresses of
// one order.
func (h *Handlers) OrderAddresses(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]

	var shippingID, billingID int64
	err := h.DB.QueryRowContext(r.Context(), `
		SELECT shipping_address_id, billing_address_id
		FROM order_addresses WHERE order_id = $1
	`, orderID).Scan(&shippingID, &billingID)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "order has no linked addresses")
		return
	}
	if err != nil {
		h.Logger.Error("order address lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	shipping, err := h.fetchAddress(r, shippingID)
	if err != nil {
		h.Logger.Error("address fetch failed", zap.Int64("id", shippingID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	billing, err := h.fetchAddress(r, billingID)
	if err != nil {
		h.Logger.Error("address fetch failed", zap.Int64("id", billingID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	writeJSON(w, http.StatusOK, orderAddressesResponse{
		OrderID:  orderID,
		Shipping: shipping,
		Billing:  billing,
	})
}

func (h *Handlers) fetchAddress(r *http.Request, id int64) (addressRecord, error) {
	var rec addressRecord
	var line2 sql.NullString
	err := h.DB.QueryRowContext(r.Context(), `
		SELECT id, address_line1, address_line2, city, state, postal_code, country
		FROM addresses WHERE id = $1
	`, id).Scan(&rec.ID, &rec.Line1, &line2, &rec.City, &rec.State, &rec.PostalCode, &rec.Country)
	rec.Line2 = line2.String
	return rec, err
}

// statsTables are the tables reported by the stats endpoint.
var statsTables = []string{
	"products", "orders", "order_items", "addresses", "order_addresses",
	"returns", "refunds", "digital_orders", "digital_order_items",
	"digital_order_payments", "digital_borrows",
}

// Stats reports row counts per imported table.
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	counts := make(map[string]int, len(statsTables))
	for _, table := range statsTables {
		var count int
		// table names come from the fixed list above, not user input
		if err := h.DB.QueryRowContext(r.Context(), "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			h.Logger.Error("stats query failed", zap.String("table", table), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "database error")
			return
		}
		counts[table] = count
	}
	writeJSON(w, http.StatusOK, counts)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
