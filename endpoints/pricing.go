package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/adseller/deal-server/catalog"
	"github.com/adseller/deal-server/identity"
	"github.com/adseller/deal-server/metrics"
	"github.com/adseller/deal-server/opendirect"
	"github.com/adseller/deal-server/pricing"
)

type quoteRequest struct {
	ProductID   string                 `json:"product_id"`
	DealType    opendirect.DealType    `json:"deal_type,omitempty"`
	Impressions int64                  `json:"impressions,omitempty"`
	Buyer       *identity.BuyerContext `json:"buyer,omitempty"`
}

type quoteEndpoint struct {
	engine   *pricing.Engine
	products catalog.Fetcher
	metrics  *metrics.Metrics
}

// NewQuoteEndpoint prices one product for one buyer. The base price always
// comes from the catalog so buyers cannot quote against a price they invented.
func NewQuoteEndpoint(engine *pricing.Engine, products catalog.Fetcher, me *metrics.Metrics) httprouter.Handle {
	ep := &quoteEndpoint{engine: engine, products: products, metrics: me}
	return ep.handle
}

func (ep *quoteEndpoint) handle(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed quote request", err)
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "Quote request requires a product_id", nil)
		return
	}

	product, err := ep.products.FetchProduct(r.Context(), req.ProductID)
	if err != nil {
		if catalog.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Unknown product "+req.ProductID, nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Product lookup failed", err)
		return
	}

	decision := ep.engine.CalculatePrice(product.ProductID, product.BaseCPM, req.Buyer, req.DealType, req.Impressions, product.InventoryType)
	ep.metrics.RecordQuote(decision.FinalPrice)
	writeJSON(w, decision)
}

type priceDisplayEndpoint struct {
	engine   *pricing.Engine
	products catalog.Fetcher
}

// NewPriceDisplayEndpoint renders the tier-appropriate price view for a
// product. Buyer identity arrives via query parameters because the endpoint
// is a GET; only authenticated=true unlocks non-public views.
func NewPriceDisplayEndpoint(engine *pricing.Engine, products catalog.Fetcher) httprouter.Handle {
	ep := &priceDisplayEndpoint{engine: engine, products: products}
	return ep.handle
}

func (ep *priceDisplayEndpoint) handle(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()
	productID := query.Get("product_id")
	if productID == "" {
		writeError(w, http.StatusBadRequest, "Display request requires a product_id", nil)
		return
	}

	product, err := ep.products.FetchProduct(r.Context(), productID)
	if err != nil {
		if catalog.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Unknown product "+productID, nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Product lookup failed", err)
		return
	}

	buyerCtx := &identity.BuyerContext{
		Identity: identity.BuyerIdentity{
			SeatID:       query.Get("seat_id"),
			AgencyID:     query.Get("agency_id"),
			AdvertiserID: query.Get("advertiser_id"),
		},
		IsAuthenticated: query.Get("authenticated") == "true",
	}

	writeJSON(w, ep.engine.GetPriceDisplay(product.BaseCPM, buyerCtx))
}
