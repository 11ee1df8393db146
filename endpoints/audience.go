package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/adseller/deal-server/audience"
	"github.com/adseller/deal-server/catalog"
	"github.com/adseller/deal-server/metrics"
)

type validateRequest struct {
	ProductID      string                 `json:"product_id"`
	BuyerEmbedding *audience.Embedding    `json:"buyer_embedding,omitempty"`
	Requirements   *audience.Requirements `json:"requirements,omitempty"`
	Impressions    int64                  `json:"impressions,omitempty"`
}

type validateResponse struct {
	Validation audience.ValidationResult  `json:"validation"`
	Coverage   *audience.CoverageEstimate `json:"coverage,omitempty"`
}

type validateEndpoint struct {
	validator *audience.Validator
	products  catalog.Fetcher
	metrics   *metrics.Metrics
}

// NewValidateEndpoint checks a buyer's audience request against one product's
// inventory embedding and capabilities. A positive impressions count also
// returns the reach estimate for the same capability set.
func NewValidateEndpoint(validator *audience.Validator, products catalog.Fetcher, me *metrics.Metrics) httprouter.Handle {
	ep := &validateEndpoint{validator: validator, products: products, metrics: me}
	return ep.handle
}

func (ep *validateEndpoint) handle(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed validation request", err)
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "Validation request requires a product_id", nil)
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

	capabilities := product.EffectiveCapabilities()
	result := ep.validator.Validate(req.BuyerEmbedding, product.InventoryEmbedding(), capabilities, req.Requirements)
	ep.metrics.RecordAudienceValidation(result.TargetingCompatible)

	resp := validateResponse{Validation: result}
	if req.Impressions > 0 {
		coverage := ep.validator.CalculateCoverage(req.Requirements, capabilities, req.Impressions)
		resp.Coverage = &coverage
	}

	writeJSON(w, resp)
}

type capabilitiesEndpoint struct {
	products catalog.Fetcher
}

// NewCapabilitiesEndpoint reports the audience signals available on a product,
// grouped by signal type, so buyers can discover what they may target.
func NewCapabilitiesEndpoint(products catalog.Fetcher) httprouter.Handle {
	ep := &capabilitiesEndpoint{products: products}
	return ep.handle
}

func (ep *capabilitiesEndpoint) handle(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	productID := r.URL.Query().Get("product_id")
	if productID == "" {
		writeError(w, http.StatusBadRequest, "Capability report requires a product_id", nil)
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

	writeJSON(w, audience.ReportCapabilities(product.EffectiveCapabilities()))
}
