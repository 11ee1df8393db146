package endpoints

import (
	"encoding/json"
	"io/ioutil"
	"net/http"

	"github.com/buger/jsonparser"
	"github.com/golang/glog"
	"github.com/julienschmidt/httprouter"

	"github.com/adseller/deal-server/catalog"
	"github.com/adseller/deal-server/deals"
	"github.com/adseller/deal-server/identity"
	"github.com/adseller/deal-server/proposal"
	"github.com/adseller/deal-server/storage"
)

// proposalResponse wraps the pipeline result together with the deal record
// minted when the proposal is accepted.
type proposalResponse struct {
	Result *proposal.Result `json:"result"`
	Deal   *deals.Deal      `json:"deal,omitempty"`
}

type proposalEndpoint struct {
	orchestrator *proposal.Orchestrator
	products     catalog.Fetcher
	dealBuilder  *deals.Builder
	store        storage.Writer
}

// NewProposalEndpoint runs the full evaluation pipeline. Request bodies look
// like {"proposal": {...}, "buyer": {...}}; the buyer object is optional and
// its absence prices the request as an anonymous public buyer. A nil store
// disables deal persistence.
func NewProposalEndpoint(orchestrator *proposal.Orchestrator, products catalog.Fetcher, dealBuilder *deals.Builder, store storage.Writer) httprouter.Handle {
	ep := &proposalEndpoint{
		orchestrator: orchestrator,
		products:     products,
		dealBuilder:  dealBuilder,
		store:        store,
	}
	return ep.handle
}

func (ep *proposalEndpoint) handle(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Error reading request body", err)
		return
	}

	proposalJSON, dataType, _, err := jsonparser.Get(body, "proposal")
	if err != nil || dataType != jsonparser.Object {
		writeError(w, http.StatusBadRequest, "Request requires a proposal object", nil)
		return
	}
	var p proposal.Proposal
	if err := json.Unmarshal(proposalJSON, &p); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed proposal", err)
		return
	}

	var buyerCtx *identity.BuyerContext
	if buyerJSON, dataType, _, err := jsonparser.Get(body, "buyer"); err == nil && dataType == jsonparser.Object {
		buyerCtx = new(identity.BuyerContext)
		if err := json.Unmarshal(buyerJSON, buyerCtx); err != nil {
			writeError(w, http.StatusBadRequest, "Malformed buyer context", err)
			return
		}
	}

	result := ep.orchestrator.Evaluate(r.Context(), &p, buyerCtx)

	resp := proposalResponse{Result: result}
	if result.Status == proposal.StatusAccepted && ep.dealBuilder != nil {
		resp.Deal = ep.buildDeal(r, result, &p, buyerCtx)
	}

	writeJSON(w, resp)
}

// buildDeal mints the deal record for an accepted proposal. Failures here are
// logged but never fail the evaluation response.
func (ep *proposalEndpoint) buildDeal(r *http.Request, result *proposal.Result, p *proposal.Proposal, buyerCtx *identity.BuyerContext) *deals.Deal {
	product, err := ep.products.FetchProduct(r.Context(), p.ProductID)
	if err != nil {
		glog.Errorf("Product %s disappeared between evaluation and deal creation: %v", p.ProductID, err)
		return nil
	}
	deal, err := ep.dealBuilder.Build(result, p, buyerCtx, product)
	if err != nil {
		glog.Errorf("Deal record could not be built for proposal %s: %v", p.ID, err)
		return nil
	}
	if ep.store != nil {
		if err := ep.store.SaveDeal(r.Context(), deal.DealID, deal); err != nil {
			glog.Warningf("Deal %s not persisted: %v", deal.DealID, err)
		}
	}
	return deal
}
