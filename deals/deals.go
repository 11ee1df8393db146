// Package deals turns accepted evaluations into immutable deal records ready
// for downstream activation.
package deals

import (
	"time"

	"github.com/gofrs/uuid"

	"github.com/adseller/deal-server/catalog"
	"github.com/adseller/deal-server/errortypes"
	"github.com/adseller/deal-server/identity"
	"github.com/adseller/deal-server/opendirect"
	"github.com/adseller/deal-server/proposal"
)

// Deal is the terminal artifact of a successful evaluation. Once built it is
// never mutated; re-negotiation produces a new deal.
type Deal struct {
	DealID     string              `json:"deal_id"`
	DealType   opendirect.DealType `json:"deal_type"`
	ProposalID string              `json:"proposal_id"`
	ProductID  string              `json:"product_id"`

	Price        float64                 `json:"price"`
	PricingModel opendirect.PricingModel `json:"pricing_model"`
	Currency     string                  `json:"currency"`

	// Set for programmatic guaranteed deals.
	GuaranteedImpressions int64   `json:"guaranteed_impressions,omitempty"`
	Budget                float64 `json:"budget,omitempty"`

	// Set for preferred deals and private auctions.
	FloorPrice float64 `json:"floor_price,omitempty"`

	AdServerDealID string `json:"ad_server_deal_id,omitempty"`
	OpenRTBDealID  string `json:"openrtb_deal_id,omitempty"`

	CreatedAt            time.Time `json:"created_at"`
	BuyerOrganizationID  string    `json:"buyer_organization_id"`
	SellerOrganizationID string    `json:"seller_organization_id"`
	FlightStart          string    `json:"flight_start"`
	FlightEnd            string    `json:"flight_end"`

	ActivationType opendirect.ActivationType `json:"activation_type"`
	DSPCompatible  bool                      `json:"dsp_compatible"`
}

// Builder creates deal records for one seller organization.
type Builder struct {
	sellerOrgID string
}

// NewBuilder returns a Builder stamping deals with the given seller org id.
func NewBuilder(sellerOrgID string) *Builder {
	return &Builder{sellerOrgID: sellerOrgID}
}

// Build converts an accepted (or countered-and-accepted) evaluation into a
// Deal. Evaluations in any other state are refused.
func (b *Builder) Build(result *proposal.Result, p *proposal.Proposal, buyerCtx *identity.BuyerContext, product *catalog.ProductDefinition) (*Deal, error) {
	if result == nil || result.Status != proposal.StatusAccepted {
		return nil, &errortypes.BadInput{Message: "only accepted proposals produce deals"}
	}
	if result.Evaluation == nil {
		return nil, &errortypes.BadInput{Message: "accepted result carries no evaluation"}
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}

	dealType := p.DealType
	if dealType == "" {
		dealType = opendirect.DealTypePreferredDeal
	}

	eval := result.Evaluation
	deal := &Deal{
		DealID:               id.String(),
		DealType:             dealType,
		ProposalID:           p.ID,
		ProductID:            product.ProductID,
		Price:                eval.RequestedPrice,
		PricingModel:         opendirect.PricingModelCPM,
		Currency:             currencyOf(p, product),
		CreatedAt:            time.Now().UTC(),
		BuyerOrganizationID:  buyerOrg(buyerCtx),
		SellerOrganizationID: b.sellerOrgID,
		FlightStart:          p.StartDate,
		FlightEnd:            p.EndDate,
		ActivationType:       opendirect.ActivationTraditionalDSP,
		DSPCompatible:        true,
	}

	switch dealType {
	case opendirect.DealTypeProgrammaticGuaranteed:
		deal.GuaranteedImpressions = eval.RequestedImpressions
		deal.Budget = eval.RequestedPrice * float64(eval.RequestedImpressions) / 1000
	default:
		deal.FloorPrice = eval.MinimumAcceptablePrice
	}

	if buyerCtx != nil && buyerCtx.AuthenticationMethod == "a2a" {
		deal.ActivationType = opendirect.ActivationAgentic
	}
	return deal, nil
}

func currencyOf(p *proposal.Proposal, product *catalog.ProductDefinition) string {
	if p.Currency != "" {
		return p.Currency
	}
	if product.Currency != "" {
		return product.Currency
	}
	return "USD"
}

func buyerOrg(buyerCtx *identity.BuyerContext) string {
	if buyerCtx == nil {
		return ""
	}
	if buyerCtx.Identity.AdvertiserID != "" {
		return buyerCtx.Identity.AdvertiserID
	}
	if buyerCtx.Identity.AgencyID != "" {
		return buyerCtx.Identity.AgencyID
	}
	return buyerCtx.Identity.SeatID
}
