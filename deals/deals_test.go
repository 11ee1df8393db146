package deals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adseller/deal-server/catalog"
	"github.com/adseller/deal-server/identity"
	"github.com/adseller/deal-server/opendirect"
	"github.com/adseller/deal-server/proposal"
)

func acceptedResult() *proposal.Result {
	return &proposal.Result{
		ProposalID: "prop-1",
		Status:     proposal.StatusAccepted,
		Evaluation: &proposal.Evaluation{
			ProposalID:             "prop-1",
			ProductID:              "ctv_sports_premium",
			RequestedPrice:         18.0,
			MinimumAcceptablePrice: 16.0,
			RequestedImpressions:   2000000,
		},
	}
}

func dealProposal(dt opendirect.DealType) *proposal.Proposal {
	return &proposal.Proposal{
		ID:          "prop-1",
		ProductID:   "ctv_sports_premium",
		DealType:    dt,
		Price:       18.0,
		Currency:    "USD",
		Impressions: 2000000,
		StartDate:   "2026-09-01",
		EndDate:     "2026-09-30",
	}
}

func dealProduct() *catalog.ProductDefinition {
	return &catalog.ProductDefinition{
		ProductID: "ctv_sports_premium",
		Currency:  "USD",
	}
}

func dealBuyer() *identity.BuyerContext {
	return &identity.BuyerContext{
		Identity: identity.BuyerIdentity{
			SeatID:       "seat-1",
			AgencyID:     "agency-1",
			AdvertiserID: "adv-1",
		},
		IsAuthenticated: true,
	}
}

func TestBuildProgrammaticGuaranteed(t *testing.T) {
	builder := NewBuilder("seller-1")

	deal, err := builder.Build(acceptedResult(), dealProposal(opendirect.DealTypeProgrammaticGuaranteed), dealBuyer(), dealProduct())
	require.NoError(t, err)

	assert.NotEmpty(t, deal.DealID)
	assert.Equal(t, opendirect.DealTypeProgrammaticGuaranteed, deal.DealType)
	assert.Equal(t, int64(2000000), deal.GuaranteedImpressions)
	assert.Equal(t, 36000.0, deal.Budget) // 18 CPM * 2M impressions
	assert.Equal(t, 0.0, deal.FloorPrice)
	assert.Equal(t, "adv-1", deal.BuyerOrganizationID)
	assert.Equal(t, "seller-1", deal.SellerOrganizationID)
	assert.Equal(t, "2026-09-01", deal.FlightStart)
	assert.Equal(t, opendirect.ActivationTraditionalDSP, deal.ActivationType)
}

func TestBuildPreferredDealGetsFloor(t *testing.T) {
	builder := NewBuilder("seller-1")

	deal, err := builder.Build(acceptedResult(), dealProposal(opendirect.DealTypePreferredDeal), dealBuyer(), dealProduct())
	require.NoError(t, err)
	assert.Equal(t, 16.0, deal.FloorPrice)
	assert.Equal(t, int64(0), deal.GuaranteedImpressions)
}

func TestBuildDefaultsDealType(t *testing.T) {
	builder := NewBuilder("seller-1")

	deal, err := builder.Build(acceptedResult(), dealProposal(""), dealBuyer(), dealProduct())
	require.NoError(t, err)
	assert.Equal(t, opendirect.DealTypePreferredDeal, deal.DealType)
}

func TestBuildAgenticActivation(t *testing.T) {
	builder := NewBuilder("seller-1")
	buyer := dealBuyer()
	buyer.AuthenticationMethod = "a2a"

	deal, err := builder.Build(acceptedResult(), dealProposal(opendirect.DealTypePreferredDeal), buyer, dealProduct())
	require.NoError(t, err)
	assert.Equal(t, opendirect.ActivationAgentic, deal.ActivationType)
}

func TestBuildRefusesNonAccepted(t *testing.T) {
	builder := NewBuilder("seller-1")

	result := acceptedResult()
	result.Status = proposal.StatusRejected
	_, err := builder.Build(result, dealProposal(opendirect.DealTypePreferredDeal), dealBuyer(), dealProduct())
	assert.Error(t, err)

	_, err = builder.Build(nil, dealProposal(opendirect.DealTypePreferredDeal), dealBuyer(), dealProduct())
	assert.Error(t, err)
}

func TestBuildUniqueDealIDs(t *testing.T) {
	builder := NewBuilder("seller-1")

	first, err := builder.Build(acceptedResult(), dealProposal(opendirect.DealTypePreferredDeal), dealBuyer(), dealProduct())
	require.NoError(t, err)
	second, err := builder.Build(acceptedResult(), dealProposal(opendirect.DealTypePreferredDeal), dealBuyer(), dealProduct())
	require.NoError(t, err)
	assert.NotEqual(t, first.DealID, second.DealID)
}
