package endpoints

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adseller/deal-server/deals"
	"github.com/adseller/deal-server/opendirect"
	"github.com/adseller/deal-server/proposal"
	"github.com/adseller/deal-server/storage"
)

func postProposal(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()

	products := testCatalog()
	handle := NewProposalEndpoint(testOrchestrator(t, products), products, deals.NewBuilder("seller-1"), nil)

	req := httptest.NewRequest("POST", "/proposals/evaluate", strings.NewReader(body))
	recorder := httptest.NewRecorder()
	handle(recorder, req, nil)
	return recorder
}

func TestProposalEndpointAccepts(t *testing.T) {
	recorder := postProposal(t, `{
		"proposal": {
			"proposal_id": "prop-1",
			"product_id": "ctv_sports_premium",
			"deal_type": "preferred_deal",
			"price": 20.0,
			"currency": "USD",
			"impressions": 1000000,
			"start_date": "2026-09-01",
			"end_date": "2026-09-30"
		},
		"buyer": {
			"identity": {"seat_id": "seat-1", "agency_id": "agency-1", "advertiser_id": "adv-1"},
			"is_authenticated": true
		}
	}`)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))

	var resp proposalResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.NotNil(t, resp.Result)
	assert.Equal(t, proposal.StatusAccepted, resp.Result.Status)
	assert.NotEmpty(t, resp.Result.FlowID)

	require.NotNil(t, resp.Deal)
	assert.Equal(t, opendirect.DealTypePreferredDeal, resp.Deal.DealType)
	assert.Equal(t, 16.0, resp.Deal.FloorPrice)
	assert.Equal(t, "seller-1", resp.Deal.SellerOrganizationID)
}

func TestProposalEndpointPersistsAcceptedDeal(t *testing.T) {
	products := testCatalog()
	store := storage.NewMemoryWriter()
	handle := NewProposalEndpoint(testOrchestrator(t, products), products, deals.NewBuilder("seller-1"), store)

	body := `{
		"proposal": {
			"proposal_id": "prop-1",
			"product_id": "ctv_sports_premium",
			"deal_type": "preferred_deal",
			"price": 20.0,
			"currency": "USD",
			"impressions": 1000000,
			"start_date": "2026-09-01",
			"end_date": "2026-09-30"
		},
		"buyer": {
			"identity": {"seat_id": "seat-1", "agency_id": "agency-1", "advertiser_id": "adv-1"},
			"is_authenticated": true
		}
	}`
	req := httptest.NewRequest("POST", "/proposals/evaluate", strings.NewReader(body))
	recorder := httptest.NewRecorder()
	handle(recorder, req, nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	var resp proposalResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.NotNil(t, resp.Deal)
	require.NotEmpty(t, resp.Deal.DealID)

	records := store.Records(resp.Deal.DealID)
	require.Len(t, records, 1)
	assert.Equal(t, storage.KindDeal, records[0].Kind)

	var saved deals.Deal
	require.NoError(t, json.Unmarshal(records[0].Payload, &saved))
	assert.Equal(t, resp.Deal.DealID, saved.DealID)
	assert.Equal(t, 16.0, saved.FloorPrice)
}

func TestProposalEndpointAnonymousBuyer(t *testing.T) {
	recorder := postProposal(t, `{
		"proposal": {
			"proposal_id": "prop-2",
			"product_id": "ctv_sports_premium",
			"price": 20.0,
			"impressions": 1000000,
			"start_date": "2026-09-01",
			"end_date": "2026-09-30"
		}
	}`)

	require.Equal(t, http.StatusOK, recorder.Code)

	var resp proposalResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.NotNil(t, resp.Result)
	assert.True(t, resp.Result.Status.Terminal())
}

func TestProposalEndpointFailedPipelineStillResponds(t *testing.T) {
	recorder := postProposal(t, `{
		"proposal": {
			"proposal_id": "prop-3",
			"product_id": "ctv_sports_premium",
			"price": 20.0,
			"impressions": 1000000
		}
	}`)

	require.Equal(t, http.StatusOK, recorder.Code)

	var resp proposalResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, proposal.StatusFailed, resp.Result.Status)
	assert.Nil(t, resp.Deal)
	assert.NotEmpty(t, resp.Result.Errors)
}

func TestProposalEndpointBadRequests(t *testing.T) {
	testCases := []struct {
		description string
		body        string
	}{
		{
			description: "empty body",
			body:        "",
		},
		{
			description: "not json",
			body:        "not-json",
		},
		{
			description: "missing proposal object",
			body:        `{"buyer": {}}`,
		},
		{
			description: "proposal is not an object",
			body:        `{"proposal": "yes please"}`,
		},
	}

	for _, test := range testCases {
		recorder := postProposal(t, test.body)
		assert.Equal(t, http.StatusBadRequest, recorder.Code, test.description)
	}
}

func TestProposalEndpointMalformedBuyer(t *testing.T) {
	recorder := postProposal(t, `{
		"proposal": {"proposal_id": "p", "product_id": "ctv_sports_premium", "impressions": 1, "start_date": "2026-09-01", "end_date": "2026-09-30"},
		"buyer": {"is_authenticated": "definitely"}
	}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
