package endpoints

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adseller/deal-server/audience"
)

func postValidate(t *testing.T, body []byte) *httptest.ResponseRecorder {
	t.Helper()

	handle := NewValidateEndpoint(audience.NewValidator(0), testCatalog(), blankMetrics())
	req := httptest.NewRequest("POST", "/audience/validate", bytes.NewReader(body))
	recorder := httptest.NewRecorder()
	handle(recorder, req, nil)
	return recorder
}

func consentedBuyerEmbedding() *audience.Embedding {
	emb := *testProduct().InventoryEmbedding()
	emb.EmbeddingType = audience.EmbeddingQuery
	emb.Consent = &audience.Consent{
		Framework:       "tcf_v2",
		PermissibleUses: []string{"audience_matching"},
	}
	return &emb
}

func TestValidateEndpointMatchingEmbedding(t *testing.T) {
	body, err := json.Marshal(validateRequest{
		ProductID:      "ctv_sports_premium",
		BuyerEmbedding: consentedBuyerEmbedding(),
		Requirements:   &audience.Requirements{Interests: []string{"sports"}},
	})
	require.NoError(t, err)

	recorder := postValidate(t, body)
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp validateResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, audience.StatusValid, resp.Validation.Status)
	assert.True(t, resp.Validation.TargetingCompatible)
	assert.InDelta(t, 100.0, resp.Validation.CoveragePercentage, 0.01)
	assert.Nil(t, resp.Coverage)
}

func TestValidateEndpointMissingConsent(t *testing.T) {
	body, err := json.Marshal(validateRequest{ProductID: "ctv_sports_premium"})
	require.NoError(t, err)

	recorder := postValidate(t, body)
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp validateResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, audience.StatusInvalid, resp.Validation.Status)
	assert.False(t, resp.Validation.TargetingCompatible)
}

func TestValidateEndpointIncludesCoverageWhenImpressionsGiven(t *testing.T) {
	body, err := json.Marshal(validateRequest{
		ProductID:      "ctv_sports_premium",
		BuyerEmbedding: consentedBuyerEmbedding(),
		Requirements:   &audience.Requirements{Demographics: map[string]string{"age": "18-34"}},
		Impressions:    1000000,
	})
	require.NoError(t, err)

	recorder := postValidate(t, body)
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp validateResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.NotNil(t, resp.Coverage)
	assert.True(t, resp.Coverage.CoveragePercentage > 0)
	assert.True(t, resp.Coverage.EstimatedImpressions > 0)
}

func TestValidateEndpointErrors(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, postValidate(t, []byte("not-json")).Code)
	assert.Equal(t, http.StatusBadRequest, postValidate(t, []byte(`{}`)).Code)
	assert.Equal(t, http.StatusNotFound, postValidate(t, []byte(`{"product_id": "no_such_product"}`)).Code)
}

func getCapabilities(t *testing.T, query string) *httptest.ResponseRecorder {
	t.Helper()

	handle := NewCapabilitiesEndpoint(testCatalog())
	req := httptest.NewRequest("GET", "/audience/capabilities"+query, nil)
	recorder := httptest.NewRecorder()
	handle(recorder, req, nil)
	return recorder
}

func TestCapabilitiesEndpoint(t *testing.T) {
	recorder := getCapabilities(t, "?product_id=ctv_sports_premium")
	require.Equal(t, http.StatusOK, recorder.Code)

	var report audience.CapabilityReport
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &report))
	assert.Equal(t, 3, report.TotalCapabilities)
	assert.NotEmpty(t, report.BySignalType[audience.SignalContextual])
	assert.NotEmpty(t, report.BySignalType[audience.SignalIdentity])
}

func TestCapabilitiesEndpointErrors(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, getCapabilities(t, "").Code)
	assert.Equal(t, http.StatusNotFound, getCapabilities(t, "?product_id=no_such_product").Code)
}

func TestStatusEndpoint(t *testing.T) {
	recorder := httptest.NewRecorder()
	NewStatusEndpoint("")(recorder, httptest.NewRequest("GET", "/status", nil), nil)
	assert.Equal(t, http.StatusNoContent, recorder.Code)

	recorder = httptest.NewRecorder()
	NewStatusEndpoint("ready")(recorder, httptest.NewRequest("GET", "/status", nil), nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "ready", recorder.Body.String())
}
