package endpoints

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adseller/deal-server/audience"
	"github.com/adseller/deal-server/avails"
	"github.com/adseller/deal-server/catalog"
	"github.com/adseller/deal-server/metrics"
	"github.com/adseller/deal-server/opendirect"
	"github.com/adseller/deal-server/pricing"
	"github.com/adseller/deal-server/proposal"
	"github.com/adseller/deal-server/storage"
	"github.com/adseller/deal-server/yield"
)

func testProduct() *catalog.ProductDefinition {
	return &catalog.ProductDefinition{
		ProductID:          "ctv_sports_premium",
		Name:               "CTV Sports Premium",
		InventoryType:      "ctv",
		SupportedDealTypes: []opendirect.DealType{opendirect.DealTypePreferredDeal},
		BaseCPM:            20.0,
		FloorCPM:           16.0,
		Currency:           "USD",
	}
}

func testCatalog() catalog.Fetcher {
	return catalog.NewMemoryFetcher(map[string]*catalog.ProductDefinition{
		"ctv_sports_premium": testProduct(),
	})
}

func testEngine(t *testing.T) *pricing.Engine {
	t.Helper()
	engine, err := pricing.NewEngine(pricing.NewTieredConfig("seller-1"), nil)
	require.NoError(t, err)
	return engine
}

func testOrchestrator(t *testing.T, products catalog.Fetcher) *proposal.Orchestrator {
	t.Helper()
	orch, err := proposal.NewOrchestrator(proposal.Dependencies{
		Catalog:  products,
		Pricing:  testEngine(t),
		Audience: audience.NewValidator(0),
		Yield:    yield.NewOptimizer(),
		Avails:   avails.NewStaticSource(map[string]int64{"ctv_sports_premium": 5000000}),
		Storage:  storage.NewMemoryWriter(),
	})
	require.NoError(t, err)
	return orch
}

func blankMetrics() *metrics.Metrics {
	return metrics.NewBlankMetrics(nil)
}
