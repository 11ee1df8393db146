// Package router builds the deal server's collaborators from configuration
// and registers every HTTP route.
package router

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/julienschmidt/httprouter"
	_ "github.com/lib/pq"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/rs/cors"

	"github.com/adseller/deal-server/audience"
	"github.com/adseller/deal-server/avails"
	"github.com/adseller/deal-server/catalog"
	"github.com/adseller/deal-server/config"
	"github.com/adseller/deal-server/currency"
	"github.com/adseller/deal-server/deals"
	"github.com/adseller/deal-server/endpoints"
	"github.com/adseller/deal-server/metrics"
	"github.com/adseller/deal-server/pricing"
	"github.com/adseller/deal-server/proposal"
	"github.com/adseller/deal-server/storage"
	"github.com/adseller/deal-server/yield"
)

// Router is the configured HTTP mux plus the long-lived collaborators the
// admin surface and tests need access to.
type Router struct {
	*httprouter.Router
	Metrics      *metrics.Metrics
	Orchestrator *proposal.Orchestrator
	Shutdown     func()
}

// New wires the full evaluation stack from configuration and registers the
// HTTP routes. Configuration mistakes fail construction, never a request.
func New(cfg *config.Configuration) (*Router, error) {
	r := &Router{
		Router:   httprouter.New(),
		Shutdown: func() {},
	}

	pricingCfg, err := loadPricingConfig(cfg)
	if err != nil {
		return nil, err
	}

	engine, err := pricing.NewEngine(pricingCfg, loadCurrencyRates(cfg.Pricing.CurrencyRatesURL))
	if err != nil {
		return nil, fmt.Errorf("Pricing engine could not be built: %v", err)
	}

	products, closeCatalog, err := newCatalogFetcher(cfg)
	if err != nil {
		return nil, err
	}

	store, closeStorage, err := newStorageWriter(cfg)
	if err != nil {
		closeCatalog()
		return nil, err
	}
	r.Shutdown = func() {
		closeCatalog()
		closeStorage()
	}

	optimizer, err := yield.NewOptimizerWithWeights(
		cfg.Yield.FillRateTarget,
		cfg.Yield.RevenueWeight,
		cfg.Yield.RelationshipWeight,
		cfg.Yield.FillRateWeight,
		cfg.Yield.PricingPowerWeight,
	)
	if err != nil {
		r.Shutdown()
		return nil, fmt.Errorf("Yield configuration rejected: %v", err)
	}

	r.Metrics = newMetrics(cfg)

	var advisor proposal.Advisor
	if cfg.Advisory.Endpoint != "" {
		advisor = proposal.NewHTTPAdvisor(cfg.Advisory.Endpoint, time.Duration(cfg.Advisory.TimeoutMS)*time.Millisecond)
	}

	orchestrator, err := proposal.NewOrchestrator(proposal.Dependencies{
		Catalog:             products,
		Pricing:             engine,
		Audience:            audience.NewValidator(cfg.Audience.MinimumCoveragePct),
		Yield:               optimizer,
		Avails:              avails.NewStaticSource(cfg.Avails.ByProduct),
		Storage:             store,
		Advisor:             advisor,
		Metrics:             r.Metrics,
		CollaboratorTimeout: time.Duration(cfg.Advisory.TimeoutMS) * time.Millisecond,
		CurrentFillRate:     cfg.Yield.CurrentFillRate,
		MarketCPM:           cfg.Pricing.MarketCPM,
	})
	if err != nil {
		r.Shutdown()
		return nil, fmt.Errorf("Evaluation pipeline could not be built: %v", err)
	}
	r.Orchestrator = orchestrator

	validator := audience.NewValidator(cfg.Audience.MinimumCoveragePct)
	dealBuilder := deals.NewBuilder(cfg.SellerOrganizationID)

	r.POST("/proposals/evaluate", endpoints.NewProposalEndpoint(orchestrator, products, dealBuilder, store))
	r.POST("/pricing/quote", endpoints.NewQuoteEndpoint(engine, products, r.Metrics))
	r.GET("/pricing/display", endpoints.NewPriceDisplayEndpoint(engine, products))
	r.POST("/audience/validate", endpoints.NewValidateEndpoint(validator, products, r.Metrics))
	r.GET("/audience/capabilities", endpoints.NewCapabilitiesEndpoint(products))
	r.GET("/status", endpoints.NewStatusEndpoint(cfg.StatusResponse))

	return r, nil
}

// loadPricingConfig returns the seller's tiered pricing configuration: the
// built-in tier ladder, plus the seller rules file when one is configured.
// The rules file is a JSON array of pricing rules, schema-checked before use.
func loadPricingConfig(cfg *config.Configuration) (*pricing.TieredConfig, error) {
	tiered := pricing.NewTieredConfig(cfg.SellerOrganizationID)
	if cfg.Pricing.RulesFile == "" {
		return tiered, nil
	}

	data, err := ioutil.ReadFile(cfg.Pricing.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("Could not read pricing rules file %s: %v", cfg.Pricing.RulesFile, err)
	}
	if err := pricing.ValidateRulesJSON(data); err != nil {
		return nil, fmt.Errorf("Pricing rules file %s rejected: %v", cfg.Pricing.RulesFile, err)
	}
	if err := json.Unmarshal(data, &tiered.Rules); err != nil {
		return nil, fmt.Errorf("Could not parse pricing rules file %s: %v", cfg.Pricing.RulesFile, err)
	}
	return tiered, nil
}

// ratesDocument is the payload served by a currency rates URL.
type ratesDocument struct {
	DataAsOf    string                        `json:"dataAsOf"`
	Conversions map[string]map[string]float64 `json:"conversions"`
}

// loadCurrencyRates fetches the conversion table once at startup. Any failure
// falls back to constant rates so a rates outage never blocks serving.
func loadCurrencyRates(ratesURL string) currency.Conversions {
	if ratesURL == "" {
		return nil
	}

	resp, err := http.Get(ratesURL)
	if err != nil {
		glog.Errorf("Currency rates could not be fetched from %s: %v", ratesURL, err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		glog.Errorf("Currency rates request to %s answered %d", ratesURL, resp.StatusCode)
		return nil
	}

	var doc ratesDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		glog.Errorf("Currency rates from %s could not be parsed: %v", ratesURL, err)
		return nil
	}

	glog.Infof("Loaded currency rates as of %s", doc.DataAsOf)
	return currency.NewRates(doc.Conversions)
}

func newCatalogFetcher(cfg *config.Configuration) (catalog.Fetcher, func(), error) {
	var fetcher catalog.Fetcher
	shutdown := func() {}

	switch cfg.Catalog.Type {
	case "memory":
		fetcher = catalog.NewMemoryFetcher(nil)

	case "file":
		var err error
		fetcher, err = catalog.NewFileFetcher(cfg.Catalog.Directory)
		if err != nil {
			return nil, nil, fmt.Errorf("Product catalog could not be loaded from %s: %v", cfg.Catalog.Directory, err)
		}

	case "postgres":
		db, err := newPostgresDB(cfg.Catalog.Postgres)
		if err != nil {
			return nil, nil, err
		}
		fetcher = catalog.NewDBFetcher(db, productQuery)
		shutdown = func() {
			if err := db.Close(); err != nil {
				glog.Errorf("Error closing catalog DB connection: %v", err)
			}
		}

	default:
		return nil, nil, fmt.Errorf("Unknown catalog.type: %s", cfg.Catalog.Type)
	}

	if cfg.Catalog.InMemoryCache.Enabled {
		fetcher = catalog.NewCachedFetcher(fetcher, cfg.Catalog.InMemoryCache.SizeBytes, cfg.Catalog.InMemoryCache.TTLSeconds)
	}
	return fetcher, shutdown, nil
}

func productQuery() string {
	return "SELECT id, data FROM products WHERE id = $1"
}

func newStorageWriter(cfg *config.Configuration) (storage.Writer, func(), error) {
	switch cfg.Storage.Type {
	case "none":
		return nil, func() {}, nil

	case "memory":
		return storage.NewMemoryWriter(), func() {}, nil

	case "postgres":
		db, err := newPostgresDB(cfg.Storage.Postgres)
		if err != nil {
			return nil, nil, err
		}
		shutdown := func() {
			if err := db.Close(); err != nil {
				glog.Errorf("Error closing storage DB connection: %v", err)
			}
		}
		return storage.NewPostgresWriter(db, cfg.Storage.TableName), shutdown, nil

	default:
		return nil, nil, fmt.Errorf("Unknown storage.type: %s", cfg.Storage.Type)
	}
}

func newPostgresDB(conn config.PostgresConnection) (*sql.DB, error) {
	db, err := sql.Open("postgres", conn.ConnString())
	if err != nil {
		return nil, fmt.Errorf("Failed to open postgres connection: %v", err)
	}
	return db, nil
}

func newMetrics(cfg *config.Configuration) *metrics.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.NewBlankMetrics(nil)
	}
	return metrics.NewMetrics(gometrics.NewPrefixedRegistry(cfg.Metrics.Prefix))
}

type NoCache struct {
	Handler http.Handler
}

func (m NoCache) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Add("Pragma", "no-cache")
	w.Header().Add("Expires", "0")
	m.Handler.ServeHTTP(w, r)
}

// SupportCORS allows any origin with credentials. Buyers call the discovery
// endpoints from arbitrary tooling; the server does not use cookies for
// authorization, only request payloads.
func SupportCORS(handler http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowCredentials: true,
		AllowOriginFunc: func(string) bool {
			return true
		},
		AllowedHeaders: []string{"Origin", "X-Requested-With", "Content-Type", "Accept"}})
	return c.Handler(handler)
}
