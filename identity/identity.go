// Package identity resolves a buyer's revealed identity to an access tier and
// a stable pricing key. Buyers unlock better pricing by revealing more of who
// they are: a DSP seat, then an agency, then the advertiser behind the agency.
package identity

// AccessTier is the buyer access level, ordered by increasing identity
// disclosure and pricing privilege.
type AccessTier string

const (
	TierPublic     AccessTier = "public"
	TierSeat       AccessTier = "seat"
	TierAgency     AccessTier = "agency"
	TierAdvertiser AccessTier = "advertiser"
)

// Rank returns the tier's position in the disclosure ordering. Unknown tiers
// rank as public.
func (t AccessTier) Rank() int {
	switch t {
	case TierSeat:
		return 1
	case TierAgency:
		return 2
	case TierAdvertiser:
		return 3
	default:
		return 0
	}
}

// IdentityLevel describes how much identity the buyer revealed.
type IdentityLevel string

const (
	LevelAnonymous            IdentityLevel = "anonymous"
	LevelSeatOnly             IdentityLevel = "seat_only"
	LevelAgencyOnly           IdentityLevel = "agency_only"
	LevelAgencyAndAdvertiser  IdentityLevel = "agency_and_advertiser"
)

// BuyerIdentity holds the identifiers a buyer revealed for one request.
// Immutable once constructed.
type BuyerIdentity struct {
	SeatID      string `json:"seat_id,omitempty"`
	SeatName    string `json:"seat_name,omitempty"`
	DSPPlatform string `json:"dsp_platform,omitempty"`

	AgencyID             string `json:"agency_id,omitempty"`
	AgencyName           string `json:"agency_name,omitempty"`
	AgencyHoldingCompany string `json:"agency_holding_company,omitempty"`

	AdvertiserID       string `json:"advertiser_id,omitempty"`
	AdvertiserName     string `json:"advertiser_name,omitempty"`
	AdvertiserIndustry string `json:"advertiser_industry,omitempty"`

	CampaignID   string `json:"campaign_id,omitempty"`
	CampaignName string `json:"campaign_name,omitempty"`
}

// Level derives the identity level from which identifiers are present.
func (id *BuyerIdentity) Level() IdentityLevel {
	if id == nil {
		return LevelAnonymous
	}
	if id.AdvertiserID != "" && id.AgencyID != "" {
		return LevelAgencyAndAdvertiser
	}
	if id.AgencyID != "" {
		return LevelAgencyOnly
	}
	if id.SeatID != "" {
		return LevelSeatOnly
	}
	return LevelAnonymous
}

// AccessTier derives the access tier from the identity level.
func (id *BuyerIdentity) AccessTier() AccessTier {
	switch id.Level() {
	case LevelAgencyAndAdvertiser:
		return TierAdvertiser
	case LevelAgencyOnly:
		return TierAgency
	case LevelSeatOnly:
		return TierSeat
	default:
		return TierPublic
	}
}

// Relationship carries historical relationship data for a buyer.
type Relationship struct {
	BuyerID   string `json:"buyer_id"`
	BuyerType string `json:"buyer_type"` // seat, agency, advertiser

	TotalHistoricalSpend float64 `json:"total_historical_spend"`
	YTDSpend             float64 `json:"ytd_spend"`
	Last12MonthSpend     float64 `json:"last_12_month_spend"`

	TotalDeals     int `json:"total_deals"`
	ActiveDeals    int `json:"active_deals"`
	CompletedDeals int `json:"completed_deals"`

	RelationshipTier string `json:"relationship_tier"` // standard, preferred, strategic

	AverageFillRate float64 `json:"average_fill_rate"`
	AverageCPMPaid  float64 `json:"average_cpm_paid"`
	PaymentHistory  string  `json:"payment_history"` // excellent, good, fair, poor, unknown

	PreferredInventoryTypes   []string `json:"preferred_inventory_types,omitempty"`
	BlockedContentCategories  []string `json:"blocked_content_categories,omitempty"`
}

// BuyerContext wraps a buyer identity with authentication state and optional
// relationship history. A nil BuyerContext behaves as an anonymous public buyer.
type BuyerContext struct {
	Identity     BuyerIdentity `json:"identity"`
	Relationship *Relationship `json:"relationship,omitempty"`

	IsAuthenticated      bool   `json:"is_authenticated"`
	AuthenticationMethod string `json:"authentication_method,omitempty"` // oauth, api_key, a2a
	RequestType          string `json:"request_type,omitempty"`          // discovery, proposal, deal
}

// EffectiveTier returns the tier the buyer actually gets. Unauthenticated
// contexts always resolve to public even if identity fields are populated,
// so unverified identity claims never unlock pricing.
func (bc *BuyerContext) EffectiveTier() AccessTier {
	if bc == nil || !bc.IsAuthenticated {
		return TierPublic
	}
	return bc.Identity.AccessTier()
}

// EligibleForNegotiation reports whether the buyer's tier permits price
// negotiation.
func (bc *BuyerContext) EligibleForNegotiation() bool {
	tier := bc.EffectiveTier()
	return tier == TierAgency || tier == TierAdvertiser
}

// PricingKey returns the most specific identifier present, which guarantees
// the same advertiser receives identical pricing across different agencies.
func (bc *BuyerContext) PricingKey() string {
	if bc == nil {
		return "public"
	}
	if bc.Identity.AdvertiserID != "" {
		return "advertiser:" + bc.Identity.AdvertiserID
	}
	if bc.Identity.AgencyID != "" {
		return "agency:" + bc.Identity.AgencyID
	}
	if bc.Identity.SeatID != "" {
		return "seat:" + bc.Identity.SeatID
	}
	return "public"
}
