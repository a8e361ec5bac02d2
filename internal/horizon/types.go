package horizon

import (
	"time"

	"github.com/mtlprog/divtracker/internal/domain"
)

// HorizonAccount represents the JSON response from GET /accounts/{id}.
type HorizonAccount struct {
	ID       string           `json:"id"`
	Balances []HorizonBalance `json:"balances"`
}

// HorizonBalance represents a single balance entry in an account response.
type HorizonBalance struct {
	AssetType   string `json:"asset_type"`
	AssetCode   string `json:"asset_code"`
	AssetIssuer string `json:"asset_issuer"`
	Balance     string `json:"balance"`
}

// Operation is one record of GET /accounts/{id}/operations. Only the fields
// needed for anchor discovery are decoded.
type Operation struct {
	ID          string `json:"id"`
	PagingToken string `json:"paging_token"`
	Type        string `json:"type"`
	CreatedAt   string `json:"created_at"`

	// payment
	AssetType   string `json:"asset_type"`
	AssetCode   string `json:"asset_code"`
	AssetIssuer string `json:"asset_issuer"`

	// manage_buy_offer, manage_sell_offer, create_passive_sell_offer
	SellingAssetType   string `json:"selling_asset_type"`
	SellingAssetCode   string `json:"selling_asset_code"`
	SellingAssetIssuer string `json:"selling_asset_issuer"`
	BuyingAssetType    string `json:"buying_asset_type"`
	BuyingAssetCode    string `json:"buying_asset_code"`
	BuyingAssetIssuer  string `json:"buying_asset_issuer"`
}

const (
	OpPayment                = "payment"
	OpManageBuyOffer         = "manage_buy_offer"
	OpManageSellOffer        = "manage_sell_offer"
	OpCreatePassiveSellOffer = "create_passive_sell_offer"
)

// Involves reports whether the operation is a payment or offer referencing asset.
func (op Operation) Involves(asset domain.AssetInfo) bool {
	switch op.Type {
	case OpPayment:
		return asset.Matches(op.AssetType, op.AssetCode, op.AssetIssuer)
	case OpManageBuyOffer, OpManageSellOffer, OpCreatePassiveSellOffer:
		return asset.Matches(op.SellingAssetType, op.SellingAssetCode, op.SellingAssetIssuer) ||
			asset.Matches(op.BuyingAssetType, op.BuyingAssetCode, op.BuyingAssetIssuer)
	default:
		return false
	}
}

// Time parses CreatedAt as a UTC timestamp.
func (op Operation) Time() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, op.CreatedAt)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

type operationsResponse struct {
	Links struct {
		Next struct {
			Href string `json:"href"`
		} `json:"next"`
	} `json:"_links"`
	Embedded struct {
		Records []Operation `json:"records"`
	} `json:"_embedded"`
}

// OperationsPage is one page yielded by Client.OperationPages. Number starts at 1.
type OperationsPage struct {
	Number  int
	Records []Operation
}
