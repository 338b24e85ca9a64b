package types

// Nonce for login challenges, swept by cron after expiry
type Nonce struct {
	BaseDocument `json:",inline"`
	Nonce        string `json:"nonce"`
	Created      int64  `json:"created"`
}

// Listing is a marketplace item offered by a seller
type Listing struct {
	BaseDocument `json:",inline"`
	ListingID    string  `json:"listingId"`
	SellerID     string  `json:"sellerId"`
	Title        string  `json:"title"`
	Description  string  `json:"description,omitempty"`
	PriceUSD     float64 `json:"priceUsd"`
	ImageURL     string  `json:"imageUrl,omitempty"`
	Created      int64   `json:"created"`
}
