package types

type JwtTokenOutput struct {
	Token string `json:"token"`
}

type TotpSetupOutput struct {
	ProvisioningURI string `json:"provisioningUri"`
}

type WalletOutput struct {
	Address string `json:"address"`
	Created int64  `json:"created"`
}

type WithdrawalOutput struct {
	TransactionID string  `json:"transactionId"`
	AmountUSD     float64 `json:"amountUsd"`
	Status        string  `json:"status"`
}

type UploadOutput struct {
	URL string `json:"url"`
}
