package types

type InputRegister struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type InputLogin struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Nonce    string `json:"nonce" validate:"required"`
	TotpCode string `json:"totpCode,omitempty"`
}

type InputTotpVerify struct {
	Code string `json:"code" validate:"required,len=6"`
}

type InputWalletUnlock struct {
	Password string `json:"password" validate:"required"`
}

type InputWithdraw struct {
	AmountUSD float64 `json:"amountUsd" validate:"required,gt=0"`
	ToAddress string  `json:"toAddress" validate:"required"`
}

type InputListingImage struct {
	ImageBase64 string `json:"imageBase64" validate:"required"`
}

type InputListing struct {
	Title       string  `json:"title" validate:"required,max=140"`
	Description string  `json:"description,omitempty"`
	PriceUSD    float64 `json:"priceUsd" validate:"required,gt=0"`
}
