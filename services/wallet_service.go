package services

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/mintbay/go-mintbay-server/repository"
	"github.com/mintbay/go-mintbay-server/types"
	"github.com/mintbay/go-mintbay-server/util"
)

const walletKeyBytes = 32

// WalletService manages custodial wallets. Private key material is generated
// server side, sealed through the secret codec and never returned to clients.
type WalletService struct {
	walletRepo    repository.Repository
	secretService *SecretService
}

func NewWalletService(dbSelector repository.DBSelector, secretService *SecretService) *WalletService {
	walletRepo, err := dbSelector.ChooseDB(repository.Wallets)
	if err != nil {
		panic(err)
	}
	return &WalletService{walletRepo: walletRepo, secretService: secretService}
}

// CreateWallet provisions the single custodial wallet of a user
func (ws *WalletService) CreateWallet(userID string) (*types.Wallet, error) {
	if _, err := ws.GetWallet(userID); err == nil {
		return nil, types.ErrConflict
	} else if err != types.ErrNotFound {
		return nil, err
	}

	materialBase64, gErr := util.GenerateKeyMaterial(walletKeyBytes)
	if gErr != nil {
		return nil, gErr
	}
	material, _ := base64.StdEncoding.DecodeString(materialBase64)

	encrypted, eErr := ws.secretService.Encrypt(material, userID)
	if eErr != nil {
		return nil, eErr
	}
	wallet := &types.Wallet{
		Address:    util.WalletAddressFromKey(material),
		UserID:     userID,
		PrivateKey: *encrypted,
		Created:    time.Now().UTC().UnixMilli(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	if sErr := ws.walletRepo.Save(ctx, userID, wallet); sErr != nil {
		return nil, sErr
	}
	return wallet, nil
}

// GetWallet returns the wallet of a user
func (ws *WalletService) GetWallet(userID string) (*types.Wallet, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	response, err := ws.walletRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	var wallet types.Wallet
	if mErr := repository.MapToObject(response, &wallet); mErr != nil {
		return nil, mErr
	}
	return &wallet, nil
}

// UnlockWallet decrypts the private key material for in-process signing. The
// stored key version is used regardless of later rotations.
func (ws *WalletService) UnlockWallet(userID string) ([]byte, error) {
	wallet, err := ws.GetWallet(userID)
	if err != nil {
		return nil, err
	}
	return ws.secretService.Decrypt(&wallet.PrivateKey, userID)
}
