package services

import (
	"context"
	"time"

	"github.com/go-kit/log/level"
	"github.com/mintbay/go-mintbay-server/global"
	"github.com/mintbay/go-mintbay-server/repository"
	"github.com/mintbay/go-mintbay-server/types"
	"github.com/mintbay/go-mintbay-server/util"
)

const nonceTTLMillis = 5 * 60 * 1000

type NonceService struct {
	nonceRepo repository.Repository
}

func NewNonceService(dbSelector repository.DBSelector) *NonceService {
	db, err := dbSelector.ChooseDB(repository.Nonce)
	if err != nil {
		panic(err)
	}
	return &NonceService{nonceRepo: db}
}

// function creates a new nonce and stores it in the database with the time of creation
func (ns *NonceService) CreateNonce() (*types.Nonce, error) {
	return ns.CreateCustomNonce(64)
}

func (ns *NonceService) CreateCustomNonce(nonceSizeInBytes int) (*types.Nonce, error) {
	n := util.GenerateNonce(nonceSizeInBytes)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	nonce := &types.Nonce{
		Nonce:   n,
		Created: time.Now().UTC().UnixMilli(),
	}
	if err := ns.nonceRepo.Save(ctx, n, nonce); err != nil {
		return nil, err
	}
	return nonce, nil
}

// Returns nonce by nonce id (which is the nonce itself) from database
func (ns *NonceService) GetNonce(nonce string) (*types.Nonce, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	response, err := ns.nonceRepo.GetByID(ctx, nonce)
	if err != nil { // only error allowed is not found error
		return nil, err
	}
	var existing types.Nonce
	if mErr := repository.MapToObject(response, &existing); mErr != nil {
		return nil, mErr
	}
	return &existing, nil
}

// Delete nonce by nonce id (which is the nonce itself)
func (ns *NonceService) DeleteNonce(nonce string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	return ns.nonceRepo.Delete(ctx, nonce)
}

// RemoveExpiredNonces deletes nonces older than the nonce TTL, run by cron
func (ns *NonceService) RemoveExpiredNonces() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	cutoff := time.Now().UTC().UnixMilli() - nonceTTLMillis
	response, err := ns.nonceRepo.Find(ctx, map[string]interface{}{
		"selector": map[string]interface{}{
			"created": map[string]interface{}{
				"$lte": cutoff,
			},
		},
		"limit": 100,
	})
	if err != nil {
		level.Error(global.Logger).Log("msg", "error getting expired nonces", "err", err.Error())
		return
	}
	var expired []types.Nonce
	if mErr := repository.MapToFindResults(response, &expired); mErr != nil {
		level.Error(global.Logger).Log("msg", "error mapping expired nonces", "err", mErr.Error())
		return
	}
	for _, nonce := range expired {
		if dErr := ns.nonceRepo.Delete(ctx, nonce.Nonce); dErr != nil {
			level.Error(global.Logger).Log("msg", "error deleting expired nonce", "err", dErr.Error())
		}
	}
}
