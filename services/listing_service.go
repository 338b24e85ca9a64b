package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mintbay/go-mintbay-server/repository"
	"github.com/mintbay/go-mintbay-server/types"
)

type ListingService struct {
	listingRepo repository.Repository
}

func NewListingService(dbSelector repository.DBSelector) *ListingService {
	listingRepo, err := dbSelector.ChooseDB(repository.Listings)
	if err != nil {
		panic(err)
	}
	return &ListingService{listingRepo: listingRepo}
}

// CreateListing publishes a new marketplace listing for the seller
func (ls *ListingService) CreateListing(sellerID string, input *types.InputListing) (*types.Listing, error) {
	listing := &types.Listing{
		ListingID:   uuid.NewString(),
		SellerID:    sellerID,
		Title:       input.Title,
		Description: input.Description,
		PriceUSD:    input.PriceUSD,
		Created:     time.Now().UTC().UnixMilli(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	if err := ls.listingRepo.Save(ctx, listing.ListingID, listing); err != nil {
		return nil, err
	}
	return listing, nil
}

// GetListing returns a listing by its id
func (ls *ListingService) GetListing(listingID string) (*types.Listing, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	response, err := ls.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	var listing types.Listing
	if mErr := repository.MapToObject(response, &listing); mErr != nil {
		return nil, mErr
	}
	return &listing, nil
}

// SetImageURL stores the uploaded image location on the listing
func (ls *ListingService) SetImageURL(listing *types.Listing, url string) error {
	listing.ImageURL = url
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	return ls.listingRepo.Update(ctx, listing.ListingID, listing)
}

// ListBySeller returns the seller's listings, newest first
func (ls *ListingService) ListBySeller(sellerID string, limit int) ([]types.Listing, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	response, err := ls.listingRepo.Find(ctx, map[string]interface{}{
		"selector": map[string]interface{}{
			"sellerId": sellerID,
		},
		"sort":  []map[string]string{{"created": "desc"}},
		"limit": limit,
	})
	if err != nil {
		return nil, err
	}
	var listings []types.Listing
	if mErr := repository.MapToFindResults(response, &listings); mErr != nil {
		return nil, mErr
	}
	return listings, nil
}
