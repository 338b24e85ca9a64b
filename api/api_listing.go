package api

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/mintbay/go-mintbay-server/api/interceptors"
	"github.com/mintbay/go-mintbay-server/global"
	"github.com/mintbay/go-mintbay-server/services"
	"github.com/mintbay/go-mintbay-server/types"
)

type ListingApi struct {
	listingService *services.ListingService
	s3Service      *services.S3Service
	validate       *validator.Validate
}

func NewListingApi(listingService *services.ListingService, s3Service *services.S3Service) *ListingApi {
	return &ListingApi{
		listingService: listingService,
		s3Service:      s3Service,
		validate:       validator.New(),
	}
}

// Create a listing
// @Summary Create a listing
// @Description Puts a new item up for sale under the caller's account
// @Tags Listing
// @Param listing body types.InputListing true "listing input"
// @Success 201 {object} types.Listing
// @Failure 400 {object} api.ApiError "Invalid or missing input parameters"
// @Failure 401 {object} api.ApiError "Not authorized"
// @Failure 429 {object} api.ApiError "rate limit exceeded"
// @Accept json
// @Produce json
// @Security Bearer
// @Router /api/v1/listings [post]
func (la *ListingApi) CreateListing(c *gin.Context) {
	userID := c.GetString(interceptors.ContextUserIDKey)

	var input types.InputListing
	if err := c.ShouldBindJSON(&input); err != nil {
		ApiErrorf(c, http.StatusBadRequest, "invalid listing input")
		return
	}
	if vErr := la.validate.Struct(input); vErr != nil {
		msg := ValidatorErrorToUser(vErr.(validator.ValidationErrors))
		ApiErrorf(c, http.StatusBadRequest, msg)
		return
	}

	listing, err := la.listingService.CreateListing(userID, &input)
	if err != nil {
		ApiErrorf(c, http.StatusInternalServerError, "failed to create listing")
		return
	}
	c.JSON(http.StatusCreated, listing)
}

// Get a listing
// @Summary Get a listing
// @Description Returns a single listing by id
// @Tags Listing
// @Param id path string true "listing id"
// @Success 200 {object} types.Listing
// @Failure 404 {object} api.ApiError "Listing not found"
// @Failure 429 {object} api.ApiError "rate limit exceeded"
// @Accept json
// @Produce json
// @Router /api/v1/listings/{id} [get]
func (la *ListingApi) GetListing(c *gin.Context) {
	listingID := c.Param("id")
	if listingID == "" {
		ApiErrorf(c, http.StatusBadRequest, "listing id is required")
		return
	}
	listing, err := la.listingService.GetListing(listingID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			ApiErrorf(c, http.StatusNotFound, "listing not found")
			return
		}
		ApiErrorf(c, http.StatusInternalServerError, "failed to retrieve listing")
		return
	}
	c.JSON(http.StatusOK, listing)
}

// List the caller's listings
// @Summary List the caller's listings
// @Description Returns listings owned by the authenticated seller
// @Tags Listing
// @Param limit query int false "maximum results (default 25)"
// @Success 200 {array} types.Listing
// @Failure 401 {object} api.ApiError "Not authorized"
// @Failure 429 {object} api.ApiError "rate limit exceeded"
// @Accept json
// @Produce json
// @Security Bearer
// @Router /api/v1/listings [get]
func (la *ListingApi) ListMyListings(c *gin.Context) {
	userID := c.GetString(interceptors.ContextUserIDKey)
	limit := 25
	if l := c.Query("limit"); l != "" {
		if parsed, pErr := strconv.Atoi(l); pErr == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	listings, err := la.listingService.ListBySeller(userID, limit)
	if err != nil {
		ApiErrorf(c, http.StatusInternalServerError, "failed to list listings")
		return
	}
	c.JSON(http.StatusOK, listings)
}

// Upload a listing image
// @Summary Upload a listing image
// @Description Attaches a photo to the caller's listing, stored in the listing images bucket
// @Tags Listing
// @Param id path string true "listing id"
// @Param image body types.InputListingImage true "base64 data uri"
// @Success 200 {object} types.UploadOutput
// @Failure 400 {object} api.ApiError "invalid image"
// @Failure 401 {object} api.ApiError "Not authorized"
// @Failure 404 {object} api.ApiError "Listing not found"
// @Failure 429 {object} api.ApiError "rate limit exceeded"
// @Failure 500 {object} api.ApiError "server error uploading image"
// @Accept json
// @Produce json
// @Security Bearer
// @Router /api/v1/listings/{id}/image [put]
func (la *ListingApi) UploadImage(c *gin.Context) {
	userID := c.GetString(interceptors.ContextUserIDKey)
	listingID := c.Param("id")

	listing, err := la.listingService.GetListing(listingID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			ApiErrorf(c, http.StatusNotFound, "listing not found")
			return
		}
		ApiErrorf(c, http.StatusInternalServerError, "failed to retrieve listing")
		return
	}
	if listing.SellerID != userID {
		ApiErrorf(c, http.StatusForbidden, "not the listing owner")
		return
	}

	var input types.InputListingImage
	if err := c.ShouldBindJSON(&input); err != nil {
		ApiErrorf(c, http.StatusBadRequest, "invalid image input")
		return
	}

	parts := strings.Split(input.ImageBase64, ",")
	if len(parts) != 2 {
		ApiErrorf(c, http.StatusBadRequest, "invalid base64 encoding")
		return
	}
	imgBytes, b64Err := base64.StdEncoding.DecodeString(parts[1])
	if b64Err != nil {
		ApiErrorf(c, http.StatusBadRequest, "invalid base64 encoding")
		return
	}
	mimePart := strings.TrimPrefix(parts[0], "data:")
	mimeType := strings.Split(mimePart, ";")[0]
	if mimeType != "image/jpg" && mimeType != "image/png" && mimeType != "image/jpeg" {
		ApiErrorf(c, http.StatusBadRequest, "unsupported file type")
		return
	}

	path := listing.ListingID + "/image.jpg"
	url, uErr := la.s3Service.UploadImage(global.Conf.Storage.Bucket, path, imgBytes)
	if uErr != nil {
		global.Logger.Log("error", "failed to upload image", "error", uErr)
		ApiErrorf(c, http.StatusInternalServerError, "server error uploading image")
		return
	}
	url = strings.Replace(url, "s3://"+global.Conf.Storage.Bucket, "https://"+global.Conf.Storage.Bucket+".s3."+global.Conf.Storage.Region+".amazonaws.com", 1)

	if sErr := la.listingService.SetImageURL(listing, url); sErr != nil {
		ApiErrorf(c, http.StatusInternalServerError, "failed to update listing")
		return
	}
	c.JSON(http.StatusOK, types.UploadOutput{URL: url})
}
