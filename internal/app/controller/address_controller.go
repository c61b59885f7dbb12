package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/madness-store/madness-backend/internal/app/service"
	"github.com/madness-store/madness-backend/internal/middleware"
)

type AddressController struct {
	addressService service.AddressService
}

func NewAddressController(addressService service.AddressService) *AddressController {
	return &AddressController{
		addressService: addressService,
	}
}

// ListAddresses returns the caller's addresses
// GET /api/v1/users/me/addresses
func (ctrl *AddressController) ListAddresses(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	addresses, err := ctrl.addressService.GetUserAddresses(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "address")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"addresses": addresses,
		"count":     len(addresses),
	})
}

// CreateAddress adds an address
// POST /api/v1/users/me/addresses
func (ctrl *AddressController) CreateAddress(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req service.AddressInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	address, err := ctrl.addressService.CreateAddress(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err, "address")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Address created", map[string]interface{}{
		"user_id":    userID,
		"address_id": address.ID,
	})
	c.JSON(http.StatusCreated, gin.H{"address": address})
}

// UpdateAddress edits one of the caller's addresses
// PUT /api/v1/users/me/addresses/:id
func (ctrl *AddressController) UpdateAddress(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	addressID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req service.AddressInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	address, err := ctrl.addressService.UpdateAddress(c.Request.Context(), userID, addressID, req)
	if err != nil {
		respondError(c, err, "address")
		return
	}

	c.JSON(http.StatusOK, gin.H{"address": address})
}

// DeleteAddress removes one of the caller's addresses
// DELETE /api/v1/users/me/addresses/:id
func (ctrl *AddressController) DeleteAddress(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	addressID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := ctrl.addressService.DeleteAddress(c.Request.Context(), userID, addressID); err != nil {
		respondError(c, err, "address")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Address deleted"})
}

// SetDefaultAddress marks an address as the default
// PUT /api/v1/users/me/addresses/:id/default
func (ctrl *AddressController) SetDefaultAddress(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	addressID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := ctrl.addressService.SetDefaultAddress(c.Request.Context(), userID, addressID); err != nil {
		respondError(c, err, "address")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Default address updated"})
}
