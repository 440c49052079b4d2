// dto.go
package dto

import (
	"time"

	"storefront-api/internal/model"
)

type SignupRequest struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required"`
	Password     string `json:"password" binding:"required"`
	Role         string `json:"role" binding:"omitempty,oneof=user admin seller"`
	AdminSecret  string `json:"adminSecret"`
	SellerSecret string `json:"sellerSecret"`
}

// Secret returns the shared secret matching the requested role.
func (r SignupRequest) Secret() string {
	switch model.Role(r.Role) {
	case model.RoleAdmin:
		return r.AdminSecret
	case model.RoleSeller:
		return r.SellerSecret
	}
	return ""
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ProfileRequest struct {
	Name    *string `json:"name" form:"name"`
	Email   *string `json:"email" form:"email"`
	Phone   *string `json:"phone" form:"phone"`
	Address *string `json:"address" form:"address"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

type AdminUserUpdateRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

type RoleRequest struct {
	Role string `json:"role" binding:"required,oneof=user admin seller"`
}

type RolesRequest struct {
	Roles []string `json:"roles" binding:"required,min=1,dive,oneof=user admin seller"`
}

type AdminResetPasswordRequest struct {
	NewPassword string `json:"newPassword" binding:"required"`
}

type ProductRequest struct {
	Name        string   `form:"name" binding:"required"`
	Description string   `form:"description" binding:"required"`
	Category    string   `form:"category" binding:"required"`
	Brand       string   `form:"brand" binding:"required"`
	Price       *float64 `form:"price" binding:"required,gte=0"`
	Quantity    *int     `form:"quantity" binding:"required,gte=0"`
}

type ProductPatchRequest struct {
	Name        *string  `form:"name"`
	Description *string  `form:"description"`
	Category    *string  `form:"category"`
	Brand       *string  `form:"brand"`
	Price       *float64 `form:"price" binding:"omitempty,gte=0"`
	Quantity    *int     `form:"quantity" binding:"omitempty,gte=0"`
}

type ProductQuery struct {
	Category string `form:"category"`
	Brand    string `form:"brand"`
}

type ReviewRequest struct {
	Rating  *int   `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

type ReviewPatchRequest struct {
	Rating  *int    `json:"rating"`
	Comment *string `json:"comment"`
}

type PageQuery struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

type CartAddRequest struct {
	Quantity int `json:"quantity" binding:"omitempty,min=1"`
}

type CartUpdateRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

type OrderItemRequest struct {
	Product  string `json:"product" binding:"required,objectid"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
}

type ShippingAddressRequest struct {
	FullName   string `json:"fullName"`
	Phone      string `json:"phone"`
	Address    string `json:"address" binding:"required"`
	City       string `json:"city" binding:"required"`
	PostalCode string `json:"postalCode" binding:"required"`
	Country    string `json:"country" binding:"required"`
}

type CreateOrderRequest struct {
	Items           []OrderItemRequest     `json:"items" binding:"required,min=1,dive"`
	ShippingAddress ShippingAddressRequest `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod" binding:"required"`
	ItemsPrice      *float64               `json:"itemsPrice" binding:"required,gte=0"`
	TaxPrice        *float64               `json:"taxPrice" binding:"required,gte=0"`
	ShippingPrice   *float64               `json:"shippingPrice" binding:"required,gte=0"`
	TotalPrice      *float64               `json:"totalPrice" binding:"required,gte=0"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,orderstatus"`
	Force  bool   `json:"force"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type TrackingUpdateRequest struct {
	Status  string `json:"status" binding:"required"`
	Message string `json:"message" binding:"required"`
}

type TrackingInfoRequest struct {
	Carrier           string     `json:"carrier"`
	TrackingNumber    string     `json:"trackingNumber"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery"`
}

type OrderListQuery struct {
	PageQuery
	Status string    `form:"status" binding:"omitempty,orderstatus"`
	User   string    `form:"user" binding:"omitempty,objectid"`
	From   time.Time `form:"from" time_format:"2006-01-02"`
	To     time.Time `form:"to" time_format:"2006-01-02"`
}

type AdvertRequest struct {
	Message *string `form:"message"`
	Code    *string `form:"code"`
	Active  *bool   `form:"active"`
}

type UserListQuery struct {
	Active *bool `form:"active"`
}
