package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestProduct_RecomputeRatings(t *testing.T) {
	p := &Product{}
	p.RecomputeRatings()
	assert.Equal(t, 0, p.RatingsCount)
	assert.Equal(t, 0.0, p.RatingsAvg)

	p.Reviews = []Review{{Rating: 5}, {Rating: 4}, {Rating: 2}}
	p.RecomputeRatings()
	assert.Equal(t, 3, p.RatingsCount)
	assert.InDelta(t, 11.0/3.0, p.RatingsAvg, 1e-9)

	p.Reviews = p.Reviews[:1]
	p.RecomputeRatings()
	assert.Equal(t, 1, p.RatingsCount)
	assert.Equal(t, 5.0, p.RatingsAvg)
}

func TestProduct_ReviewLookup(t *testing.T) {
	u1, u2 := primitive.NewObjectID(), primitive.NewObjectID()
	r1 := primitive.NewObjectID()
	p := &Product{Reviews: []Review{{ID: r1, UserID: u1, Rating: 3}}}

	assert.NotNil(t, p.ReviewBy(u1))
	assert.Nil(t, p.ReviewBy(u2))
	assert.Equal(t, 0, p.ReviewIndex(r1))
	assert.Equal(t, -1, p.ReviewIndex(primitive.NewObjectID()))
}

func TestValidRating(t *testing.T) {
	for _, r := range []int{1, 2, 3, 4, 5} {
		assert.True(t, ValidRating(r), r)
	}
	for _, r := range []int{-1, 0, 6} {
		assert.False(t, ValidRating(r), r)
	}
}

func TestOrderStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{StatusPending, StatusShipped, true},
		{StatusPending, StatusCancelled, true},
		{StatusShipped, StatusDelivered, true},
		{StatusPending, StatusDelivered, false},
		{StatusShipped, StatusCancelled, false},
		{StatusDelivered, StatusPending, false},
		{StatusCancelled, StatusPending, false},
		{StatusDelivered, StatusShipped, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}

	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, OrderStatus("Returned").Valid())
}

func TestRoles(t *testing.T) {
	rs := RolesFromStrings([]string{"user", "seller", "user", "root"})
	assert.Equal(t, Roles{RoleUser, RoleSeller}, rs)
	assert.Equal(t, RoleSeller, rs.Primary())
	assert.False(t, rs.Has(RoleAdmin))
	assert.True(t, rs.HasAny(RoleAdmin, RoleSeller))

	rs = rs.With(RoleAdmin).With(RoleAdmin)
	assert.Len(t, rs, 3)
	assert.Equal(t, RoleAdmin, rs.Primary())
	assert.Equal(t, RoleUser, Roles{}.Primary())
}

func TestExtensions_GetSet(t *testing.T) {
	var e Extensions
	for kind := range extensionFields {
		assert.Nil(t, e.Get(kind), kind)
	}

	assert.True(t, e.Set(ExtGift, &GiftDetails{IsGift: true, Message: "hi"}))
	assert.Equal(t, &GiftDetails{IsGift: true, Message: "hi"}, e.Get(ExtGift))

	assert.False(t, e.Set(ExtTax, &GiftDetails{}))
	assert.Nil(t, e.Get(ExtTax))

	for kind := range extensionFields {
		rec := NewExtensionRecord(kind)
		assert.NotNil(t, rec, kind)
		assert.True(t, e.Set(kind, rec), kind)
	}
	assert.Equal(t, "coupon_details", ExtCoupon.Field())
	assert.False(t, ExtensionKind("warranty").Valid())
}

func TestCart_Items(t *testing.T) {
	p1 := primitive.NewObjectID()
	i1 := primitive.NewObjectID()
	c := &Cart{Items: []CartItem{{ID: i1, ProductID: p1, Quantity: 2}}}

	assert.NotNil(t, c.Item(i1))
	assert.NotNil(t, c.ItemForProduct(p1))
	assert.True(t, c.Remove(i1))
	assert.False(t, c.Remove(i1))
	assert.Empty(t, c.Items)
}
