package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ExtensionKind names one optional sub-record of an order. An order holds
// zero or one record per kind.
type ExtensionKind string

const (
	ExtCancellation ExtensionKind = "cancellation"
	ExtRefund       ExtensionKind = "refund"
	ExtReturn       ExtensionKind = "return"
	ExtExchange     ExtensionKind = "exchange"
	ExtGift         ExtensionKind = "gift"
	ExtDiscount     ExtensionKind = "discount"
	ExtPromotion    ExtensionKind = "promotion"
	ExtCoupon       ExtensionKind = "coupon"
	ExtTax          ExtensionKind = "tax"
)

var extensionFields = map[ExtensionKind]string{
	ExtCancellation: "cancellation_details",
	ExtRefund:       "refund_details",
	ExtReturn:       "return_details",
	ExtExchange:     "exchange_details",
	ExtGift:         "gift_details",
	ExtDiscount:     "discount_details",
	ExtPromotion:    "promotion_details",
	ExtCoupon:       "coupon_details",
	ExtTax:          "tax_details",
}

func (k ExtensionKind) Valid() bool {
	_, ok := extensionFields[k]
	return ok
}

// Field is the document field holding the record.
func (k ExtensionKind) Field() string {
	return extensionFields[k]
}

type Extensions struct {
	Cancellation *CancellationDetails `bson:"cancellation_details,omitempty" json:"cancellationDetails,omitempty"`
	Refund       *RefundDetails       `bson:"refund_details,omitempty" json:"refundDetails,omitempty"`
	Return       *ReturnDetails       `bson:"return_details,omitempty" json:"returnDetails,omitempty"`
	Exchange     *ExchangeDetails     `bson:"exchange_details,omitempty" json:"exchangeDetails,omitempty"`
	Gift         *GiftDetails         `bson:"gift_details,omitempty" json:"giftDetails,omitempty"`
	Discount     *DiscountDetails     `bson:"discount_details,omitempty" json:"discountDetails,omitempty"`
	Promotion    *PromotionDetails    `bson:"promotion_details,omitempty" json:"promotionDetails,omitempty"`
	Coupon       *CouponDetails       `bson:"coupon_details,omitempty" json:"couponDetails,omitempty"`
	Tax          *TaxDetails          `bson:"tax_details,omitempty" json:"taxDetails,omitempty"`
}

// Get returns the record of the given kind, or nil when it was never set.
func (e *Extensions) Get(kind ExtensionKind) any {
	switch kind {
	case ExtCancellation:
		if e.Cancellation != nil {
			return e.Cancellation
		}
	case ExtRefund:
		if e.Refund != nil {
			return e.Refund
		}
	case ExtReturn:
		if e.Return != nil {
			return e.Return
		}
	case ExtExchange:
		if e.Exchange != nil {
			return e.Exchange
		}
	case ExtGift:
		if e.Gift != nil {
			return e.Gift
		}
	case ExtDiscount:
		if e.Discount != nil {
			return e.Discount
		}
	case ExtPromotion:
		if e.Promotion != nil {
			return e.Promotion
		}
	case ExtCoupon:
		if e.Coupon != nil {
			return e.Coupon
		}
	case ExtTax:
		if e.Tax != nil {
			return e.Tax
		}
	}
	return nil
}

// Set stores record under its kind. It reports false when record is not
// the type that kind expects.
func (e *Extensions) Set(kind ExtensionKind, record any) bool {
	switch kind {
	case ExtCancellation:
		v, ok := record.(*CancellationDetails)
		if ok {
			e.Cancellation = v
		}
		return ok
	case ExtRefund:
		v, ok := record.(*RefundDetails)
		if ok {
			e.Refund = v
		}
		return ok
	case ExtReturn:
		v, ok := record.(*ReturnDetails)
		if ok {
			e.Return = v
		}
		return ok
	case ExtExchange:
		v, ok := record.(*ExchangeDetails)
		if ok {
			e.Exchange = v
		}
		return ok
	case ExtGift:
		v, ok := record.(*GiftDetails)
		if ok {
			e.Gift = v
		}
		return ok
	case ExtDiscount:
		v, ok := record.(*DiscountDetails)
		if ok {
			e.Discount = v
		}
		return ok
	case ExtPromotion:
		v, ok := record.(*PromotionDetails)
		if ok {
			e.Promotion = v
		}
		return ok
	case ExtCoupon:
		v, ok := record.(*CouponDetails)
		if ok {
			e.Coupon = v
		}
		return ok
	case ExtTax:
		v, ok := record.(*TaxDetails)
		if ok {
			e.Tax = v
		}
		return ok
	}
	return false
}

// NewExtensionRecord returns an empty record of the type kind holds, ready
// to be decoded into.
func NewExtensionRecord(kind ExtensionKind) any {
	switch kind {
	case ExtCancellation:
		return &CancellationDetails{}
	case ExtRefund:
		return &RefundDetails{}
	case ExtReturn:
		return &ReturnDetails{}
	case ExtExchange:
		return &ExchangeDetails{}
	case ExtGift:
		return &GiftDetails{}
	case ExtDiscount:
		return &DiscountDetails{}
	case ExtPromotion:
		return &PromotionDetails{}
	case ExtCoupon:
		return &CouponDetails{}
	case ExtTax:
		return &TaxDetails{}
	}
	return nil
}

type CancellationDetails struct {
	Reason      string             `bson:"reason" json:"reason"`
	CancelledBy primitive.ObjectID `bson:"cancelled_by" json:"cancelledBy"`
	CancelledAt time.Time          `bson:"cancelled_at" json:"cancelledAt"`
}

type RefundDetails struct {
	Reason     string     `bson:"reason" json:"reason"`
	Refunded   bool       `bson:"refunded" json:"refunded"`
	RefundedAt *time.Time `bson:"refunded_at,omitempty" json:"refundedAt,omitempty"`
	Amount     float64    `bson:"amount" json:"amount"`
}

type ReturnDetails struct {
	Reason      string    `bson:"reason" json:"reason"`
	RequestedAt time.Time `bson:"requested_at" json:"requestedAt"`
	Approved    bool      `bson:"approved" json:"approved"`
	ImageURL    string    `bson:"image_url,omitempty" json:"imageUrl,omitempty"`
}

type ExchangeDetails struct {
	Reason      string     `bson:"reason" json:"reason"`
	Approved    bool       `bson:"approved" json:"approved"`
	ExchangedAt *time.Time `bson:"exchanged_at,omitempty" json:"exchangedAt,omitempty"`
}

type GiftDetails struct {
	IsGift  bool   `bson:"is_gift" json:"isGift"`
	Message string `bson:"message" json:"message"`
	Sender  string `bson:"sender" json:"sender"`
}

type DiscountDetails struct {
	Code           string  `bson:"code" json:"code"`
	DiscountAmount float64 `bson:"discount_amount" json:"discountAmount"`
}

type PromotionDetails struct {
	Campaign    string  `bson:"campaign" json:"campaign"`
	PromoAmount float64 `bson:"promo_amount" json:"promoAmount"`
}

type CouponDetails struct {
	Code    string  `bson:"code" json:"code"`
	Applied bool    `bson:"applied" json:"applied"`
	Amount  float64 `bson:"amount" json:"amount"`
}

type TaxDetails struct {
	GST  float64 `bson:"gst" json:"gst"`
	CGST float64 `bson:"cgst" json:"cgst"`
	SGST float64 `bson:"sgst" json:"sgst"`
	IGST float64 `bson:"igst" json:"igst"`
}
