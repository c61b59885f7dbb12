package errors

// Error codes returned in the "error" field of every error body.
// Format: CATEGORY_SPECIFIC_DETAIL. Clients map these to localized text.

const (
	// Authentication
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"
	AuthTokenRevoked       = "AUTH_TOKEN_REVOKED"
	AuthEmailAlreadyExists = "AUTH_EMAIL_EXISTS"
	AuthAccountBanned      = "AUTH_ACCOUNT_BANNED"
	AuthEmailNotVerified   = "AUTH_EMAIL_NOT_VERIFIED"
	AuthWeakPassword       = "AUTH_WEAK_PASSWORD"
	AuthLoginRequired      = "AUTH_LOGIN_REQUIRED" // existing account used without signing in
	AuthLinkInvalid        = "AUTH_LINK_INVALID"

	// Authorization
	AuthzForbidden = "AUTHZ_FORBIDDEN"
	AuthzAdminOnly = "AUTHZ_ADMIN_ONLY"

	// Validation
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID    = "VALIDATION_INVALID_ID"

	// Resources
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// Catalog
	ProductNotFound = "PRODUCT_NOT_FOUND"
	VariantNotFound = "PRODUCT_VARIANT_NOT_FOUND"

	// Cart and checkout
	CartNotFound          = "CART_NOT_FOUND"
	CartItemNotFound      = "CART_ITEM_NOT_FOUND"
	CartEmpty             = "CART_EMPTY"
	CartNothingSelected   = "CART_NOTHING_SELECTED"
	CartInsufficientStock = "CART_INSUFFICIENT_STOCK"
	CartBusy              = "CART_BUSY"
	CheckoutInvalidInfo   = "CHECKOUT_INVALID_DELIVERY_INFO"

	// Coupons
	CouponNotFound       = "COUPON_NOT_FOUND"
	CouponInactive       = "COUPON_INACTIVE"
	CouponExpired        = "COUPON_EXPIRED"
	CouponExhausted      = "COUPON_EXHAUSTED"
	CouponAlreadyApplied = "COUPON_ALREADY_APPLIED"
	CouponNotApplied     = "COUPON_NOT_APPLIED"
	CouponCodeExists     = "COUPON_CODE_EXISTS"

	// Orders
	OrderNotFound          = "ORDER_NOT_FOUND"
	OrderInvalidTransition = "ORDER_INVALID_TRANSITION"
	OrderInvalidStatus     = "ORDER_INVALID_STATUS"

	// Reviews
	ReviewNotFound        = "REVIEW_NOT_FOUND"
	ReviewRatingForbidden = "REVIEW_RATING_REQUIRES_PURCHASE"
	ReviewInvalid         = "REVIEW_INVALID"

	// Admin
	AdminCannotBanAdmin = "ADMIN_CANNOT_BAN_ADMIN"

	// Uploads
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE"
	UploadFileTooLarge    = "UPLOAD_FILE_TOO_LARGE"
	UploadFailed          = "UPLOAD_FAILED"

	// Rate limiting
	RateLimitExceeded = "RATE_LIMIT_EXCEEDED"

	// Internal
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"
)
