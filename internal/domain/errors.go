package domain

import "errors"

// ErrMissingCustomerID is returned by Customer.Validate when CustomerID is
// empty. The ingest mapper never constructs a Customer in this state (it
// drops rows without a usable identifier before they reach this type), so
// this only fires for records built outside the mapper, e.g. the CRUD API.
var ErrMissingCustomerID = errors.New("customer_id is required")
