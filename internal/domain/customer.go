package domain

import "time"

// Customer is a single imported customer record. CustomerID is the
// source-provided identifier and is unique; ID is the surrogate integer
// primary key assigned by the database.
type Customer struct {
	ID               int64      `json:"id" db:"id"`
	CustomerID       string     `json:"customer_id" db:"customer_id"`
	FirstName        string     `json:"first_name,omitempty" db:"first_name"`
	LastName         string     `json:"last_name,omitempty" db:"last_name"`
	Email            string     `json:"email,omitempty" db:"email"`
	Company          string     `json:"company,omitempty" db:"company"`
	City             string     `json:"city,omitempty" db:"city"`
	Country          string     `json:"country,omitempty" db:"country"`
	Phone1           string     `json:"phone1,omitempty" db:"phone1"`
	Phone2           string     `json:"phone2,omitempty" db:"phone2"`
	Website          string     `json:"website,omitempty" db:"website"`
	AboutCustomer    string     `json:"about_customer,omitempty" db:"about_customer"`
	SubscriptionDate *time.Time `json:"subscription_date,omitempty" db:"subscription_date"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// Validate checks that CustomerID is non-empty. It does not inspect Email;
// lower-casing and trimming the email is left to the code that builds the
// Customer.
func (c *Customer) Validate() error {
	if c.CustomerID == "" {
		return ErrMissingCustomerID
	}
	return nil
}
