package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ignite/customer-import/internal/domain"
)

// fieldAliases maps a normalized header key (alphanumeric, lower-cased) to
// the Customer field it populates. Several raw headers collapse onto the
// same normalized key once punctuation and case are stripped, e.g.
// "Customer Id", "customer_id" and "customerid" all normalize to
// "customerid".
var fieldAliases = map[string]string{
	"customerid": "customerId",
	"id":         "customerId",

	"firstname": "firstName",
	"first":     "firstName",

	"lastname": "lastName",
	"last":     "lastName",
	"surname":  "lastName",

	"fullname": "fullName",
	"name":     "fullName",

	"company":      "company",
	"companyname":  "company",
	"organization": "company",

	"city": "city",

	"country": "country",

	"phone1":  "phone1",
	"phone":   "phone1",
	"phoneno": "phone1",

	"phone2":         "phone2",
	"secondaryphone": "phone2",

	"email":        "email",
	"emailaddress": "email",
	"emailid":      "email",

	"subscriptiondate": "subscriptionDate",
	"subscribed":       "subscriptionDate",

	"website": "website",
	"url":     "website",

	"aboutcustomer": "aboutCustomer",
	"about":         "aboutCustomer",
	"notes":         "aboutCustomer",
}

var whitespaceRun = regexp.MustCompile(`\s+`)

var subscriptionLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"02-01-2006",
}

// normalizeKey strips every non-alphanumeric byte and lower-cases the
// result, so "Customer Id", "customer_id" and "CustomerID" all collapse to
// the same lookup key.
func normalizeKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		}
	}
	return b.String()
}

// Mapper normalizes parsed CSV records into Customer rows and computes
// their resume fingerprint.
type Mapper struct{}

// NewMapper returns a ready-to-use Mapper. It carries no state; the zero
// value would work just as well, but the constructor matches the rest of
// the package's component style.
func NewMapper() *Mapper {
	return &Mapper{}
}

// Map normalizes a header-to-value record into a Customer. It returns
// nil when the row has neither a customerId nor an email and must be
// silently skipped rather than counted as processed.
func (m *Mapper) Map(record map[string]string) *domain.Customer {
	fields := make(map[string]string, len(fieldAliases))
	rawKeys := make([]string, 0, len(record))
	for rawKey := range record {
		rawKeys = append(rawKeys, rawKey)
	}
	sort.Strings(rawKeys)
	for _, rawKey := range rawKeys {
		field, ok := fieldAliases[normalizeKey(rawKey)]
		if !ok {
			continue
		}
		val := strings.TrimSpace(record[rawKey])
		if val == "" {
			continue
		}
		// Raw headers are visited in sorted byte order, so the first of them
		// to populate a field wins; later duplicate aliases for an
		// already-populated field are ignored.
		if _, exists := fields[field]; !exists {
			fields[field] = val
		}
	}

	if fields["firstName"] == "" && fields["fullName"] != "" {
		parts := whitespaceRun.Split(strings.TrimSpace(fields["fullName"]), 2)
		fields["firstName"] = parts[0]
		if len(parts) == 2 {
			fields["lastName"] = strings.Join(whitespaceRun.Split(parts[1], -1), " ")
		}
	}

	email := strings.ToLower(fields["email"])
	customerID := fields["customerId"]
	if customerID == "" && email == "" {
		return nil
	}

	c := &domain.Customer{
		CustomerID:    customerID,
		FirstName:     fields["firstName"],
		LastName:      fields["lastName"],
		Email:         email,
		Company:       fields["company"],
		City:          fields["city"],
		Country:       fields["country"],
		Phone1:        fields["phone1"],
		Phone2:        fields["phone2"],
		Website:       fields["website"],
		AboutCustomer: fields["aboutCustomer"],
	}
	if customerID == "" {
		c.CustomerID = email
	}
	if raw := fields["subscriptionDate"]; raw != "" {
		if t, ok := parseSubscriptionDate(raw); ok {
			c.SubscriptionDate = &t
		}
	}
	return c
}

func parseSubscriptionDate(raw string) (time.Time, bool) {
	for _, layout := range subscriptionLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Hash returns the SHA-256 hex fingerprint of c, over a fixed field order,
// pipe-joined. It is deterministic and independent of any map iteration
// order upstream, since it reads directly off the struct.
func (m *Mapper) Hash(c *domain.Customer) string {
	subDate := ""
	if c.SubscriptionDate != nil {
		subDate = c.SubscriptionDate.UTC().Format(time.RFC3339)
	}
	parts := []string{
		c.CustomerID,
		c.FirstName,
		c.LastName,
		c.Company,
		c.City,
		c.Country,
		c.Phone1,
		c.Phone2,
		c.Email,
		subDate,
		c.Website,
		c.AboutCustomer,
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
