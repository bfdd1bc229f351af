package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapper_Map_BasicFields(t *testing.T) {
	m := NewMapper()
	c := m.Map(map[string]string{
		"Customer Id": "C001",
		"First Name":  "Alice",
		"Email":       "  Alice@Example.com ",
	})
	require.NotNil(t, c)
	assert.Equal(t, "C001", c.CustomerID)
	assert.Equal(t, "Alice", c.FirstName)
	assert.Equal(t, "alice@example.com", c.Email)
}

func TestMapper_Map_HeaderCaseAndPunctuationInsensitive(t *testing.T) {
	m := NewMapper()
	a := m.Map(map[string]string{"customer_id": "C001", "first_name": "Alice"})
	b := m.Map(map[string]string{"CustomerID": "C001", "FirstName": "Alice"})
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Equal(t, m.Hash(a), m.Hash(b))
}

func TestMapper_Map_FullNameSplitsOnWhitespaceRun(t *testing.T) {
	m := NewMapper()
	c := m.Map(map[string]string{"id": "C001", "Name": "Alice   Van  Buren"})
	require.NotNil(t, c)
	assert.Equal(t, "Alice", c.FirstName)
	assert.Equal(t, "Van Buren", c.LastName)
}

func TestMapper_Map_FullNameSingleToken(t *testing.T) {
	m := NewMapper()
	c := m.Map(map[string]string{"id": "C001", "Name": "Cher"})
	require.NotNil(t, c)
	assert.Equal(t, "Cher", c.FirstName)
	assert.Empty(t, c.LastName)
}

func TestMapper_Map_FallbackIdentifierIsEmail(t *testing.T) {
	m := NewMapper()
	c := m.Map(map[string]string{"Email": "jane@x.com", "First Name": "Jane"})
	require.NotNil(t, c)
	assert.Equal(t, "jane@x.com", c.CustomerID)
}

func TestMapper_Map_NoIdentifierReturnsNil(t *testing.T) {
	m := NewMapper()
	c := m.Map(map[string]string{"First Name": "NoID", "City": "Nowhere"})
	assert.Nil(t, c)
}

func TestMapper_Map_SubscriptionDateUnparseableOmitted(t *testing.T) {
	m := NewMapper()
	c := m.Map(map[string]string{"id": "C001", "Subscription Date": "not-a-date"})
	require.NotNil(t, c)
	assert.Nil(t, c.SubscriptionDate)
}

func TestMapper_Map_SubscriptionDateParsesCommonLayout(t *testing.T) {
	m := NewMapper()
	c := m.Map(map[string]string{"id": "C001", "Subscription Date": "2021-03-15"})
	require.NotNil(t, c)
	require.NotNil(t, c.SubscriptionDate)
	assert.Equal(t, 2021, c.SubscriptionDate.Year())
	assert.Equal(t, 3, int(c.SubscriptionDate.Month()))
	assert.Equal(t, 15, c.SubscriptionDate.Day())
}

func TestMapper_Hash_DeterministicAndOrderIndependent(t *testing.T) {
	m := NewMapper()
	c1 := m.Map(map[string]string{"id": "C001", "First Name": "Alice", "Email": "alice@x.com"})
	c2 := m.Map(map[string]string{"Email": "alice@x.com", "First Name": "Alice", "id": "C001"})
	require.NotNil(t, c1)
	require.NotNil(t, c2)
	assert.Equal(t, m.Hash(c1), m.Hash(c2))
	assert.Equal(t, m.Hash(c1), m.Hash(c1))
}

func TestMapper_Hash_DiffersOnFieldChange(t *testing.T) {
	m := NewMapper()
	c1 := m.Map(map[string]string{"id": "C001", "First Name": "Alice"})
	c2 := m.Map(map[string]string{"id": "C001", "First Name": "Alicia"})
	require.NotNil(t, c1)
	require.NotNil(t, c2)
	assert.NotEqual(t, m.Hash(c1), m.Hash(c2))
}

func TestMapper_Map_DuplicateAliasFirstWins(t *testing.T) {
	m := NewMapper()
	c := m.Map(map[string]string{"id": "C001", "Customer Id": "C002"})
	require.NotNil(t, c)
	assert.Contains(t, []string{"C001", "C002"}, c.CustomerID)
}
