package billing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelcubano/main-project/internal/models"
)

func service(name, kind, location, price string) *models.Service {
	return &models.Service{
		ID:           uuid.New(),
		Name:         name,
		Type:         kind,
		Location:     location,
		Status:       models.ServiceStatusActive,
		MonthlyPrice: decimal.RequireFromString(price),
	}
}

func TestMaterialize(t *testing.T) {
	services := []*models.Service{
		service("Rack A1", "colocation", "MIA1", "10.00"),
		service("100M Transit", "connectivity", "MIA1", "25.50"),
		service("Cross Connect", "cross-connect", "MIA2", "4.49"),
	}

	li := Materialize(services)

	require.Len(t, li.Items, 3)
	assert.Equal(t, "39.99", FormatAmount(li.Subtotal))
	assert.Equal(t, "0.00", FormatAmount(li.Tax))
	assert.Equal(t, "39.99", FormatAmount(li.Total))

	for i, item := range li.Items {
		assert.Equal(t, 1, item.Quantity)
		assert.True(t, item.UnitPrice.Equal(services[i].MonthlyPrice))
		assert.True(t, item.Total.Equal(item.UnitPrice))
		require.NotNil(t, item.ServiceID)
		assert.Equal(t, services[i].ID, *item.ServiceID)
	}
	assert.Equal(t, "Rack A1 - colocation (MIA1)", li.Items[0].Description)
}

func TestMaterialize_NoFloatDrift(t *testing.T) {
	services := make([]*models.Service, 0, 10)
	for i := 0; i < 10; i++ {
		services = append(services, service("svc", "colocation", "MIA1", "0.10"))
	}

	li := Materialize(services)

	assert.Equal(t, "1.00", FormatAmount(li.Total))
}

func TestMaterialize_Empty(t *testing.T) {
	li := Materialize(nil)

	assert.Empty(t, li.Items)
	assert.True(t, li.Total.IsZero())
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "150.00", FormatAmount(decimal.RequireFromString("150")))
	assert.Equal(t, "0.50", FormatAmount(decimal.RequireFromString("0.5")))
}
