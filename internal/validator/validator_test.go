package validator

import (
	"testing"

	"pricewatch/internal/models"
)

func TestValidator_ValidateStruct(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		product models.Product
		wantErr bool
	}{
		{
			name: "Valid Product",
			product: models.Product{
				URL:          "https://myntra.com/jeans/brand/item/12345/buy",
				Platform:     models.PlatformMyntra,
				DesiredPrice: 1500,
			},
			wantErr: false,
		},
		{
			name: "Missing URL",
			product: models.Product{
				Platform:     models.PlatformMyntra,
				DesiredPrice: 1500,
			},
			wantErr: true,
		},
		{
			name: "Invalid URL",
			product: models.Product{
				URL:          "not-a-url",
				Platform:     models.PlatformAmazon,
				DesiredPrice: 1500,
			},
			wantErr: true,
		},
		{
			name: "Missing desired price",
			product: models.Product{
				URL:      "https://amazon.in/dp/B0TEST",
				Platform: models.PlatformAmazon,
			},
			wantErr: true,
		},
		{
			name: "Negative desired price",
			product: models.Product{
				URL:          "https://amazon.in/dp/B0TEST",
				Platform:     models.PlatformAmazon,
				DesiredPrice: -100,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := v.ValidateStruct(tt.product); (err != nil) != tt.wantErr {
				t.Errorf("ValidateStruct() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
