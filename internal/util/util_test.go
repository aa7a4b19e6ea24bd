package util

import (
	"testing"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "Trailing slash removed",
			input: "https://www.myntra.com/jeans/brand/item/12345/buy/",
			want:  "https://myntra.com/jeans/brand/item/12345/buy",
		},
		{
			name:  "Remove www and lowercase host",
			input: "https://WWW.Amazon.in/dp/B0TEST",
			want:  "https://amazon.in/dp/B0TEST",
		},
		{
			name:  "Force https",
			input: "http://flipkart.com/item/p/itm123",
			want:  "https://flipkart.com/item/p/itm123",
		},
		{
			name:  "Remove UTM params",
			input: "https://myntra.com/item?utm_source=foo&utm_medium=bar",
			want:  "https://myntra.com/item",
		},
		{
			name:  "Remove amazon tracking params",
			input: "https://amazon.in/dp/B0TEST?ref_=nav&tag=aff-21",
			want:  "https://amazon.in/dp/B0TEST",
		},
		{
			name:  "Fragment dropped",
			input: "https://flipkart.com/item/p/itm123#reviews",
			want:  "https://flipkart.com/item/p/itm123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("NormalizeURL() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("NormalizeURL() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSameProductURL(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{
			name: "Identical",
			a:    "https://myntra.com/item/123/buy",
			b:    "https://myntra.com/item/123/buy",
			want: true,
		},
		{
			name: "Case-insensitive host and scheme upgrade",
			a:    "http://WWW.Myntra.com/item/123/buy/",
			b:    "https://myntra.com/item/123/buy",
			want: true,
		},
		{
			name: "Tracking params ignored",
			a:    "https://amazon.in/dp/B0TEST?tag=aff-21",
			b:    "https://amazon.in/dp/B0TEST",
			want: true,
		},
		{
			name: "Different products",
			a:    "https://amazon.in/dp/B0AAA",
			b:    "https://amazon.in/dp/B0BBB",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameProductURL(tt.a, tt.b); got != tt.want {
				t.Errorf("SameProductURL(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{"Rupee symbol with comma", "₹1,299", 1299},
		{"Rs prefix with decimals", "Rs. 1299.50", 1299.5},
		{"Plain number", "450", 450},
		{"Spaces as separators", "1 299", 1299},
		{"Strikethrough MRP text", "M.R.P.: ₹2,999", 2999},
		{"Empty", "", 0},
		{"No digits", "Price unavailable", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParsePrice(tt.input); got != tt.want {
				t.Errorf("ParsePrice(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSafeAtoi(t *testing.T) {
	if got := SafeAtoi(" 42 "); got != 42 {
		t.Errorf("SafeAtoi(\" 42 \") = %d, want 42", got)
	}
	if got := SafeAtoi("nope"); got != 0 {
		t.Errorf("SafeAtoi(\"nope\") = %d, want 0", got)
	}
}
