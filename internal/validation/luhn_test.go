package validation

import "testing"

func TestIsValidOrderNumber(t *testing.T) {
	tests := []struct {
		name   string
		number string
		valid  bool
	}{
		{name: "storefront order number", number: "79927398713", valid: true},
		{name: "sixteen digits", number: "4539578763621486", valid: true},
		{name: "single zero", number: "0", valid: true},
		{name: "wrong check digit", number: "79927398710", valid: false},
		{name: "letter inside", number: "1234a67890", valid: false},
		{name: "surrounding spaces", number: " 79927398713 ", valid: false},
		{name: "empty", number: "", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidOrderNumber(tt.number)
			if got != tt.valid {
				t.Fatalf("IsValidOrderNumber(%q) = %v, want %v", tt.number, got, tt.valid)
			}
		})
	}
}

func TestOrderNumberCheckDigit(t *testing.T) {
	check, ok := OrderNumberCheckDigit("7992739871")
	if !ok {
		t.Fatalf("OrderNumberCheckDigit returned not ok")
	}
	if check != '3' {
		t.Fatalf("check digit = %c, want 3", check)
	}

	if _, ok := OrderNumberCheckDigit("12a4"); ok {
		t.Fatalf("expected not ok for non-digit body")
	}
}

func TestNewOrderNumber(t *testing.T) {
	for i := 0; i < 50; i++ {
		number, err := NewOrderNumber()
		if err != nil {
			t.Fatalf("NewOrderNumber error: %v", err)
		}
		if len(number) != orderNumberBodyLength+1 {
			t.Fatalf("len(%q) = %d, want %d", number, len(number), orderNumberBodyLength+1)
		}
		if number[0] == '0' {
			t.Fatalf("number %q starts with zero", number)
		}
		if !IsValidOrderNumber(number) {
			t.Fatalf("generated number %q does not pass Luhn check", number)
		}
	}
}
