package payout

import "testing"

func TestSplitPayout(t *testing.T) {
	tests := []struct {
		name          string
		price         int
		approvedCount int
		want          int
	}{
		{"even split", 100, 2, 50},
		{"floor division", 100, 3, 33},
		{"single approver takes all", 100, 1, 100},
		{"more approvers than rupees", 5, 10, 0},
		{"zero price", 0, 4, 0},
		{"no approvers", 500, 0, 0},
		{"negative count treated as none", 500, -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SplitPayout(tt.price, tt.approvedCount); got != tt.want {
				t.Errorf("SplitPayout(%d, %d) = %d, want %d", tt.price, tt.approvedCount, got, tt.want)
			}
		})
	}
}

func TestSplitPayoutNeverOverpays(t *testing.T) {
	for price := 0; price <= 200; price += 7 {
		for n := 1; n <= 9; n++ {
			per := SplitPayout(price, n)
			if per*n > price {
				t.Fatalf("SplitPayout(%d, %d) = %d distributes %d, exceeding the price", price, n, per, per*n)
			}
			if price-per*n >= n {
				t.Fatalf("SplitPayout(%d, %d) = %d leaves remainder %d >= %d", price, n, per, price-per*n, n)
			}
		}
	}
}
