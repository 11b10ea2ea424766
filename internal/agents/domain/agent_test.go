package domain

import "testing"

func TestPickLeastLoaded(t *testing.T) {
	tests := []struct {
		name   string
		agents []Agent
		want   int
	}{
		{name: "empty", agents: nil, want: -1},
		{name: "none eligible", agents: []Agent{{IsActive: true}, {IsApproved: true}}, want: -1},
		{
			name: "fewest calls wins",
			agents: []Agent{
				{IsActive: true, IsApproved: true, TotalCalls: 3},
				{IsActive: true, IsApproved: true, TotalCalls: 1},
			},
			want: 1,
		},
		{
			name: "ties keep input order",
			agents: []Agent{
				{IsActive: true, IsApproved: true, TotalCalls: 2},
				{IsActive: true, IsApproved: true, TotalCalls: 0},
				{IsActive: true, IsApproved: true, TotalCalls: 0},
			},
			want: 1,
		},
		{
			name: "inactive agent skipped even when idle",
			agents: []Agent{
				{IsActive: false, IsApproved: true, TotalCalls: 0},
				{IsActive: true, IsApproved: true, TotalCalls: 5},
			},
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PickLeastLoaded(tt.agents); got != tt.want {
				t.Fatalf("PickLeastLoaded() = %d, want %d", got, tt.want)
			}
		})
	}
}
