package domain

import (
	"testing"
	"time"
)

func TestQuarterOf(t *testing.T) {
	cases := []struct {
		month   time.Month
		quarter int
	}{
		{time.January, 1},
		{time.March, 1},
		{time.April, 2},
		{time.June, 2},
		{time.July, 3},
		{time.September, 3},
		{time.October, 4},
		{time.December, 4},
	}
	for _, tc := range cases {
		date := time.Date(2025, tc.month, 15, 0, 0, 0, 0, time.UTC)
		if got := QuarterOf(date); got != tc.quarter {
			t.Fatalf("QuarterOf(%s) = %d, want %d", tc.month, got, tc.quarter)
		}
	}
}

func TestSetDateRecomputesYearAndQuarter(t *testing.T) {
	doc := Document{}
	doc.SetDate(time.Date(2024, time.November, 3, 0, 0, 0, 0, time.UTC))
	if doc.Year != 2024 || doc.Quarter != 4 {
		t.Fatalf("expected 2024/Q4, got %d/Q%d", doc.Year, doc.Quarter)
	}

	doc.SetDate(time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC))
	if doc.Year != 2025 || doc.Quarter != 1 {
		t.Fatalf("expected 2025/Q1 after date change, got %d/Q%d", doc.Year, doc.Quarter)
	}
}

func TestAdvanceOnlyMovesForward(t *testing.T) {
	doc := Document{Status: StatusAnalyzing}

	if !doc.Advance(StatusOK) {
		t.Fatalf("expected analyzing -> ok to be allowed")
	}
	if doc.Advance(StatusPotentialDuplicate) {
		t.Fatalf("expected terminal status to refuse forward transition")
	}
	if doc.Status != StatusOK {
		t.Fatalf("expected status to stay ok, got %s", doc.Status)
	}

	if !doc.Advance(StatusError) {
		t.Fatalf("expected error to be reachable from any state")
	}
	if doc.Status != StatusError {
		t.Fatalf("expected error status, got %s", doc.Status)
	}
}

func TestAssignProviderSetExactlyOnce(t *testing.T) {
	doc := Document{}
	if !doc.AssignProvider(ProviderPrimary, "https://cdn.example/a.pdf") {
		t.Fatalf("expected first provider assignment to succeed")
	}
	if doc.AssignProvider(ProviderOverflow, "https://overflow.example/a.pdf") {
		t.Fatalf("expected second provider assignment to be refused")
	}
	if doc.StorageProvider != ProviderPrimary || doc.FileURL != "https://cdn.example/a.pdf" {
		t.Fatalf("provider/url overwritten: %s %s", doc.StorageProvider, doc.FileURL)
	}
}
