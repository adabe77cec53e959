package calendar

import (
	"testing"
	"time"
)

func mustHolidays(t *testing.T, dates ...string) Holidays {
	t.Helper()
	h, err := NewHolidays(dates...)
	if err != nil {
		t.Fatalf("NewHolidays: %v", err)
	}
	return h
}

func TestIsNonWorkingDay(t *testing.T) {
	h := mustHolidays(t, "2024-12-25")

	tests := []struct {
		date string
		want bool
	}{
		{"2024-12-23", false}, // Monday
		{"2024-12-25", true},  // holiday
		{"2024-12-28", true},  // Saturday
		{"2024-12-29", true},  // Sunday
		{"2024-12-31", false}, // Tuesday
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			if got := IsNonWorkingDay(MustParseDate(tt.date), h); got != tt.want {
				t.Errorf("IsNonWorkingDay(%s) = %v, want %v", tt.date, got, tt.want)
			}
		})
	}
}

func TestAddAndSubtractWorkingDays(t *testing.T) {
	h := mustHolidays(t, "2024-12-25", "2025-01-01")

	tests := []struct {
		name  string
		start string
		n     int
		want  string
	}{
		{"zero returns input", "2024-12-28", 0, "2024-12-28"},
		{"add across weekend", "2024-12-27", 1, "2024-12-30"},
		{"add across holiday", "2024-12-24", 1, "2024-12-26"},
		{"add across new year", "2024-12-31", 2, "2025-01-03"},
		{"subtract across weekend", "2024-12-30", -1, "2024-12-27"},
		{"subtract from saturday", "2024-12-28", -1, "2024-12-27"},
		{"subtract across holiday", "2024-12-26", -1, "2024-12-24"},
		{"negative add subtracts", "2024-12-30", -1, "2024-12-27"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatDate(AddWorkingDays(MustParseDate(tt.start), tt.n, h))
			if got != tt.want {
				t.Errorf("AddWorkingDays(%s, %d) = %s, want %s", tt.start, tt.n, got, tt.want)
			}
		})
	}

	got := FormatDate(SubtractWorkingDays(MustParseDate("2025-01-03"), 2, h))
	if got != "2024-12-31" {
		t.Errorf("SubtractWorkingDays = %s, want 2024-12-31", got)
	}
}

func TestArithmeticDoesNotMutateInput(t *testing.T) {
	d := time.Date(2024, 12, 27, 15, 30, 0, 0, time.UTC)
	orig := d

	_ = AddWorkingDays(d, 3, nil)
	_ = SubtractWorkingDays(d, 3, nil)
	_ = NextWorkingDay(d, nil)

	if !d.Equal(orig) {
		t.Errorf("input date changed: %v -> %v", orig, d)
	}
}

func TestNeighborWorkingDays(t *testing.T) {
	h := mustHolidays(t, "2024-12-25", "2024-12-26")

	if got := FormatDate(PreviousWorkingDay(MustParseDate("2024-12-30"), h)); got != "2024-12-27" {
		t.Errorf("PreviousWorkingDay = %s, want 2024-12-27", got)
	}
	if got := FormatDate(NextWorkingDay(MustParseDate("2024-12-24"), h)); got != "2024-12-27" {
		t.Errorf("NextWorkingDay = %s, want 2024-12-27", got)
	}
	if got := FormatDate(OnOrBeforeWorkingDay(MustParseDate("2024-12-29"), h)); got != "2024-12-27" {
		t.Errorf("OnOrBeforeWorkingDay = %s, want 2024-12-27", got)
	}
	if got := FormatDate(OnOrBeforeWorkingDay(MustParseDate("2024-12-31"), h)); got != "2024-12-31" {
		t.Errorf("OnOrBeforeWorkingDay(working day) = %s, want 2024-12-31", got)
	}
	if got := FormatDate(OnOrAfterWorkingDay(MustParseDate("2024-12-28"), h)); got != "2024-12-30" {
		t.Errorf("OnOrAfterWorkingDay = %s, want 2024-12-30", got)
	}
}

func TestNeighborWorkingDayTerminatesOnMalformedHolidays(t *testing.T) {
	// Every day for a year is a holiday.
	h := Holidays{}
	start := MustParseDate("2024-01-01")
	for i := 0; i < 366; i++ {
		h[FormatDate(start.AddDate(0, 0, i))] = struct{}{}
	}

	got := NextWorkingDay(start, h)
	if want := start.AddDate(0, 0, maxNeighborSteps); !got.Equal(want) {
		t.Errorf("NextWorkingDay = %s, want capped %s", FormatDate(got), FormatDate(want))
	}
}

func TestWorkingDaysBetween(t *testing.T) {
	h := mustHolidays(t, "2024-12-25")

	tests := []struct {
		from, to string
		want     int
	}{
		{"2024-12-23", "2024-12-27", 4},
		{"2024-12-27", "2024-12-23", 4},
		{"2024-12-28", "2024-12-29", 0},
		{"2024-12-31", "2024-12-31", 1},
	}

	for _, tt := range tests {
		if got := WorkingDaysBetween(MustParseDate(tt.from), MustParseDate(tt.to), h); got != tt.want {
			t.Errorf("WorkingDaysBetween(%s, %s) = %d, want %d", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestNewHolidaysRejectsBadDate(t *testing.T) {
	if _, err := NewHolidays("2024-13-01"); err == nil {
		t.Fatal("expected error for invalid holiday date")
	}

	h := mustHolidays(t, "2025-01-01", "2024-12-25")
	dates := h.Dates()
	if len(dates) != 2 || dates[0] != "2024-12-25" {
		t.Errorf("Dates() = %v, want sorted ascending", dates)
	}
}
