package schedule

import (
	"time"

	"cloud.google.com/go/civil"
)

// AddMonths moves d by n calendar months (n may be negative). The day of month is kept
// unless the target month is shorter, in which case it clamps to that month's last day.
func AddMonths(d civil.Date, n int) civil.Date {
	offset := int(d.Month) - 1 + n
	year := d.Year + floorDiv(offset, 12)
	month := time.Month(offset-floorDiv(offset, 12)*12 + 1)

	day := d.Day
	if last := daysIn(year, month); day > last {
		day = last
	}
	return civil.Date{Year: year, Month: month, Day: day}
}

func daysIn(year int, month time.Month) int {
	switch month {
	case time.February:
		if isLeap(year) {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}

func isLeap(year int) bool {
	return year%400 == 0 || (year%4 == 0 && year%100 != 0)
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
