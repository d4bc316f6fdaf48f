package redis

import "fmt"

const ns = "eventbook:v1"

func KeyEventSummary(eventID int64) string {
	return fmt.Sprintf("%s:event:%d:summary", ns, eventID)
}

func KeyEventAvailability(eventID int64) string {
	return fmt.Sprintf("%s:event:%d:availability", ns, eventID)
}

func KeyEventList(search string, limit, offset int) string {
	return fmt.Sprintf("%s:events:%s:%d:%d", ns, search, limit, offset)
}

func KeySession(token string) string {
	return fmt.Sprintf("%s:session:%s", ns, token)
}

func KeyIdemBooking(eventID int64, idemKey string) string {
	return fmt.Sprintf("%s:idem:bookings:%d:%s", ns, eventID, idemKey)
}
