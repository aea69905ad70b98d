package redis

import "fmt"

const (
	analyticsStreamKey = "analytics:events"
)

func userKey(id string) string          { return fmt.Sprintf("user:%s", id) }
func userEmailKey(email string) string  { return fmt.Sprintf("user_email:%s", email) }
func paymentKey(id string) string       { return fmt.Sprintf("payment:%s", id) }
func subscriptionKey(uid string) string { return fmt.Sprintf("subscription:%s", uid) }
func userEventsKey(uid string) string   { return fmt.Sprintf("analytics:user:%s", uid) }

// ClientRateKey buckets requests per client address.
func ClientRateKey(ip string) string { return fmt.Sprintf("rate_limit:%s", ip) }
