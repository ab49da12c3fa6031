package models

// HealthVerdict is the watchdog's per-cycle liveness judgement.
type HealthVerdict int

const (
	Healthy HealthVerdict = iota
	Degraded
)

var verdictNames = map[HealthVerdict]string{
	Healthy:  "healthy",
	Degraded: "degraded",
}

func (v HealthVerdict) String() string {
	if n, ok := verdictNames[v]; ok {
		return n
	}
	return "unknown"
}

// VerdictReport is what the watchdog publishes after each check.
type VerdictReport struct {
	Cycle         uint64        `json:"cycle"`
	Tick          uint64        `json:"tick"`
	ProducerAlive bool          `json:"producer_alive"`
	ConsumerAlive bool          `json:"consumer_alive"`
	Verdict       HealthVerdict `json:"-"`
	VerdictName   string        `json:"verdict"`
}
