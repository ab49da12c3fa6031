package models

// LogRecord is the persisted form of one averaged sample.
// Records are only ever appended; nothing in the pipeline rewrites them.
type LogRecord struct {
	Sample     AxisSample `json:"sample"`
	CPUPercent uint32     `json:"cpu_percent"`
	Tick       uint64     `json:"tick"`
	Bit1       bool       `json:"bit1"` // producer alive, as last observed by the watchdog
	Bit2       bool       `json:"bit2"` // consumer alive, as last observed by the watchdog
}

// Line renders the record as a single text line, newline included:
//
//	Value, <x> <y> <z>, CPU: <cpu>, Time: <tick>, Status: Bit1 <0|1>, Bit2 <0|1>
func (r *LogRecord) Line() string {
	return "Value, " + i32toa(r.Sample.X) + " " + i32toa(r.Sample.Y) + " " + i32toa(r.Sample.Z) +
		", CPU: " + utoa64(uint64(r.CPUPercent)) +
		", Time: " + utoa64(r.Tick) +
		", Status: Bit1 " + btoa(r.Bit1) +
		", Bit2 " + btoa(r.Bit2) + "\n"
}

// Bytes is Line as a byte slice, ready for an append-only store.
func (r *LogRecord) Bytes() []byte {
	return []byte(r.Line())
}
