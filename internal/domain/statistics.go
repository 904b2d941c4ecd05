package domain

// Statistics summarises usage over the last day and the last week.
type Statistics struct {
	Timestamp          float64 `json:"timestamp"`
	LightTotalLastDay  float64 `json:"light_total_last_day"`
	ACTotalLastDay     float64 `json:"ac_total_last_day"`
	LightTotalLastWeek float64 `json:"light_total_last_week"`
	ACTotalLastWeek    float64 `json:"ac_total_last_week"`
}

// PeriodUsage is the total usage of both accounts within [StartTime, EndTime].
type PeriodUsage struct {
	StartTime  int64   `json:"start_time"`
	EndTime    int64   `json:"end_time"`
	LightUsage float64 `json:"light_usage"`
	ACUsage    float64 `json:"ac_usage"`
}

// CountInfo reports how many records are stored.
type CountInfo struct {
	Total     int64 `json:"total"`
	Last7Days int64 `json:"last_7_days"`
}

// TopUp marks a positive balance jump between two consecutive readings.
// Usage conversion clamps these to zero; TopUp keeps the discarded signal.
type TopUp struct {
	Timestamp float64 `json:"timestamp"`
	Light     float64 `json:"light"`
	AC        float64 `json:"ac"`
}
