package league

import (
	"math"
	"strconv"
	"strings"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/apperr"
	"github.com/tidwall/gjson"
)

type ScoringConfig struct {
	AttendancePoints float64 `db:"attendance_points" json:"attendancePoints"`
	GoalPoints       float64 `db:"goal_points" json:"goalPoints"`
	WinBonus         float64 `db:"win_bonus" json:"winBonus"`
	EnableAssists    bool    `db:"enable_assists" json:"enableAssists"`
	AssistPoints     float64 `db:"assist_points" json:"assistPoints"`
}

func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		AttendancePoints: 1,
		GoalPoints:       1,
		WinBonus:         5,
		EnableAssists:    false,
		AssistPoints:     1,
	}
}

// ParseScoringConfig reads an admin submitted scoring body. Missing fields
// fall back to the defaults, numeric strings are accepted, anything else that
// is not a finite non-negative number is rejected.
func ParseScoringConfig(raw []byte) (ScoringConfig, error) {
	cfg := DefaultScoringConfig()
	if len(strings.TrimSpace(string(raw))) == 0 {
		return cfg, nil
	}
	if !gjson.ValidBytes(raw) {
		return cfg, apperr.Validation("Invalid JSON body")
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return cfg, apperr.Validation("Scoring config must be an object")
	}

	fields := []struct {
		key string
		dst *float64
	}{
		{"attendancePoints", &cfg.AttendancePoints},
		{"goalPoints", &cfg.GoalPoints},
		{"winBonus", &cfg.WinBonus},
		{"assistPoints", &cfg.AssistPoints},
	}
	for _, f := range fields {
		v := doc.Get(f.key)
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}
		n, ok := numeric(v)
		if !ok {
			return cfg, apperr.Validation("Points must be numeric")
		}
		if n < 0 {
			return cfg, apperr.Validation("Points must not be negative")
		}
		*f.dst = n
	}

	if v := doc.Get("enableAssists"); v.Exists() {
		cfg.EnableAssists = v.Bool()
	}
	return cfg, nil
}

// Validate checks a typed config the same way ParseScoringConfig checks JSON.
func (c ScoringConfig) Validate() error {
	for _, n := range []float64{c.AttendancePoints, c.GoalPoints, c.WinBonus, c.AssistPoints} {
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return apperr.Validation("Points must be numeric")
		}
		if n < 0 {
			return apperr.Validation("Points must not be negative")
		}
	}
	return nil
}

func numeric(v gjson.Result) (float64, bool) {
	var n float64
	switch v.Type {
	case gjson.Number:
		n = v.Num
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, false
		}
		n = parsed
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
