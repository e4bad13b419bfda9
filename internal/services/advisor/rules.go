package advisor

import "GridPulse/internal/domain/models"

// DefaultRules maps finding kinds to saving tips. The table is swappable;
// pass a custom map to New to change the catalog without touching detection.
func DefaultRules() map[string]string {
    return map[string]string{
        models.FindingContinuousUsage: "Appliances ran continuously for long stretches. Add timers or schedule breaks for heavy loads.",
        models.FindingPeakUsage:       "A large share of your usage falls in peak hours. Shift flexible loads like laundry to off-peak times.",
        models.FindingStandbyDrain:    "Persistent low-level draw suggests standby drain. Unplug idle devices or use switched power strips.",
    }
}
