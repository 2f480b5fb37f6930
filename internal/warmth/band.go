package warmth

// Band is the categorical label derived from a score. It is never stored.
type Band string

const (
	BandHot     Band = "hot"
	BandWarm    Band = "warm"
	BandNeutral Band = "neutral"
	BandCool    Band = "cool"
	BandCold    Band = "cold"
)

// bandFloors are inclusive lower bounds, hottest first.
var bandFloors = []struct {
	band  Band
	floor float64
}{
	{BandHot, 80},
	{BandWarm, 60},
	{BandNeutral, 40},
	{BandCool, 20},
}

// Classify maps an unrounded score to its band. Exact boundaries resolve upward.
func Classify(score float64) Band {
	for _, b := range bandFloors {
		if score >= b.floor {
			return b.band
		}
	}
	return BandCold
}

func (b Band) String() string {
	return string(b)
}
