package domain

// Audience describes who a campaign targets. The optimizer narrows it
// when conversion metrics fall below threshold.
type Audience struct {
	Languages []string `json:"languages"`
	Geos      []string `json:"geos"`
	AgeMin    int      `json:"age_min"`
	AgeMax    int      `json:"age_max"`
	Interests []string `json:"interests"`
}
