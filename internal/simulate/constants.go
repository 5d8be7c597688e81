package simulate

import "time"

// Generation limits.
const (
	minVariantLength = 10
	variantEvery     = 3
	maxRallies       = 52
)

// Runner configuration constants.
const (
	rallySpacing         = 14 * 24 * time.Hour
	PercentageMultiplier = 100
)

// driverPool holds the names a season draws from.
var driverPool = []string{
	"Kalle Rovanpera",
	"Thierry Neuville",
	"Elfyn Evans",
	"Sebastien Ogier",
	"Ott Tanak",
	"Takamoto Katsuta",
	"Adrien Fourmaux",
	"Andreas Mikkelsen",
	"Gregoire Munster",
	"Sami Pajari",
	"Oliver Solberg",
	"Nikolay Gryazin",
	"Yohan Rossel",
	"Kajetan Kajetanowicz",
	"Jan Solans",
	"Mikko Heikkila",
	"Georg Linnamae",
	"Robert Virves",
	"Lauri Joona",
	"Alejandro Cachon",
}
