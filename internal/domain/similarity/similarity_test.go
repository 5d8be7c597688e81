package similarity_test

import (
	"math/rand"
	"testing"

	"github.com/okian/rally/internal/domain/similarity"
	. "github.com/smartystreets/goconvey/convey"
)

var sampleNames = []string{
	"", " ", "Jaan Tamm", "Jan Tamm", "jaan  tamm", "Ott Tänak", "Ott Tanak",
	"AAAA", "ZZZZ", "Kalle Rovanperä", "Kalle Rovanpera", "Elfyn Evans",
	"Martin Järveoja", "M. Järveoja", "Sébastien Ogier", "Sebastien Loeb",
	"x", "xy", "yx", "Thierry Neuville",
}

func TestNormalize(t *testing.T) {
	Convey("Given names with mixed case and whitespace", t, func() {
		Convey("When normalizing", func() {
			So(similarity.Normalize("  JOHN   SMITH "), ShouldEqual, "john smith")
			So(similarity.Normalize("Ott\tTänak\n"), ShouldEqual, "ott tänak")
			So(similarity.Normalize("   "), ShouldEqual, "")
			So(similarity.Normalize(""), ShouldEqual, "")
		})

		Convey("Then Equal compares normalized forms", func() {
			So(similarity.Equal("JOHN  SMITH", "john smith"), ShouldBeTrue)
			So(similarity.Equal("john smith", "john smyth"), ShouldBeFalse)
		})

		Convey("Then case folding goes beyond lower-casing", func() {
			So(similarity.Normalize("Straße"), ShouldEqual, "strasse")
			So(similarity.Equal("STRASSE", "straße"), ShouldBeTrue)
			So(similarity.Score("Jan STRASSE", "jan straße"), ShouldEqual, 1.0)
		})
	})
}

func TestScore(t *testing.T) {
	Convey("Given the documented examples", t, func() {
		So(similarity.Score("Jaan Tamm", "Jaan Tamm"), ShouldEqual, 1.0)
		So(similarity.Score("Jaan Tamm", "Jan Tamm"), ShouldAlmostEqual, 8.0/9.0, 1e-9)
		So(similarity.Score("AAAA", "ZZZZ"), ShouldEqual, 0.0)
		So(similarity.Score("JOHN  SMITH", "john smith"), ShouldEqual, 1.0)
	})

	Convey("Given an empty side", t, func() {
		So(similarity.Score("", "Jaan Tamm"), ShouldEqual, 0.0)
		So(similarity.Score("Jaan Tamm", ""), ShouldEqual, 0.0)
		So(similarity.Score("   ", "   "), ShouldEqual, 0.0)
		So(similarity.Score("", ""), ShouldEqual, 0.0)
	})

	Convey("Given non-ASCII names", t, func() {
		Convey("Then a diacritic counts as a single edit", func() {
			So(similarity.Distance("Ott Tänak", "Ott Tanak"), ShouldEqual, 1)
			So(similarity.Score("Ott Tänak", "Ott Tanak"), ShouldAlmostEqual, 8.0/9.0, 1e-9)
		})
	})

	Convey("Given every pair of sample names", t, func() {
		for _, a := range sampleNames {
			for _, b := range sampleNames {
				s := similarity.Score(a, b)

				So(s, ShouldBeBetweenOrEqual, 0.0, 1.0)
				So(s, ShouldEqual, similarity.Score(b, a))
			}
			if similarity.Normalize(a) != "" {
				So(similarity.Score(a, a), ShouldEqual, 1.0)
			}
		}
	})
}

func TestDistanceIsMetric(t *testing.T) {
	Convey("Given sampled triples of names", t, func() {
		rng := rand.New(rand.NewSource(7))
		for i := 0; i < 500; i++ {
			a := sampleNames[rng.Intn(len(sampleNames))]
			b := sampleNames[rng.Intn(len(sampleNames))]
			c := sampleNames[rng.Intn(len(sampleNames))]

			So(similarity.Distance(a, a), ShouldEqual, 0)
			So(similarity.Distance(a, b), ShouldEqual, similarity.Distance(b, a))
			So(similarity.Distance(a, c), ShouldBeLessThanOrEqualTo, similarity.Distance(a, b)+similarity.Distance(b, c))
		}
	})

	Convey("Given known edit distances", t, func() {
		So(similarity.Distance("kitten", "sitting"), ShouldEqual, 3)
		So(similarity.Distance("", "abc"), ShouldEqual, 3)
		So(similarity.Distance("abc", ""), ShouldEqual, 3)
		So(similarity.Distance("xy", "yx"), ShouldEqual, 2)
	})
}
