package manifest

import (
	"math/rand/v2"
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultSlots(t *testing.T) []Slot {
	t.Helper()
	slots, err := CompileSlots(DefaultFlyerSlots())
	require.NoError(t, err)
	return slots
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"ordinal and hyphen date", "1 - 10-16 - Main Stage.png", "10-16-main-stage"},
		{"colon date", "1 - 10:16 - Main Stage.png", "10-16-main-stage"},
		{"leading date is not an ordinal", "10-16 - Main Stage.jpg", "10-16-main-stage"},
		{"spaced separator", "10 : 16.png", "10-16"},
		{"dotted date", "IMG 10.16.jpeg", "img-10-16"},
		{"copy suffix", "08 - Full Festival Flyer (copy).png", "full-festival-flyer"},
		{"numbered copy", "Main_Stage  (copy 2).PNG", "main-stage"},
		{"duplicate counter", "poster (3).webp", "poster"},
		{"trailing copy word", "poster copy.png", "poster"},
		{"timestamp", "poster_1758052176341.webp", "poster"},
		{"noise only", "(1).png", "(1)"},
		{"case fold", "CROWD.AVIF", "crowd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeKey(tt.in))
		})
	}
}

func TestIsImage(t *testing.T) {
	assert.True(t, IsImage("a.JPG"))
	assert.True(t, IsImage("a.jpeg"))
	assert.True(t, IsImage("a.webp"))
	assert.True(t, IsImage("a.avif"))
	assert.False(t, IsImage("._a.png"))
	assert.False(t, IsImage("notes.txt"))
	assert.False(t, IsImage("manifest.json"))
	assert.False(t, IsImage("png"))
}

func TestResolve_DateVariantsAndResourceForks(t *testing.T) {
	in := []string{
		"1 - 10-16 - Main Stage.png",
		"1 - 10:16 - Main Stage.png",
		"._1 - 10-16 - Main Stage.png",
	}
	want := []string{"1 - 10-16 - Main Stage.png"}

	res := Resolve(in, Options{Kind: KindFlyers, Slots: defaultSlots(t)})
	assert.Equal(t, want, res.Files)
	assert.Equal(t, 1, res.Duplicates)
	assert.Empty(t, res.Remapped)

	res = Resolve(in, Options{Kind: KindGallery})
	assert.Equal(t, want, res.Files)
}

func TestResolve_Empty(t *testing.T) {
	res := Resolve(nil, Options{Kind: KindFlyers, Slots: defaultSlots(t)})
	require.NotNil(t, res.Files)
	assert.Empty(t, res.Files)

	res = Resolve([]string{}, Options{Kind: KindGallery})
	require.NotNil(t, res.Files)
	assert.Empty(t, res.Files)
}

func TestResolve_UnmatchedNameDependsOnMode(t *testing.T) {
	in := []string{"randomname.png"}

	res := Resolve(in, Options{Kind: KindGallery})
	assert.Equal(t, []string{"randomname.png"}, res.Files)

	res = Resolve(in, Options{Kind: KindFlyers, Slots: defaultSlots(t)})
	assert.Empty(t, res.Files)
}

func TestResolve_PrefersShorterName(t *testing.T) {
	in := []string{"08 - Full Festival Flyer (copy).png", "8 - Full Festival Flyer.png"}

	res := Resolve(in, Options{Kind: KindFlyers, Slots: defaultSlots(t)})
	assert.Equal(t, []string{"8 - Full Festival Flyer.png"}, res.Files)

	res = Resolve(in, Options{Kind: KindGallery})
	assert.Equal(t, []string{"8 - Full Festival Flyer.png"}, res.Files)
}

func TestResolve_CanonicalNameBeatsShorterVariant(t *testing.T) {
	in := []string{
		"1 - 10-16 - Main Stage.png",
		"10-16 - Main Stage.png",
		"8 - Full Festival Flyer.png",
		"Full Festival Flyer.png",
	}

	res := Resolve(in, Options{Kind: KindFlyers, Slots: defaultSlots(t)})
	assert.Equal(t, []string{"1 - 10-16 - Main Stage.png", "8 - Full Festival Flyer.png"}, res.Files)
	assert.Equal(t, 2, res.Duplicates)
	assert.Empty(t, res.Remapped)

	// Without slots the shortest name still wins.
	res = Resolve(in, Options{Kind: KindGallery})
	assert.Equal(t, []string{"10-16 - Main Stage.png", "Full Festival Flyer.png"}, res.Files)
}

func TestResolve_VariantRemappedToSlotName(t *testing.T) {
	in := []string{"1 - 10:16 - main stage.png", "8 - Full Festival Flyer.png"}

	res := Resolve(in, Options{Kind: KindFlyers, Slots: defaultSlots(t)})
	assert.Equal(t, []string{"1 - 10-16 - Main Stage.png", "8 - Full Festival Flyer.png"}, res.Files)
	assert.Equal(t, []Remap{{From: "1 - 10:16 - main stage.png", To: "1 - 10-16 - Main Stage.png"}}, res.Remapped)
}

func TestResolve_FullRunningOrder(t *testing.T) {
	var in []string
	for _, s := range DefaultFlyerSlots() {
		in = append(in, s.Name)
	}
	// Reverse so the output order can only come from the slots.
	for i, j := 0, len(in)-1; i < j; i, j = i+1, j-1 {
		in[i], in[j] = in[j], in[i]
	}
	in = append(in, "extra.png", "._2 - 10-17 - Main Stage.png")

	res := Resolve(in, Options{Kind: KindFlyers, Slots: defaultSlots(t)})
	require.Len(t, res.Files, 8)
	assert.Equal(t, "1 - 10-16 - Main Stage.png", res.Files[0])
	assert.Equal(t, "8 - Full Festival Flyer.png", res.Files[7])
	assert.NotContains(t, res.Files, "extra.png")
}

func TestResolve_AmbiguousPicksFirst(t *testing.T) {
	slots := []Slot{{Name: "a.png", Pattern: regexp.MustCompile(`(?i)^a`)}}

	res := Resolve([]string{"ac.png", "ab.png"}, Options{Kind: KindFlyers, Slots: slots})
	assert.Equal(t, []string{"a.png"}, res.Files)
	assert.Equal(t, []Remap{{From: "ab.png", To: "a.png"}}, res.Remapped)
	require.Len(t, res.Ambiguous, 1)
	assert.Equal(t, []string{"ab.png", "ac.png"}, res.Ambiguous[0].Candidates)
}

func TestResolve_FileClaimedOnce(t *testing.T) {
	slots := []Slot{
		{Name: "x.png", Pattern: regexp.MustCompile(`(?i)^shared`)},
		{Name: "y.png", Pattern: regexp.MustCompile(`(?i)^shared`)},
	}

	res := Resolve([]string{"shared.png"}, Options{Kind: KindFlyers, Slots: slots})
	assert.Equal(t, []string{"x.png"}, res.Files)
}

func TestResolve_ExactMatchBeatsEarlierPattern(t *testing.T) {
	slots := []Slot{
		{Name: "a.png", Pattern: regexp.MustCompile(`(?i)\.png$`)},
		{Name: "b.png"},
	}

	res := Resolve([]string{"b.png"}, Options{Kind: KindFlyers, Slots: slots})
	assert.Equal(t, []string{"b.png"}, res.Files)
	assert.Empty(t, res.Remapped)
}

func TestResolve_SortIsCaseInsensitive(t *testing.T) {
	res := Resolve([]string{"b.png", "A.png", "c.png", "a2.png"}, Options{Kind: KindGallery})
	assert.Equal(t, []string{"A.png", "a2.png", "b.png", "c.png"}, res.Files)
}

func TestResolve_Deterministic(t *testing.T) {
	in := []string{
		"1 - 10-16 - Main Stage.png", "1 - 10:16 - Main Stage.png", "crowd_1758052176341.jpg",
		"crowd.jpg", "Crowd (1).JPG", "stage.webp", "stage copy.webp", "._stage.webp",
		"3 - 10-17 - Club Stage.png", "03 - 10.17 - club stage.png", "night.avif",
	}
	for _, opts := range []Options{{Kind: KindGallery}, {Kind: KindFlyers, Slots: defaultSlots(t)}} {
		want := Resolve(in, opts)

		r := rand.New(rand.NewPCG(1, 2))
		for i := 0; i < 20; i++ {
			shuffled := append([]string(nil), in...)
			r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
			got := Resolve(shuffled, opts)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("Resolve not deterministic (-want +got):\n%s", diff)
			}
		}
	}
}

func TestDedupe_IdempotentAndKeysUnique(t *testing.T) {
	in := []string{
		"crowd.jpg", "Crowd (1).JPG", "crowd copy.jpg", "stage 10:16.png", "stage 10-16.png",
		"poster_1758052176341.png", "poster.png", "other.png",
	}
	once := Dedupe(in)
	assert.Equal(t, once, Dedupe(once))

	seen := map[string]string{}
	for _, n := range once {
		k := NormalizeKey(n)
		prev, dup := seen[k]
		assert.False(t, dup, "%q and %q share key %q", prev, n, k)
		seen[k] = n
	}
	assert.Contains(t, once, "crowd.jpg")
	assert.Contains(t, once, "poster.png")
}

func TestDedupe_TieGoesToFirstSorted(t *testing.T) {
	assert.Equal(t, []string{"10-16.png"}, Dedupe([]string{"10:16.png", "10-16.png"}))
}
