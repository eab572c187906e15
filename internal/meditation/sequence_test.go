package meditation_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"mantrify/internal/meditation"
)

func ptr[T any](v T) *T { return &v }

func requireDenseOrder(t *testing.T, seq *meditation.Sequence) {
	t.Helper()
	ordered := seq.Ordered()
	require.Len(t, ordered, seq.Len())
	seen := make(map[string]struct{}, len(ordered))
	for i, seg := range ordered {
		require.Equal(t, i, seg.Position(), "segment %d has order %d", i, seg.Position())
		_, dup := seen[seg.SegmentID()]
		require.False(t, dup, "duplicate id %s", seg.SegmentID())
		seen[seg.SegmentID()] = struct{}{}
	}
}

func TestAddAssignsDefaultsAndPositions(t *testing.T) {
	seq := meditation.NewSequence()

	text, err := seq.Add(meditation.KindText, -1)
	require.NoError(t, err)
	require.NotEmpty(t, text.SegmentID())
	require.Equal(t, meditation.DefaultSpeed, text.(*meditation.TextSegment).Speed)

	pause, err := seq.Add(meditation.KindPause, 0)
	require.NoError(t, err)
	require.Equal(t, 0, pause.Position())

	sound, err := seq.Add(meditation.KindSound, 99)
	require.NoError(t, err)
	require.Equal(t, 2, sound.Position())

	ordered := seq.Ordered()
	require.Equal(t, []meditation.Kind{meditation.KindPause, meditation.KindText, meditation.KindSound},
		[]meditation.Kind{ordered[0].Kind(), ordered[1].Kind(), ordered[2].Kind()})
	requireDenseOrder(t, seq)
}

func TestAddRejectsUnknownKind(t *testing.T) {
	seq := meditation.NewSequence()
	_, err := seq.Add(meditation.Kind("video"), -1)
	require.ErrorIs(t, err, meditation.ErrUnknownKind)
	require.Zero(t, seq.Len())
}

func TestRemoveRenumbers(t *testing.T) {
	seq := meditation.NewSequence()
	a, _ := seq.Add(meditation.KindText, -1)
	b, _ := seq.Add(meditation.KindPause, -1)
	c, _ := seq.Add(meditation.KindSound, -1)

	require.NoError(t, seq.Remove(b.SegmentID()))
	requireDenseOrder(t, seq)

	ordered := seq.Ordered()
	require.Equal(t, a.SegmentID(), ordered[0].SegmentID())
	require.Equal(t, c.SegmentID(), ordered[1].SegmentID())

	require.ErrorIs(t, seq.Remove(b.SegmentID()), meditation.ErrSegmentNotFound)
}

func TestReorderClampsAndRenumbers(t *testing.T) {
	seq := meditation.NewSequence()
	a, _ := seq.Add(meditation.KindText, -1)
	b, _ := seq.Add(meditation.KindPause, -1)
	c, _ := seq.Add(meditation.KindSound, -1)

	require.NoError(t, seq.Reorder(c.SegmentID(), -5))
	ids := func() []string {
		var out []string
		for _, seg := range seq.Ordered() {
			out = append(out, seg.SegmentID())
		}
		return out
	}
	require.Equal(t, []string{c.SegmentID(), a.SegmentID(), b.SegmentID()}, ids())

	require.NoError(t, seq.Reorder(c.SegmentID(), 10))
	require.Equal(t, []string{a.SegmentID(), b.SegmentID(), c.SegmentID()}, ids())
	requireDenseOrder(t, seq)

	require.ErrorIs(t, seq.Reorder("missing", 0), meditation.ErrSegmentNotFound)
}

func TestUpdateAppliesVariantFields(t *testing.T) {
	seq := meditation.NewSequence()
	text, _ := seq.Add(meditation.KindText, -1)

	require.NoError(t, seq.Update(text.SegmentID(), meditation.Patch{
		Text:  ptr("Breathe in"),
		Speed: ptr(" 0.9 "),
	}))
	got, ok := seq.Get(text.SegmentID())
	require.True(t, ok)
	require.Equal(t, "Breathe in", got.(*meditation.TextSegment).Text)
	require.Equal(t, "0.9", got.(*meditation.TextSegment).Speed)

	require.NoError(t, seq.Update(text.SegmentID(), meditation.Patch{Speed: ptr("")}))
	got, _ = seq.Get(text.SegmentID())
	require.Equal(t, meditation.DefaultSpeed, got.(*meditation.TextSegment).Speed)
}

func TestUpdateRejectsForeignFieldsAtomically(t *testing.T) {
	seq := meditation.NewSequence()
	text, _ := seq.Add(meditation.KindText, -1)
	require.NoError(t, seq.Update(text.SegmentID(), meditation.Patch{Text: ptr("keep me")}))

	err := seq.Update(text.SegmentID(), meditation.Patch{
		Text:            ptr("changed"),
		DurationSeconds: ptr("3"),
	})
	require.ErrorIs(t, err, meditation.ErrFieldNotApplicable)

	got, _ := seq.Get(text.SegmentID())
	require.Equal(t, "keep me", got.(*meditation.TextSegment).Text)

	require.ErrorIs(t, seq.Update("missing", meditation.Patch{}), meditation.ErrSegmentNotFound)
}

func TestUpdateKindSwitchClearsOldFields(t *testing.T) {
	seq := meditation.NewSequence()
	seq.Add(meditation.KindPause, -1)
	text, _ := seq.Add(meditation.KindText, -1)
	require.NoError(t, seq.Update(text.SegmentID(), meditation.Patch{Text: ptr("hello"), Speed: ptr("1.1")}))

	require.NoError(t, seq.Update(text.SegmentID(), meditation.Patch{
		Kind:      ptr(meditation.KindSound),
		SoundFile: ptr("rain.mp3"),
	}))
	got, ok := seq.Get(text.SegmentID())
	require.True(t, ok)
	sound, isSound := got.(*meditation.SoundSegment)
	require.True(t, isSound, "expected sound segment, got %T", got)
	require.Equal(t, "rain.mp3", sound.SoundFile)
	require.Equal(t, 1, sound.Position())

	require.NoError(t, seq.Update(text.SegmentID(), meditation.Patch{Kind: ptr(meditation.KindText)}))
	got, _ = seq.Get(text.SegmentID())
	back := got.(*meditation.TextSegment)
	require.Empty(t, back.Text)
	require.Equal(t, meditation.DefaultSpeed, back.Speed)
}

func TestOrderedReturnsCopies(t *testing.T) {
	seq := meditation.NewSequence()
	text, _ := seq.Add(meditation.KindText, -1)

	ordered := seq.Ordered()
	ordered[0].(*meditation.TextSegment).Text = "mutated"

	got, _ := seq.Get(text.SegmentID())
	require.Empty(t, got.(*meditation.TextSegment).Text)
}

func TestRandomEditsKeepOrderDense(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	seq := meditation.NewSequence()
	kinds := meditation.Kinds()

	for step := 0; step < 500; step++ {
		ordered := seq.Ordered()
		switch op := rng.Intn(3); {
		case op == 0 || len(ordered) == 0:
			_, err := seq.Add(kinds[rng.Intn(len(kinds))], rng.Intn(len(ordered)+3)-1)
			require.NoError(t, err)
		case op == 1:
			require.NoError(t, seq.Remove(ordered[rng.Intn(len(ordered))].SegmentID()))
		default:
			require.NoError(t, seq.Reorder(ordered[rng.Intn(len(ordered))].SegmentID(), rng.Intn(len(ordered)+2)-1))
		}
		requireDenseOrder(t, seq)
	}
}
