package zoetrope

import (
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
)

type countingDrawable struct{ draws int }

func (c *countingDrawable) Draw(*ebiten.Image, ebiten.GeoM, float64) { c.draws++ }

func TestLayerAddRemove(t *testing.T) {
	l := &Layer{Name: "test", Visible: true, Opacity: 1, ClearEachFrame: true}
	a := &countingDrawable{}
	b := &countingDrawable{}

	l.Add(a)
	l.Add(b)
	if l.Len() != 2 {
		t.Fatalf("Len = %d, want 2", l.Len())
	}
	if !l.Contains(a) || !l.Contains(b) {
		t.Error("Contains should report both objects")
	}

	l.Remove(a)
	if l.Len() != 1 {
		t.Errorf("Len after removal = %d, want 1", l.Len())
	}
	if l.Contains(a) {
		t.Error("removed object still reported as member")
	}
}

func TestLayerReAddIsNoop(t *testing.T) {
	l := &Layer{Name: "test"}
	a := &countingDrawable{}
	l.Add(a)
	l.Add(a)
	if l.Len() != 1 {
		t.Errorf("Len after double add = %d, want 1", l.Len())
	}
}

func TestLayerRemoveNonMemberIsNoop(t *testing.T) {
	l := &Layer{Name: "test"}
	a := &countingDrawable{}
	l.Remove(a) // never added
	if l.Len() != 0 {
		t.Errorf("Len = %d, want 0", l.Len())
	}
}

func TestLayerAddNilIsNoop(t *testing.T) {
	l := &Layer{Name: "test"}
	l.Add(nil)
	if l.Len() != 0 {
		t.Errorf("Len after Add(nil) = %d, want 0", l.Len())
	}
}

func TestLayerCompactPreservesOrder(t *testing.T) {
	l := &Layer{Name: "test"}
	objs := make([]*countingDrawable, 6)
	for i := range objs {
		objs[i] = &countingDrawable{}
		l.Add(objs[i])
	}
	// Remove enough to trigger compaction.
	l.Remove(objs[0])
	l.Remove(objs[2])
	l.Remove(objs[4])
	l.Remove(objs[5])

	if l.Len() != 2 {
		t.Fatalf("Len = %d, want 2", l.Len())
	}
	// Survivors keep their relative order.
	var survivors []Drawable
	for _, o := range l.objects {
		if o != nil {
			survivors = append(survivors, o)
		}
	}
	if len(survivors) != 2 || survivors[0] != objs[1] || survivors[1] != objs[3] {
		t.Error("compaction broke draw order")
	}
	// And removal still works on compacted indexes.
	l.Remove(objs[1])
	if l.Contains(objs[1]) || l.Len() != 1 {
		t.Error("remove after compaction failed")
	}
}

type panickyDrawable struct{}

func (panickyDrawable) Draw(*ebiten.Image, ebiten.GeoM, float64) { panic("boom") }

func TestLayerSurvivesPanickingDrawable(t *testing.T) {
	l := &Layer{Name: "test", Visible: true, Opacity: 1, ClearEachFrame: true}
	good := &countingDrawable{}
	l.Add(panickyDrawable{})
	l.Add(good)
	l.ensureSurface(64, 64)

	l.draw(ebiten.GeoM{}, 1.0/60)
	if good.draws != 1 {
		t.Errorf("object after panicking one drew %d times, want 1", good.draws)
	}
}
