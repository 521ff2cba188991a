package belief

import (
	"reflect"
	"testing"
)

func TestMemory_GetSetExists(t *testing.T) {
	m := NewMemory()
	if m.Exists("Ann", KeyRest) {
		t.Fatalf("empty store reports key")
	}
	m.Set("Ann", KeyRest, "-2")
	v, ok := m.Get("Ann", KeyRest)
	if !ok || v != "-2" {
		t.Fatalf("Get=%q,%v", v, ok)
	}
	Remove(m, "Ann", KeyRest)
	if m.Exists("Ann", KeyRest) {
		t.Fatalf("key survived Remove")
	}
}

func TestMemory_CloneIsDeep(t *testing.T) {
	m := NewMemory()
	m.Set("Ann", OpinionKey("Bo"), "3")
	c := m.Clone()
	m.Set("Ann", OpinionKey("Bo"), "-5")
	if v, _ := c.Get("Ann", OpinionKey("Bo")); v != "3" {
		t.Fatalf("clone saw later write: %q", v)
	}
}

func TestMemory_KeysWithPrefix(t *testing.T) {
	m := NewMemory()
	m.Set("Ann", OpinionKey("Bo"), "1")
	m.Set("Ann", OpinionKey("Cy"), "2")
	m.Set("Ann", RevealedOpinionKey("Bo"), "1")
	got := m.KeysWithPrefix("Ann", PrefixOpinion)
	if want := []string{"Bo", "Cy"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if got := m.Characters(); !reflect.DeepEqual(got, []string{"Ann"}) {
		t.Fatalf("characters: %v", got)
	}
}
