package confidence

import "testing"

func TestLevel_Rank(t *testing.T) {
	ordered := []Level{None, VeryLow, Low, Medium, High}
	for i := 1; i < len(ordered); i++ {
		if ordered[i].Rank() <= ordered[i-1].Rank() {
			t.Errorf("%s must rank above %s", ordered[i], ordered[i-1])
		}
	}
	if Level("bogus").IsValid() {
		t.Error("unknown level must be invalid")
	}
}

func TestLevel_IsWeak(t *testing.T) {
	weak := map[Level]bool{None: false, VeryLow: true, Low: true, Medium: false, High: false}
	for l, want := range weak {
		if l.IsWeak() != want {
			t.Errorf("%s.IsWeak() = %v, want %v", l, l.IsWeak(), want)
		}
	}
}

func TestNoneVerdict(t *testing.T) {
	v := NoneVerdict()
	if v.Level != None || v.Score != 0 {
		t.Errorf("unexpected verdict %+v", v)
	}
}
