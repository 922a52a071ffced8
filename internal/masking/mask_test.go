package masking

import "testing"

func TestPlate(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"MH12AB1234", "MH******34"},
		{"AB12", "AB12"},
		{"A", "A"},
		{"", ""},
		{"AB123", "AB*23"},
		{"  MH12AB1234  ", "MH******34"},
	}
	for _, c := range cases {
		if got := Plate(c.in); got != c.want {
			t.Errorf("Plate(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFields_MasksPlateBearingKeys(t *testing.T) {
	data := map[string]any{
		"regNo":         "MH12AB1234",
		"vehicleNumber": "KA05CD6789",
		"ownerName":     "A Person",
		"year":          2021,
		"blank":         "",
	}

	masked := Fields(data)
	if masked["regNo"] != "MH******34" {
		t.Fatalf("expected regNo masked, got %v", masked["regNo"])
	}
	if masked["vehicleNumber"] != "KA******89" {
		t.Fatalf("expected vehicleNumber masked, got %v", masked["vehicleNumber"])
	}
	if masked["ownerName"] != "A Person" || masked["year"] != 2021 {
		t.Fatalf("expected non-plate fields untouched, got %+v", masked)
	}

	// Original map must not be modified.
	if data["regNo"] != "MH12AB1234" {
		t.Fatalf("expected shallow copy, source map was mutated")
	}
}

func TestFields_NonStringAndNil(t *testing.T) {
	if Fields(nil) != nil {
		t.Fatalf("expected nil map to stay nil")
	}

	data := map[string]any{"regNo": 12345}
	masked := Fields(data)
	if masked["regNo"] != 12345 {
		t.Fatalf("expected non-string value untouched, got %v", masked["regNo"])
	}
}
