package masking

import "strings"

// plateFieldKeys are the payload field names that carry registration
// numbers and must be masked before a response leaves the server.
var plateFieldKeys = []string{"regNo", "vehicleNumber"}

// Plate redacts a registration number, keeping the first two and last two
// characters. Values of four characters or fewer are returned unchanged;
// masking them would leave nothing useful or produce all asterisks.
func Plate(plate string) string {
	trimmed := strings.TrimSpace(plate)
	if len(trimmed) <= 4 {
		return trimmed
	}
	return trimmed[:2] + strings.Repeat("*", len(trimmed)-4) + trimmed[len(trimmed)-2:]
}

// Fields returns a shallow copy of data with plate-bearing string fields
// masked. Blank and non-string values are left untouched. A nil map stays
// nil.
func Fields(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	masked := make(map[string]any, len(data))
	for k, v := range data {
		masked[k] = v
	}
	for _, key := range plateFieldKeys {
		if s, ok := masked[key].(string); ok && strings.TrimSpace(s) != "" {
			masked[key] = Plate(s)
		}
	}
	return masked
}
