package synapse

import "testing"

func TestValidateID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"syn123", true},
		{"syn61609402", true},
		{"syn1", true},
		{"syn", false},
		{"", false},
		{"123456", false},
		{"SYN123", false},
		{"syn12a4", false},
		{"synapse", false},
		{" syn123", false},
	}

	for _, test := range tests {
		if got := ValidateID(test.id); got != test.valid {
			t.Errorf("ValidateID(%q) = %v, expected %v", test.id, got, test.valid)
		}
	}
}
