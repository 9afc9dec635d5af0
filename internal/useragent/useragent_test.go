package useragent

import "testing"

func TestExtractVersion(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want string
	}{
		{"plain", "ambient_network/1.2.3", "1.2.3"},
		{"trailing space", "ambient_network/9.9.9  ", "9.9.9"},
		{"leading space in token", "ambient_network/ 0.3.0-dev", "0.3.0-dev"},
		{"prefix only", "ambient_network/", ""},
		{"empty", "", ""},
		{"browser", "Mozilla/5.0", ""},
		{"prefix not at start", "curl/8.0 ambient_network/1.0.0", ""},
		{"case sensitive", "Ambient_Network/1.0.0", ""},
		{"invalid utf-8", "ambient_network/1.0\xff", "1.0\uFFFD"},
		{"invalid utf-8 run", "ambient_network/\xfe\xff2.0", "\uFFFD2.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractVersion(tt.ua); got != tt.want {
				t.Errorf("ExtractVersion(%q) = %q, want %q", tt.ua, got, tt.want)
			}
		})
	}
}
