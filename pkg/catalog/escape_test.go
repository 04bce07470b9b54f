package catalog

import "testing"

func TestEscapeQuery(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain terms", "cranial nerve", "cranial nerve"},
		{"quoted phrase kept", `"cranial nerve" anatomy`, `"cranial nerve" anatomy`},
		{"operators kept", "cat AND dog OR bird NOT fish", "cat AND dog OR bird NOT fish"},
		{"lowercase operators kept", "rock and roll", "rock and roll"},
		{"near kept", "head NEAR/3 wound", "head NEAR/3 wound"},
		{"prefix term kept", "anat*", "anat*"},
		{"hyphen quoted", "covid-19", `"covid-19"`},
		{"leading hyphen quoted", "-excluded", `"-excluded"`},
		{"colon quoted", "title:anatomy", `"title:anatomy"`},
		{"parens quoted", "(grouped)", `"(grouped)"`},
		{"caret quoted", "term^2", `"term^2"`},
		{"inner quote doubled", `it"s`, `"it""s"`},
		{"mixed", `"the heart" covid-19 AND valve*`, `"the heart" "covid-19" AND valve*`},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EscapeQuery(tt.in); got != tt.want {
				t.Errorf("EscapeQuery(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
