package usecase

import (
	"testing"
)

func TestNormalizeEmailAddress(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`"Taro Yamada" <Taro@Example.com>`, "taro@example.com"},
		{"  jobs@example.co.jp  ", "jobs@example.co.jp"},
		{"<apply@example.com>", "apply@example.com"},
		{`"quoted"@example.com`, "quoted@example.com"},
		{"apply@example.com;", "apply@example.com"},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeEmailAddress(c.in); got != c.want {
			t.Errorf("NormalizeEmailAddress(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParseEmailsFromHeader(t *testing.T) {
	got := ParseEmailsFromHeader(`"A" <a@example.com>, b@example.com, , <c@example.com>`)
	want := []string{"a@example.com", "b@example.com", "c@example.com"}
	if len(got) != len(want) {
		t.Fatalf("got %d addresses, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("address %d = %q, want %q", i, got[i], want[i])
		}
	}

	if got := ParseEmailsFromHeader(""); got != nil {
		t.Errorf("expected nil for empty header, got %v", got)
	}
}

func TestInferSiteKey(t *testing.T) {
	cases := []struct {
		from string
		want string
	}{
		{"no-reply@indeed.com", "Indeed"},
		{"apply@airwork.net", "AirWork"},
		{"info@en-gage.net", "Engage"},
		{"notify@jmty.jp", "ジモティー"},
		{"system@saiyo-kakaricho.com", "採用係長"},
		{"jobs@kyujinbox.com", "求人ボックス"},
		{"someone@example.com", "Direct"},
		{"", "Direct"},
	}
	for _, c := range cases {
		if got := InferSiteKey(c.from); got != c.want {
			t.Errorf("InferSiteKey(%q) = %q, want %q", c.from, got, c.want)
		}
	}
}

func TestExtractName(t *testing.T) {
	if got := extractName(`"Taro Yamada" <taro@example.com>`, ""); got != "Taro Yamada" {
		t.Errorf("display name: got %q", got)
	}
	if got := extractName("taro@example.com", "氏名： 山田 太郎\n電話番号: 090-1234-5678"); got != "山田 太郎" {
		t.Errorf("body name line: got %q", got)
	}
	if got := extractName("taro@example.com", "no labels here"); got != "" {
		t.Errorf("expected empty name, got %q", got)
	}
}

func TestExtractPhone(t *testing.T) {
	if got := extractPhone("連絡先: 090-1234-5678 まで"); got != "090-1234-5678" {
		t.Errorf("got %q", got)
	}
	if got := extractPhone("no phone"); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}
