package ua

import "testing"

func TestParse(t *testing.T) {
	const chrome = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	got := Parse(chrome)
	if got.Browser != "Chrome" || got.Version != "124" || got.Device != "Desktop" || got.IsBot {
		t.Fatalf("Parse(chrome) = %+v", got)
	}

	bot := Parse("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)")
	if !bot.IsBot {
		t.Fatalf("Googlebot not flagged: %+v", bot)
	}

	if empty := Parse(""); empty.Version != "" || empty.Raw != "" {
		t.Fatalf("Parse(\"\") = %+v", empty)
	}
}
