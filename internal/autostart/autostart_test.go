package autostart

import "testing"

func TestCommandQuotesPath(t *testing.T) {
	got := Command(`C:\Program Files\Dictation\dictation.exe`)
	want := `"C:\Program Files\Dictation\dictation.exe" run`
	if got != want {
		t.Fatalf("Command = %s, want %s", got, want)
	}
}
