package sanitize

import "testing"

func TestText(t *testing.T) {
	got := Text("  <b>Called</b>   back &lt;script&gt;x&lt;/script&gt;\n tomorrow ")
	if got != "Called back x tomorrow" {
		t.Fatalf("unexpected sanitized text %q", got)
	}
}

func TestTextPtr(t *testing.T) {
	blank := "  <br/> "
	if TextPtr(&blank) != nil {
		t.Fatal("expected blank text to become nil")
	}
	if TextPtr(nil) != nil {
		t.Fatal("expected nil passthrough")
	}
}

func TestEmail(t *testing.T) {
	if got := Email("  Jane.Doe@Example.COM "); got != "jane.doe@example.com" {
		t.Fatalf("unexpected email %q", got)
	}
}
