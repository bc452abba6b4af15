package textutil

import (
	"reflect"
	"testing"
)

func TestPlainText(t *testing.T) {
	t.Run("strips markup and unescapes entities", func(t *testing.T) {
		got := PlainText(`<b>Net 30</b> &amp; <script>alert(1)</script>thanks`)
		if got != "Net 30 & thanks" {
			t.Fatalf("unexpected %q", got)
		}
	})

	t.Run("keeps newlines and drops control characters", func(t *testing.T) {
		got := PlainText("line one\r\nline\x07 two\t!")
		if got != "line one\nline two !" {
			t.Fatalf("unexpected %q", got)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if PlainText("") != "" {
			t.Fatal("expected empty")
		}
	})
}

func TestPlainLineAndInitials(t *testing.T) {
	if got := PlainLine("  Acme \n Design   Co "); got != "Acme Design Co" {
		t.Fatalf("unexpected %q", got)
	}
	cases := map[string]string{
		"Acme Design Co": "AD",
		"solo":           "S",
		"":               "",
		"  42 labs":      "4L",
	}
	for in, want := range cases {
		if got := Initials(in); got != want {
			t.Fatalf("Initials(%q) = %q want %q", in, got, want)
		}
	}
}

func TestNormalizeLines(t *testing.T) {
	got := NormalizeLines([]string{" 1 Main St ", "", "  ", "<i>Springfield</i>"})
	want := []string{"1 Main St", "Springfield"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %#v got %#v", want, got)
	}
	if NormalizeLines([]string{" "}) != nil {
		t.Fatal("expected nil for blank input")
	}
}

func TestParagraphs(t *testing.T) {
	got := Paragraphs("Thanks!\n\nPay within 30 days.  ")
	want := []string{"Thanks!", "", "Pay within 30 days."}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %#v got %#v", want, got)
	}
}
