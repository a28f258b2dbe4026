package charset_test

import (
	"testing"

	"github.com/orthodoxfm/search/charset"
)

func TestByNamePseudoCharsets(t *testing.T) {
	ascii, err := charset.ByName("ascii")
	if err != nil {
		t.Fatalf("ByName(ascii): %v", err)
	}
	if ascii.IsUTF8() {
		t.Fatal("ascii must not report IsUTF8")
	}

	u, err := charset.ByName("utf-8")
	if err != nil {
		t.Fatalf("ByName(utf-8): %v", err)
	}
	if !u.IsUTF8() {
		t.Fatal("utf-8 must report IsUTF8")
	}
}

func TestByNameCodepage(t *testing.T) {
	cs, err := charset.ByName("koi8-r")
	if err != nil {
		t.Fatalf("ByName(koi8-r): %v", err)
	}
	if cs.IsUTF8() {
		t.Fatal("koi8-r must not report IsUTF8")
	}
	r, size := cs.DecodeOne([]byte{0xC1}) // KOI8-R 0xC1 = 'а' (Cyrillic a)
	if size != 1 {
		t.Fatalf("DecodeOne size = %d, want 1", size)
	}
	if r == 0 {
		t.Fatal("DecodeOne returned zero rune for a mapped byte")
	}
}

func TestASCIIToUpperToLower(t *testing.T) {
	if got := charset.ASCII.ToUpper('a'); got != 'A' {
		t.Fatalf("ToUpper('a') = %q, want 'A'", got)
	}
	if got := charset.ASCII.ToLower('A'); got != 'a' {
		t.Fatalf("ToLower('A') = %q, want 'a'", got)
	}
}

func TestAllIncludesPseudoCharsets(t *testing.T) {
	all := charset.All()
	if len(all) < 2 {
		t.Fatal("All() should include at least ASCII and UTF-8")
	}
	if all[0].Name() != "ascii" || all[1].Name() != "utf-8" {
		t.Fatalf("All() should list ASCII, UTF-8 first, got %q, %q", all[0].Name(), all[1].Name())
	}
}

func TestRecodeASCIItoKOI8R(t *testing.T) {
	out := charset.Recode([]byte("Hello"), charset.ASCII, charset.UTF8)
	if string(out) != "Hello" {
		t.Fatalf("Recode ASCII->UTF8 of plain ASCII should be unchanged, got %q", out)
	}
}
