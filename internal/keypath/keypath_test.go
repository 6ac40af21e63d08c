package keypath

import "testing"

func TestCanonicalize(t *testing.T) {
	cases := map[string]string{
		"HKLM":                                `HKLM`,
		"HKEY_LOCAL_MACHINE":                  `HKLM`,
		`HKLM\Software\acme`:                  `HKLM\Software\acme`,
		"HKEY_LOCAL_MACHINE/Software/acme":    `HKLM\Software\acme`,
		`\HKLM\Software\acme\`: `HKLM\Software\acme`,
		"":                     `HKLM`,
		`Software\acme`:        `HKLM\Software\acme`,
	}
	for in, want := range cases {
		if got := Canonicalize(in); got != want {
			t.Errorf("Canonicalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestJoin(t *testing.T) {
	if got := Join(`HKLM\Software`, `acme\app`); got != `HKLM\Software\acme\app` {
		t.Errorf("Join = %q", got)
	}
	if got := Join(`HKLM\Software`, `/acme/app/`); got != `HKLM\Software\acme\app` {
		t.Errorf("Join with slashes = %q", got)
	}
	if got := Join(`HKLM\Software`, ""); got != `HKLM\Software` {
		t.Errorf("Join empty subkey = %q", got)
	}
	if got := Join(`HKLM\Software`, `HKEY_LOCAL_MACHINE\Other`); got != `HKLM\Other` {
		t.Errorf("Join absolute subkey = %q", got)
	}
}

func TestAncestors(t *testing.T) {
	got := Ancestors(`HKLM\A\B\C`)
	want := []string{`HKLM\A\B\C`, `HKLM\A\B`, `HKLM\A`, `HKLM`}
	if len(got) != len(want) {
		t.Fatalf("Ancestors len = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Ancestors[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestIsUnderAndImmediateChild(t *testing.T) {
	if !IsUnder(`HKLM\A\B`, `HKLM\A`) {
		t.Error("expected HKLM\\A\\B under HKLM\\A")
	}
	if IsUnder(`HKLM\AB`, `HKLM\A`) {
		t.Error("HKLM\\AB must not be considered under HKLM\\A")
	}
	name, ok := ImmediateChild(`HKLM\A\B`, `HKLM\A`)
	if !ok || name != "B" {
		t.Errorf("ImmediateChild = %q, %v", name, ok)
	}
	if _, ok := ImmediateChild(`HKLM\A\B\C`, `HKLM\A`); ok {
		t.Error("grandchild must not be an immediate child")
	}
}
