package bump

import (
	"testing"

	"github.com/matzehuels/wsbump/pkg/errors"
	"github.com/matzehuels/wsbump/pkg/version"
	"github.com/matzehuels/wsbump/pkg/workspace"
)

func TestParseInstruction(t *testing.T) {
	tests := []struct {
		text    string
		name    string
		mag     version.Magnitude
		wantErr bool
	}{
		{"core major", "core", version.Major, false},
		{"core MINOR", "core", version.Minor, false},
		{"  my-crate   Patch ", "my-crate", version.Patch, false},
		{"core", "", 0, true},
		{"", "", 0, true},
		{"core huge", "", 0, true},
		{"core major extra", "", 0, true},
		{"../etc major", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			name, mag, err := ParseInstruction(tt.text)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseInstruction(%q) error = %v, wantErr %v", tt.text, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, errors.ErrCodeInvalidInstruction) {
					t.Errorf("error code = %s, want INVALID_INSTRUCTION", errors.GetCode(err))
				}
				return
			}
			if name != tt.name || mag != tt.mag {
				t.Errorf("ParseInstruction(%q) = %s, %v; want %s, %v", tt.text, name, mag, tt.name, tt.mag)
			}
		})
	}
}

func TestResolveInstructionStable(t *testing.T) {
	sw, pw := mockWorkspaces(t, nil, nil)

	inst, err := ResolveInstruction(sw, pw, "b major", Stable)
	if err != nil {
		t.Fatal(err)
	}
	// User-initiated major leaves 0.x.
	if inst.Next.String() != "1.0.0" || inst.Channel != Stable || inst.Magnitude() != version.Major {
		t.Errorf("got %s (%s, %v)", inst, inst.Channel, inst.Magnitude())
	}
	if p, _ := sw.Package("b"); inst.Package != p {
		t.Error("stable instruction must reference the stable package")
	}

	_, err = ResolveInstruction(sw, pw, "pre-only patch", Stable)
	if !errors.Is(err, errors.ErrCodePackageNotFound) {
		t.Errorf("unknown package: got %v, want PACKAGE_NOT_FOUND", err)
	}

	_, err = ResolveInstruction(sw, pw, "b sideways", Stable)
	if !errors.Is(err, errors.ErrCodeInvalidInstruction) {
		t.Errorf("bad magnitude: got %v, want INVALID_INSTRUCTION", err)
	}
}

func TestResolveInstructionPrereleaseMissing(t *testing.T) {
	sw, err := workspace.New("main", workspace.NewPackage("only-stable", version.MustParse("1.0.0")))
	if err != nil {
		t.Fatal(err)
	}
	pw, err := workspace.New("next")
	if err != nil {
		t.Fatal(err)
	}
	_, err = ResolveInstruction(sw, pw, "only-stable minor", Prerelease)
	if !errors.Is(err, errors.ErrCodePackageNotFound) {
		t.Errorf("got %v, want PACKAGE_NOT_FOUND", err)
	}

	inst, err := ResolveInstruction(sw, pw, "nowhere minor", Prerelease)
	if inst != nil || err != nil {
		t.Errorf("unknown on both sides: got %v, %v; want nil, nil", inst, err)
	}
}

func TestResolveInstructionPrereleaseAnchorsToStable(t *testing.T) {
	// The candidate comes from stable (1.0.0), not from the prerelease 0.9.0.
	sw, pw := mockWorkspaces(t, nil, map[string]string{"a": "0.9.0"})
	inst, err := ResolveInstruction(sw, pw, "a patch", Prerelease)
	if err != nil {
		t.Fatal(err)
	}
	if inst.Next.String() != "1.0.1-alpha" {
		t.Errorf("Next = %s, want 1.0.1-alpha", inst.Next)
	}
	if p, _ := pw.Package("a"); inst.Package != p {
		t.Error("prerelease instruction must reference the prerelease package")
	}
}

func TestInstructionEqual(t *testing.T) {
	sw, pw := mockWorkspaces(t, nil, nil)
	sa, _ := sw.Package("a")
	pa, _ := pw.Package("a")

	x := &Instruction{Package: sa, Channel: Stable, Next: version.MustParse("1.0.1")}
	tests := []struct {
		name string
		o    *Instruction
		want bool
	}{
		{"same", &Instruction{Package: sa, Channel: Stable, Next: version.MustParse("1.0.1")}, true},
		{"other next", &Instruction{Package: sa, Channel: Stable, Next: version.MustParse("1.0.2")}, false},
		{"other channel", &Instruction{Package: pa, Channel: Prerelease, Next: version.MustParse("1.0.1")}, false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		if got := x.Equal(tt.o); got != tt.want {
			t.Errorf("%s: Equal = %v, want %v", tt.name, got, tt.want)
		}
	}
	var none *Instruction
	if !none.Equal(nil) {
		t.Error("nil should equal nil")
	}
}

func TestReconcilePrerelease(t *testing.T) {
	sw, pw := mockWorkspaces(t, nil, nil)
	sa, _ := sw.Package("a")

	change := func(next string) *Instruction {
		return &Instruction{Package: sa, Channel: Stable, Next: version.MustParse(next)}
	}

	tests := []struct {
		name   string
		pre    string
		change *Instruction
		parent *Instruction
		want   string
	}{
		{"stable patch", "1.0.0", change("1.0.1"), nil, "1.0.2-alpha"},
		{"stable minor leaps major", "1.0.0", change("1.1.0"), nil, "2.0.0-alpha"},
		{"stable major", "1.0.0", change("2.0.0"), nil, "3.0.0-alpha"},
		{"already ahead", "5.0.0-alpha", change("2.0.0"), nil, ""},
		{"equal candidate is not applied", "3.0.0-alpha", change("2.0.0"), nil, ""},
		{"parent major", "1.0.0", nil, parentWith(t, pw, "2.0.0-alpha"), "2.0.0-alpha"},
		{"parent patch", "1.0.0", nil, parentWith(t, pw, "1.0.1-alpha"), "1.0.1-alpha"},
		{"max of both", "1.0.0", change("1.0.1"), parentWith(t, pw, "2.0.0-alpha"), "2.0.0-alpha"},
		{"no inputs", "1.0.0", nil, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pre := workspace.NewPackage("a", version.MustParse(tt.pre))
			got := ReconcilePrerelease(pre, sa, tt.change, tt.parent)
			if tt.want == "" {
				if got != nil {
					t.Errorf("got %s, want nil", got.Next)
				}
				return
			}
			if got == nil || got.Next.String() != tt.want {
				t.Fatalf("got %v, want %s", got, tt.want)
			}
			if got.Channel != Prerelease || got.Package != pre {
				t.Error("result must be a prerelease instruction on the prerelease package")
			}
		})
	}

	if ReconcilePrerelease(nil, sa, change("1.0.1"), nil) != nil {
		t.Error("missing prerelease package must yield nil")
	}
	pa, _ := pw.Package("a")
	if ReconcilePrerelease(pa, nil, nil, parentWith(t, pw, "2.0.0-alpha")) != nil {
		t.Error("missing stable package must yield nil")
	}
}

// parentWith returns a prerelease instruction moving "a" (1.0.0) to next.
func parentWith(t *testing.T, pw *workspace.Workspace, next string) *Instruction {
	t.Helper()
	pa, _ := pw.Package("a")
	return &Instruction{Package: pa, Channel: Prerelease, Next: version.MustParse(next)}
}

func TestChannel(t *testing.T) {
	for _, c := range []Channel{Stable, Prerelease} {
		got, err := ParseChannel(c.String())
		if err != nil || got != c {
			t.Errorf("ParseChannel(%q) = %v, %v", c.String(), got, err)
		}
	}
	if _, err := ParseChannel("beta"); err == nil {
		t.Error("ParseChannel(beta) should fail")
	}
}

func TestResolveInstructionPrereleaseTiers(t *testing.T) {
	// Leading at a lower tier does not count once a higher tier trails:
	// 1.5.0-alpha is behind stable 2.0.0 at every tier.
	tests := []struct {
		stable, pre string
		text        string
		want        string // "" means no instruction
	}{
		{"2.0.0", "1.5.0-alpha", "a patch", "2.0.1-alpha"},
		{"2.0.0", "1.5.0-alpha", "a minor", "2.1.0-alpha"},
		{"2.0.0", "1.5.0-alpha", "a major", "3.0.0-alpha"},
		{"2.0.0", "2.1.0-alpha", "a minor", ""},
		{"2.0.0", "2.1.0-alpha", "a patch", ""},
		{"2.0.0", "2.1.0-alpha", "a major", "3.0.0-alpha"},
		{"2.0.0", "2.0.1-alpha", "a minor", "2.1.0-alpha"},
		{"2.3.1", "3.0.0-alpha", "a major", ""},
	}

	for _, tt := range tests {
		t.Run(tt.pre+" "+tt.text, func(t *testing.T) {
			sw, pw := mockWorkspaces(t, map[string]string{"a": tt.stable}, map[string]string{"a": tt.pre})
			inst, err := ResolveInstruction(sw, pw, tt.text, Prerelease)
			if err != nil {
				t.Fatal(err)
			}
			got := ""
			if inst != nil {
				got = inst.Next.String()
			}
			if got != tt.want {
				t.Errorf("%s on stable %s: got %q, want %q", tt.text, tt.stable, got, tt.want)
			}
		})
	}
}
