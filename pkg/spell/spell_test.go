package spell

import "testing"

type listChecker struct {
	known map[string]bool
}

func (c listChecker) Check(word string) bool { return c.known[word] }

func (c listChecker) Suggest(word string) []string {
	if c.known[word] {
		return nil
	}
	return []string{"clip"}
}

func TestNoop(t *testing.T) {
	var c Checker = Noop{}
	if !c.Check("zzxqj") {
		t.Error("Noop.Check should accept every word")
	}
	if got := c.Suggest("zzxqj"); got != nil {
		t.Errorf("Noop.Suggest = %v, want nil", got)
	}
}

func TestRegisterAndForLocale(t *testing.T) {
	backend := listChecker{known: map[string]bool{"clip": true}}
	Register("en_US", backend)
	defer Register("en_US", nil)

	c := ForLocale("en_US")
	if !c.Check("clip") {
		t.Error("registered backend should know its word list")
	}
	if c.Check("clyp") {
		t.Error("registered backend should reject unknown words")
	}
	if got := c.Suggest("clyp"); len(got) != 1 || got[0] != "clip" {
		t.Errorf("Suggest = %v, want [clip]", got)
	}
}

func TestForLocaleFallsBackToNoop(t *testing.T) {
	c := ForLocale("xx_XX")
	if _, ok := c.(Noop); !ok {
		t.Fatalf("unregistered locale returned %T, want Noop", c)
	}
}

func TestRegisterNilRemoves(t *testing.T) {
	Register("de_DE", listChecker{known: map[string]bool{"wort": true}})
	Register("de_DE", nil)
	if _, ok := ForLocale("de_DE").(Noop); !ok {
		t.Error("Register(locale, nil) should remove the backend")
	}
}
