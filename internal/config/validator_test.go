package config

import "testing"

func TestValidateUnknownDirective(t *testing.T) {
	d := &Directive{Name: "bogus", Context: CtxServer}
	if err := Validate(d); err == nil {
		t.Fatal("expected an error for an unknown directive")
	}
}

func TestValidateWrongContext(t *testing.T) {
	d := &Directive{Name: "cgi_pass", Args: []string{"/usr/bin/php"}, Context: CtxServer}
	if err := Validate(d); err == nil {
		t.Fatal("expected cgi_pass to be rejected outside location context")
	}
}

func TestValidateArgCount(t *testing.T) {
	d := &Directive{Name: "autoindex", Args: []string{"on", "off"}, Context: CtxLocation}
	if err := Validate(d); err == nil {
		t.Fatal("expected autoindex to reject two arguments")
	}
}

func TestValidateHostType(t *testing.T) {
	cases := []struct {
		arg string
		ok  bool
	}{
		{"127.0.0.1:8080", true},
		{"example.com:80", true},
		{"[::1]:8080", true},
		{"example.com:70000", false},
		{"example.com", false},
		{":8080", false},
	}

	for _, c := range cases {
		d := &Directive{Name: "listen", Args: []string{c.arg}, Context: CtxServer}
		err := Validate(d)
		if c.ok && err != nil {
			t.Errorf("%q: unexpected error: %v", c.arg, err)
		}
		if !c.ok && err == nil {
			t.Errorf("%q: expected an error", c.arg)
		}
	}
}

func TestValidatePathRejectsDotDotAndDoubleSlash(t *testing.T) {
	cases := []string{"/var/www/../etc", "/var//www"}
	for _, p := range cases {
		d := &Directive{Name: "root", Args: []string{p}, Context: CtxServer}
		if err := Validate(d); err == nil {
			t.Errorf("%q: expected path validation to fail", p)
		}
	}
}

func TestValidateMethods(t *testing.T) {
	d := &Directive{Name: "methods", Args: []string{"GET", "PATCH"}, Context: CtxLocation}
	if err := Validate(d); err == nil {
		t.Fatal("expected PATCH to be rejected")
	}

	d = &Directive{Name: "methods", Args: []string{"GET", "POST", "DELETE"}, Context: CtxLocation}
	if err := Validate(d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateBool(t *testing.T) {
	d := &Directive{Name: "autoindex", Args: []string{"maybe"}, Context: CtxLocation}
	if err := Validate(d); err == nil {
		t.Fatal("expected a type error for a non on/off value")
	}
}
